package cmd

import (
	"fmt"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"aum/internal/history"
	"aum/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Audit past bulk runs",
	Long: `Inspect the locally recorded history of provisioning and
deprovisioning runs: when they ran, how many users succeeded or failed,
and the per-user failure details.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run's per-user outcomes",
	Long:  `Show every user outcome of a run. The run ID may be abbreviated to any unambiguous prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded history",
	RunE:  runHistoryClear,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := history.Open()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"Run", "Operation", "Started", "Duration", "OK", "Failed"})

	for _, run := range runs {
		t.AppendRow(prettytable.Row{
			run.ID[:8],
			run.Operation,
			utils.FormatTime(run.StartedAt),
			utils.FormatDuration(run.FinishedAt.Sub(run.StartedAt)),
			run.Succeeded,
			run.Failed,
		})
	}

	fmt.Println(t.Render())
	fmt.Printf("\nUse 'aum history show RUN' for per-user outcomes\n")

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := history.Open()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s)\n", run.ID, run.Operation)
	fmt.Printf("Started:    %s\n", utils.FormatTime(run.StartedAt))
	fmt.Printf("Duration:   %s\n", utils.FormatDuration(run.FinishedAt.Sub(run.StartedAt)))
	fmt.Printf("Outcome:    %d succeeded, %d failed of %d\n", run.Succeeded, run.Failed, run.Total)
	fmt.Printf("API calls:  %d (%d cache hits)\n\n", run.APICalls, run.CacheHits)

	items, err := store.RunItems(run.ID)
	if err != nil {
		return fmt.Errorf("failed to load run items: %w", err)
	}

	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"#", "Email", "Status", "Detail"})

	for _, item := range items {
		t.AppendRow(prettytable.Row{item.Index + 1, item.Email, item.Status, item.Detail})
	}

	fmt.Println(t.Render())
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := history.Open()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to get history stats: %w", err)
	}

	if stats.TotalRuns == 0 {
		fmt.Println("History is already empty")
		return nil
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Printf("Cleared %d recorded runs\n", stats.TotalRuns)
	return nil
}
