package cmd

import (
	"fmt"
	"os"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"aum/internal/bulk"
	"aum/internal/history"
	"aum/internal/umapi"
	"aum/internal/utils"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create users from a CSV file",
	Long: `Create users in bulk from a CSV file.

The file needs a header row with at least an 'email' column; 'firstname',
'lastname', 'country', 'products', and 'groups' are also recognized.
Multi-valued cells use '|' as separator:

  email,firstname,lastname,country,products,groups
  alice@example.com,Alice,Anders,US,Photoshop CC|Illustrator CC,Designers

Rows are validated before any API call. Users are created concurrently
within the configured limit; one failure never stops the rest of the
batch, and every run is recorded in the local history.`,
	RunE: runProvision,
}

var deprovisionCmd = &cobra.Command{
	Use:   "deprovision",
	Short: "Remove users listed in a CSV file",
	Long: `Remove users from the organization in bulk.

The file needs a header row with an 'email' column; other columns are
ignored. Removal revokes all product and group memberships.`,
	RunE: runDeprovision,
}

var (
	provisionFile   string
	deprovisionFile string
)

func init() {
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(deprovisionCmd)

	provisionCmd.Flags().StringVarP(&provisionFile, "file", "f", "", "CSV file with users to create (required)")
	provisionCmd.MarkFlagRequired("file")

	deprovisionCmd.Flags().StringVarP(&deprovisionFile, "file", "f", "", "CSV file with users to remove (required)")
	deprovisionCmd.MarkFlagRequired("file")
}

func runProvision(cmd *cobra.Command, args []string) error {
	users, err := bulk.LoadUsersCSV(provisionFile)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Printf("Provisioning %d users...\n\n", len(users))

	started := time.Now()
	outcomes := client.ProvisionUsers(cmd.Context(), users)
	finished := time.Now()

	emails := make([]string, len(users))
	for i, user := range users {
		emails[i] = user.Email
	}

	reportBatch("provision", emails, outcomes, client, started, finished)
	return exitOnFailures(outcomes)
}

func runDeprovision(cmd *cobra.Command, args []string) error {
	emails, err := bulk.LoadEmailsCSV(deprovisionFile)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Printf("Deprovisioning %d users...\n\n", len(emails))

	started := time.Now()
	outcomes := client.DeprovisionUsers(cmd.Context(), emails)
	finished := time.Now()

	reportBatch("deprovision", emails, outcomes, client, started, finished)
	return exitOnFailures(outcomes)
}

// reportBatch prints the per-user outcome table and run summary, and
// records the run in history. A history failure only warns; the batch
// result already happened and must still be shown.
func reportBatch(operation string, emails []string, outcomes []umapi.Outcome, client *umapi.Client, started, finished time.Time) {
	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"#", "Email", "Status", "Detail"})

	for i, outcome := range outcomes {
		status, detail := umapi.OutcomeStatus(outcome)
		t.AppendRow(prettytable.Row{i + 1, emails[i], status, detail})
	}
	fmt.Println(t.Render())

	summary := umapi.Summarize(outcomes)
	metrics := client.Metrics()

	fmt.Printf("\n%d succeeded, %d failed of %d in %s\n",
		summary.Succeeded, summary.Failed, summary.Total,
		utils.FormatDuration(finished.Sub(started)))
	fmt.Printf("API calls: %d, cache hits: %d\n", metrics.APICalls, metrics.CacheHits)

	store, err := history.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open history: %v\n", err)
		return
	}
	defer store.Close()

	runID, err := store.RecordRun(operation, started, finished, emails, outcomes, metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record history: %v\n", err)
		return
	}
	fmt.Printf("Recorded as run %s\n", runID[:8])
}

func exitOnFailures(outcomes []umapi.Outcome) error {
	summary := umapi.Summarize(outcomes)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d operations failed", summary.Failed, summary.Total)
	}
	return nil
}
