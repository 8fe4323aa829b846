package cmd

import (
	"fmt"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List product profiles and license usage",
	RunE:  runProducts,
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List user groups",
	RunE:  runGroups,
}

func init() {
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(groupsCmd)
}

func runProducts(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	products, err := client.GetProducts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	if len(products) == 0 {
		fmt.Println("No product profiles found in this organization")
		return nil
	}

	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"Product", "Licenses Used", "Quota"})

	for _, product := range products {
		t.AppendRow(prettytable.Row{
			product.Name,
			product.LicenseCount,
			product.LicenseQuota,
		})
	}

	fmt.Println(t.Render())
	return nil
}

func runGroups(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	groups, err := client.GetGroups(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	if len(groups) == 0 {
		fmt.Println("No user groups found in this organization")
		return nil
	}

	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"Group", "Members"})

	for _, group := range groups {
		t.AppendRow(prettytable.Row{group.Name, group.MemberCount})
	}

	fmt.Println(t.Render())
	return nil
}
