package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect users in the organization",
	Long: `Look up individual users or list everyone in the organization.

Listings walk the API's pages automatically and are cached locally, so
repeated invocations don't burn through the rate limit.`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  runUsersList,
}

var usersGetCmd = &cobra.Command{
	Use:   "get <email>",
	Short: "Show one user as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersGet,
}

var usersListJSON bool

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersGetCmd)

	usersListCmd.Flags().BoolVar(&usersListJSON, "json", false, "Output as JSON instead of a table")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	users, err := client.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if usersListJSON {
		out, err := json.MarshalIndent(users, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(users) == 0 {
		fmt.Println("No users found in this organization")
		return nil
	}

	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"Email", "Name", "Country", "Status", "Products"})

	for _, user := range users {
		name := strings.TrimSpace(user.FirstName + " " + user.LastName)
		t.AppendRow(prettytable.Row{
			user.Email,
			name,
			user.Country,
			user.Status,
			len(user.Products),
		})
	}

	fmt.Println(t.Render())
	fmt.Printf("\n%d users. Use 'aum users get EMAIL' for full details\n", len(users))

	return nil
}

func runUsersGet(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	user, err := client.GetUser(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return nil
}
