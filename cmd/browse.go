package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"aum/internal/config"
	"aum/internal/umapi"
	"aum/internal/utils"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactive user browser",
	Long: `Browse the organization's users interactively with a terminal UI.

Navigate with keyboard controls, open individual users to see their
products and groups, and copy emails to the clipboard. A check mark in
the first column means that user's details are already cached locally.`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	model := newBrowserModel(client)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		// Fallback to a static listing if interactive mode fails
		return runStaticBrowse(cmd.Context(), client)
	}

	return nil
}

func runStaticBrowse(ctx context.Context, client *umapi.Client) error {
	users, err := client.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found in this organization")
		return nil
	}

	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"", "Email", "Name", "Country", "Status"})

	for _, user := range users {
		cached := ""
		if client.IsUserCached(user.Email) {
			cached = "✓"
		}
		name := strings.TrimSpace(user.FirstName + " " + user.LastName)
		t.AppendRow(prettytable.Row{cached, user.Email, name, user.Country, user.Status})
	}

	fmt.Println(t.Render())
	fmt.Println("\nUse 'aum users get EMAIL' to see products and groups")

	return nil
}

// browserState represents the current view state
type browserState int

const (
	stateLoading browserState = iota
	stateUserList
	stateUserDetail
	stateError
)

// browserModel is the main Bubble Tea model
type browserModel struct {
	state  browserState
	client *umapi.Client

	// User list state
	users      []umapi.UserInfo
	tableModel table.Model

	// User detail state
	detail *umapi.UserInfo

	// UI state
	loading   bool
	err       error
	statusMsg string
	width     int
	height    int
}

func newBrowserModel(client *umapi.Client) *browserModel {
	columns := []table.Column{
		{Title: "Cache", Width: config.CacheColumnWidth},
		{Title: "Email", Width: config.EmailColumnWidth},
		{Title: "Name", Width: config.NameColumnWidth},
		{Title: "Country", Width: config.CountryColumnWidth},
		{Title: "Status", Width: config.StatusColumnWidth},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(config.DefaultTableHeight),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &browserModel{
		state:      stateLoading,
		client:     client,
		loading:    true,
		tableModel: t,
	}
}

// Messages delivered by async loaders
type userListLoadedMsg struct{ users []umapi.UserInfo }
type userDetailLoadedMsg struct{ user *umapi.UserInfo }
type errorMsg struct{ err error }

func loadUserList(client *umapi.Client) tea.Cmd {
	return func() tea.Msg {
		users, err := client.ListUsers(context.Background())
		if err != nil {
			return errorMsg{err}
		}
		return userListLoadedMsg{users}
	}
}

func loadUserDetail(client *umapi.Client, email string) tea.Cmd {
	return func() tea.Msg {
		user, err := client.GetUser(context.Background(), email)
		if err != nil {
			return errorMsg{err}
		}
		return userDetailLoadedMsg{user}
	}
}

// Init implements tea.Model
func (m *browserModel) Init() tea.Cmd {
	return loadUserList(m.client)
}

// Update implements tea.Model
func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.state == stateUserList {
		m.tableModel, cmd = m.tableModel.Update(msg)
	}

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == stateUserList {
			tableHeight := m.height - 8
			if tableHeight < config.MinTableHeight {
				tableHeight = config.MinTableHeight
			}
			m.tableModel.SetHeight(tableHeight)
		}
		return m, cmd

	case tea.KeyMsg:
		newModel, keyCmd := m.handleKeyPress(msg)
		return newModel, tea.Batch(cmd, keyCmd)

	case userListLoadedMsg:
		m.loading = false
		m.users = msg.users
		m.state = stateUserList
		m.updateTableRows()
		return m, nil

	case userDetailLoadedMsg:
		m.loading = false
		m.detail = msg.user
		m.state = stateUserDetail
		m.updateTableRows() // the fetched user is now cached
		return m, nil

	case errorMsg:
		m.loading = false
		m.err = msg.err
		m.state = stateError
		return m, nil
	}

	return m, nil
}

func (m *browserModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "enter":
		if m.state == stateUserList && len(m.users) > 0 {
			selectedIdx := m.tableModel.Cursor()
			if selectedIdx >= 0 && selectedIdx < len(m.users) {
				email := m.users[selectedIdx].Email
				m.loading = true
				m.state = stateLoading
				m.statusMsg = ""
				return m, loadUserDetail(m.client, email)
			}
		}

	case "c":
		if m.state == stateUserDetail && m.detail != nil {
			if err := utils.CopyToClipboard(m.detail.Email); err != nil {
				m.statusMsg = fmt.Sprintf("Copy failed: %v", err)
			} else {
				m.statusMsg = fmt.Sprintf("Copied %s", m.detail.Email)
			}
		}

	case "r":
		if m.state == stateUserList {
			m.loading = true
			m.state = stateLoading
			return m, loadUserList(m.client)
		}

	case "b", "backspace", "esc":
		if m.state == stateUserDetail {
			m.detail = nil
			m.statusMsg = ""
			if len(m.users) == 0 {
				m.loading = true
				m.state = stateLoading
				return m, loadUserList(m.client)
			}
			m.state = stateUserList
			m.updateTableRows()
		}
	}

	return m, nil
}

// updateTableRows rebuilds the table rows, re-probing the cache so the
// check column reflects users fetched since the last render
func (m *browserModel) updateTableRows() {
	rows := make([]table.Row, len(m.users))
	for i, user := range m.users {
		cached := ""
		if m.client.IsUserCached(user.Email) {
			cached = "✓"
		}
		name := strings.TrimSpace(user.FirstName + " " + user.LastName)
		rows[i] = table.Row{cached, user.Email, name, user.Country, user.Status}
	}
	m.tableModel.SetRows(rows)
}

// View implements tea.Model
func (m *browserModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case stateLoading:
		return m.renderLoading()
	case stateUserList:
		return m.renderUserList()
	case stateUserDetail:
		return m.renderUserDetail()
	case stateError:
		return m.renderError()
	default:
		return "Unknown state"
	}
}

func (m *browserModel) renderLoading() string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render("🔄 Loading users...")
}

func (m *browserModel) renderUserList() string {
	var content strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Padding(0, 1)

	content.WriteString(headerStyle.Render(fmt.Sprintf("👥 %d users", len(m.users))))
	content.WriteString("\n\n")

	if len(m.users) == 0 {
		content.WriteString("No users found in this organization")
	} else {
		content.WriteString(m.tableModel.View())
	}

	content.WriteString("\n")
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Padding(1, 1)

	footer := "⌨️  [↑↓] Navigate • [Enter] Details • [r] Refresh • [q] Quit • ✓ = Cached"
	content.WriteString(footerStyle.Render(footer))

	return content.String()
}

func (m *browserModel) renderUserDetail() string {
	if m.detail == nil {
		return "No user selected"
	}

	var content strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Padding(0, 1)

	name := strings.TrimSpace(m.detail.FirstName + " " + m.detail.LastName)
	content.WriteString(headerStyle.Render(fmt.Sprintf("👤 %s", m.detail.Email)))
	content.WriteString("\n\n")

	metaStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Padding(0, 1)

	content.WriteString(metaStyle.Render(fmt.Sprintf("Name: %s • Country: %s • Status: %s",
		name, m.detail.Country, m.detail.Status)))
	content.WriteString("\n\n")

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		Padding(0, 1)

	itemStyle := lipgloss.NewStyle().Padding(0, 2)

	content.WriteString(sectionStyle.Render("📦 Products:"))
	content.WriteString("\n")
	if len(m.detail.Products) == 0 {
		content.WriteString(itemStyle.Render("none"))
		content.WriteString("\n")
	} else {
		for _, product := range m.detail.Products {
			content.WriteString(itemStyle.Render("├─ " + product))
			content.WriteString("\n")
		}
	}
	content.WriteString("\n")

	content.WriteString(sectionStyle.Render("👥 Groups:"))
	content.WriteString("\n")
	if len(m.detail.Groups) == 0 {
		content.WriteString(itemStyle.Render("none"))
		content.WriteString("\n")
	} else {
		for _, group := range m.detail.Groups {
			content.WriteString(itemStyle.Render("├─ " + group))
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Padding(1, 1)

	footer := "⌨️  [b] Back • [c] Copy email • [q] Quit"
	if m.statusMsg != "" {
		footer = m.statusMsg + " • " + footer
	}
	content.WriteString(footerStyle.Render(footer))

	return content.String()
}

func (m *browserModel) renderError() string {
	errorStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(lipgloss.Color("196"))

	return errorStyle.Render(fmt.Sprintf("❌ Error: %v\n\nPress q to quit", m.err))
}
