package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotauth/internal/tokens"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TokenListView ViewState = iota
	ConfirmForgetView
)

// Model represents the TUI application state: an inventory of stored token
// records with per-user refresh and forget actions.
type Model struct {
	ctx       context.Context
	view      ViewState
	repo      *tokens.DatabaseRepository
	flow      *tokens.Flow
	width     int
	height    int
	tokenList list.Model
	pending   string
	status    string
	err       error
	help      help.Model
	keys      keyMap
}

type tokensLoadedMsg struct {
	records []tokens.StoredToken
	err     error
}

type refreshDoneMsg struct {
	userID string
	err    error
}

type forgetDoneMsg struct {
	userID string
	err    error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, repo *tokens.DatabaseRepository, flow *tokens.Flow) *Model {
	return &Model{
		ctx:  ctx,
		view: TokenListView,
		repo: repo,
		flow: flow,
		help: help.New(),
		keys: newKeyMap(),
	}
}

// Init initializes the TUI by loading the stored token records.
func (m *Model) Init() tea.Cmd {
	return m.loadTokens()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.tokenList.Width() == 0 {
			m.tokenList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TokenListView:
			return m.handleListKeys(msg)
		case ConfirmForgetView:
			return m.handleConfirmKeys(msg)
		}

	case tokensLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.records))
		for i, record := range msg.records {
			items[i] = tokenItem{record: record}
		}
		m.tokenList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.tokenList.Title = "Stored Spotify Tokens"
		m.tokenList.SetSize(m.width-4, m.height-8)
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("refresh failed for %s: %v", msg.userID, msg.err))
			return m, nil
		}
		m.status = styles.ok.Render(fmt.Sprintf("refreshed token for %s", msg.userID))
		return m, m.loadTokens()

	case forgetDoneMsg:
		if msg.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("forget failed for %s: %v", msg.userID, msg.err))
			return m, nil
		}
		m.status = styles.warn.Render(fmt.Sprintf("forgot tokens for %s", msg.userID))
		return m, m.loadTokens()
	}

	var cmd tea.Cmd
	m.tokenList, cmd = m.tokenList.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case TokenListView:
		return m.renderTokenList()
	case ConfirmForgetView:
		return m.renderConfirmForget()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		m.status = ""
		return m, m.loadTokens()
	case "r":
		if userID, ok := m.selectedUser(); ok {
			m.status = styles.help.Render(fmt.Sprintf("refreshing %s...", userID))
			return m, m.refreshToken(userID)
		}
	case "f":
		if userID, ok := m.selectedUser(); ok {
			m.pending = userID
			m.view = ConfirmForgetView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.tokenList, cmd = m.tokenList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.pending = ""
		m.view = TokenListView
		return m, nil
	case "y":
		userID := m.pending
		m.pending = ""
		m.view = TokenListView
		return m, m.forgetUser(userID)
	}
	return m, nil
}

func (m *Model) selectedUser() (string, bool) {
	selected := m.tokenList.SelectedItem()
	if selected == nil {
		return "", false
	}
	item, ok := selected.(tokenItem)
	if !ok {
		return "", false
	}
	return item.record.UserID, true
}

func (m *Model) loadTokens() tea.Cmd {
	return func() tea.Msg {
		records, err := m.repo.List(m.ctx)
		return tokensLoadedMsg{records: records, err: err}
	}
}

func (m *Model) refreshToken(userID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.flow.Refresh(m.ctx, userID)
		return refreshDoneMsg{userID: userID, err: err}
	}
}

func (m *Model) forgetUser(userID string) tea.Cmd {
	return func() tea.Msg {
		err := m.flow.Forget(m.ctx, userID)
		return forgetDoneMsg{userID: userID, err: err}
	}
}

func (m *Model) renderTokenList() string {
	helpKeys := []key.Binding{m.keys.refresh, m.keys.forget, m.keys.reload, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.status != "" {
		return fmt.Sprintf("%s\n%s\n\n%s", m.tokenList.View(), m.status, helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.tokenList.View(), helpView)
}

func (m *Model) renderConfirmForget() string {
	title := styles.title.Render(fmt.Sprintf("Forget all tokens for '%s'?", m.pending))
	info := "\nThe user will have to re-authenticate through the authorization flow.\n"

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
