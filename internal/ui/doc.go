// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides an inventory of stored token records:
//  1. [TokenListView] : Browse stored users with expiry and scope details
//  2. [ConfirmForgetView] : Confirm deletion of a user's tokens
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Refresh and forget actions run as [tea.Cmd] functions against the token flow,
// and the listing reloads after each mutation.
//
// Listings come from the durable SQLite store. The cache backend cannot
// enumerate users, so the TUI requires the database repository.
//
// Keyboard navigation uses vim-style bindings (j/k, r, f, y/n, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
