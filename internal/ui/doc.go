// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one query at a time:
//  1. [CategoryView] : artists or tracks
//  2. [WindowView] : last 4 weeks, 6 months or year
//  3. [CountView] : one of the allowed counts
//  4. [FetchingView] : spinner while pages are fetched
//  5. [ResultView] : a scrollable table; on failure the provider's raw error payload and any partial rows
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the aggregator, providing non-blocking status reporting during fetches.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, l, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
