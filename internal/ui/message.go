package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/topspot/internal/models"
	"github.com/desertthunder/topspot/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgFetchComplete
	MsgLoggedOut
)

type fetchResult struct {
	table *models.ResultTable
	err   error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// fetchCompleteMsg is the constructor for [MsgFetchComplete]
func fetchCompleteMsg(result fetchResult) Msg {
	return Msg{kind: MsgFetchComplete, data: result}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}
