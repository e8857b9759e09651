package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"CollabCanvas/internal/board"
)

// Opener starts the session shown by RunApp. onChange must be called after
// every document, status or presence change; it is safe from any goroutine.
type Opener func(onChange func()) *board.Session

// RunApp opens a window on the session returned by open and blocks until it
// is closed. A non-empty shareLink is shown so others can join.
func RunApp(title, shareLink string, open Opener) {
	myApp := app.New()
	myWindow := myApp.NewWindow(title)
	myWindow.Resize(fyne.NewSize(1024, 768))

	var boardWidget *BoardWidget
	status := widget.NewLabel("Connecting…")
	session := open(func() {
		fyne.Do(func() {
			if boardWidget == nil {
				return
			}
			status.SetText(statusText(boardWidget.session))
			boardWidget.Refresh()
		})
	})
	defer session.Close()

	boardWidget = NewBoardWidget(session)
	status.SetText(statusText(session))
	toolbar := NewToolbar(myWindow, boardWidget)

	bottom := container.NewHBox(status)
	if shareLink != "" {
		link := widget.NewEntry()
		link.SetText(shareLink)
		copyLink := widget.NewButton("Copy link", func() {
			myWindow.Clipboard().SetContent(shareLink)
		})
		bottom = container.NewBorder(nil, nil, status, copyLink, link)
	}

	content := container.NewBorder(toolbar, bottom, nil, nil, boardWidget)
	myWindow.SetContent(content)
	myWindow.Canvas().Focus(boardWidget)
	myWindow.ShowAndRun()
}

func statusText(s *board.Session) string {
	if s.Client == nil {
		return "Local board"
	}
	return fmt.Sprintf("%s · %d others", s.Store.Status(), len(s.Presence.Others()))
}
