// Package templates holds the HTML pages of the lobby board and the
// fragments pushed to spectators
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

//go:embed *.html
var files embed.FS

// Page names
const (
	PageLobby = "lobby"
	PageRoom  = "room"
	PageError = "error"
)

// Fragment names
const (
	FragmentRoomList = "room-list"
	FragmentBoard    = "board"
)

// Pages is the set of parsed pages, each wrapped in the base layout, plus
// the fragments they embed
type Pages struct {
	pages     map[string]*template.Template
	fragments map[string]*template.Template
}

// Parse parses every page against the base layout
func Parse() (*Pages, error) {
	base, err := template.ParseFS(files, "base.html", "fragments.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	shared, err := template.ParseFS(files, "fragments.html")
	if err != nil {
		return nil, fmt.Errorf("parse fragments: %w", err)
	}

	p := &Pages{
		pages:     make(map[string]*template.Template),
		fragments: make(map[string]*template.Template),
	}
	for _, name := range []string{FragmentRoomList, FragmentBoard} {
		t := shared.Lookup(name)
		if t == nil {
			return nil, fmt.Errorf("missing fragment %s", name)
		}
		p.fragments[name] = t
	}
	for _, name := range []string{PageLobby, PageRoom, PageError} {
		layout, err := base.Clone()
		if err != nil {
			return nil, err
		}
		page, err := layout.ParseFS(files, name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		p.pages[name] = page
	}
	return p, nil
}

// MustParse is like Parse but panics on error
func MustParse() *Pages {
	p, err := Parse()
	if err != nil {
		panic(err)
	}
	return p
}

// Lobby is the room listing page
func (p *Pages) Lobby(data LobbyPage) templ.Component {
	return p.page(PageLobby, data)
}

// Room is the page for one room and its board
func (p *Pages) Room(data RoomPage) templ.Component {
	return p.page(PageRoom, data)
}

// Error is the page shown when a request fails
func (p *Pages) Error(data ErrorPage) templ.Component {
	return p.page(PageError, data)
}

// RoomList is the room table without the layout
func (p *Pages) RoomList(data LobbyPage) templ.Component {
	return templ.FromGoHTML(p.fragments[FragmentRoomList], data)
}

// Board is a room's game state and board without the layout
func (p *Pages) Board(data RoomPage) templ.Component {
	return templ.FromGoHTML(p.fragments[FragmentBoard], data)
}

func (p *Pages) page(name string, data any) templ.Component {
	t := p.pages[name]
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return t.ExecuteTemplate(w, "base", data)
	})
}
