package factory

import (
	"net/http"

	"github.com/rileyL6122428/FriEnds-backend/internal/api"
	"github.com/rileyL6122428/FriEnds-backend/internal/web"
)

// Handler combines the socket endpoint, the JSON API and the lobby board
func (a *App) Handler() http.Handler {
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:      a.logger,
		Rooms:       a.Directory,
		WebSocket:   a.WebSocket,
		Connections: a.WebSocket,
	})

	webRouter := web.NewRouter(web.RouterConfig{
		Logger:      a.logger,
		Rooms:       a.Directory,
		Connections: a.WebSocket,
		Fanout:      a.Fanout,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/ws", apiRouter)
	mux.Handle("/", webRouter)
	return mux
}
