package handler

import (
	"net/http"

	"github.com/rileyL6122428/FriEnds-backend/internal/api/response"
)

// ConnectionCounter reports open client connections
type ConnectionCounter interface {
	ActiveConnections() int
}

// Health returns the health check handler. counter may be nil.
func Health(counter ConnectionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := response.Health{Status: "ok"}
		if counter != nil {
			body.Connections = counter.ActiveConnections()
		}
		response.JSON(w, http.StatusOK, body)
	}
}
