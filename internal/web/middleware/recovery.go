package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rileyL6122428/FriEnds-backend/internal/middleware"
)

// Recovery creates panic recovery middleware for the lobby board.
// Returns an HTML error page on panic.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, webPanicHandler)
}

func webPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Error | FriEnds</title></head>
<body>
<h1 id="error-title">Something went wrong</h1>
<p>Please try again later.</p>
<p><a href="/">Return to rooms</a></p>
</body>
</html>`))
}
