package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/duelgame/internal/api/apierr"
	"github.com/mcoot/duelgame/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Plain requests get a JSON 500; an upgraded websocket connection is owned
// by its handler by then, so nothing is written.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger.With(slog.String("component", "api")), apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, r *http.Request, _ any) {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
