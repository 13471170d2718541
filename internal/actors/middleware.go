package actors

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/orderdesk/orderdesk/internal/platform/httpx"
	"github.com/orderdesk/orderdesk/internal/shared"
)

// Middleware resolves the session user into an Actor and stores it in the
// request context. Requests without a valid, active actor are rejected.
type Middleware struct {
	Repo   Repository
	Logger *slog.Logger
}

// Require authenticates the request and injects the actor.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(sess.User())
		if raw == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("actors parse user id", slog.String("value", raw))
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		actor, err := m.Repo.Get(r.Context(), id)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		if !actor.IsActive {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}
