package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/goldwin-storefront/internal/domain/cart"
)

// SessionHeader lets non-browser clients pick their cart session explicitly.
const SessionHeader = "X-Cart-Session"

const maxSessionLen = 64

func validSession(id string) bool {
	if id == "" || len(id) > maxSessionLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// session resolves the caller's cart session from the header, then the
// cookie. When neither is valid a new session is issued as a cookie.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(SessionHeader); validSession(id) {
		return id
	}
	if c, err := r.Cookie(h.cfg.SessionCookie); err == nil && validSession(c.Value) {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// store binds a cart.Store to the caller's session.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) *cart.Store {
	id := h.session(w, r)
	lg := zctx.From(r.Context()).With(zap.String("session", id))
	return cart.NewStore(h.storage, cart.SessionKey(id), lg)
}
