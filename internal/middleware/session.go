package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/config"
	"github.com/patrickwarner/bannerrotator/internal/db"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
	"github.com/patrickwarner/bannerrotator/internal/token"
)

// SessionStore loads and persists viewing history. *db.RedisStore implements it.
type SessionStore interface {
	LoadSession(ctx context.Context, id string, opts db.SessionOptions) (*models.SessionState, error)
	SaveSession(ctx context.Context, state *models.SessionState, opts db.SessionOptions) error
}

type sessionKey struct{}

// Sessions attaches a visitor session to each request. The session ID lives
// in a cookie, signed when a secret is configured, and the state is saved
// after the handler returns if it was modified.
type Sessions struct {
	Store   SessionStore
	Config  config.SessionConfig
	Logger  *zap.Logger
	Metrics observability.MetricsRegistry
}

func (s *Sessions) options() db.SessionOptions {
	return db.SessionOptions{
		LastViewKey:  s.Config.LastViewKey,
		PermanentKey: s.Config.PermanentKey,
		TTL:          s.Config.TTL,
	}
}

// Middleware wraps next with session handling. Without a store requests
// pass through with no session.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	if s == nil || s.Store == nil {
		return next
	}
	base := s.Logger
	if base == nil {
		base = zap.L()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := LoggerFromRequest(r, base)
		id := s.sessionID(r)
		if id == "" {
			id = uuid.NewString()
			s.setCookie(w, id, logger)
		}

		state, err := s.Store.LoadSession(r.Context(), id, s.options())
		if err != nil {
			logger.Warn("session load failed, continuing with empty history", zap.Error(err))
			state = models.NewSessionState(id)
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), state)))

		if !state.Dirty() {
			return
		}
		// The response is already written; persist on a context that
		// survives client disconnects.
		if err := s.Store.SaveSession(context.WithoutCancel(r.Context()), state, s.options()); err != nil {
			logger.Error("session save failed", zap.Error(err))
			if s.Metrics != nil {
				s.Metrics.IncrementSessionPersistErrors()
			}
		}
	})
}

// sessionID extracts a valid session ID from the request cookie or "".
func (s *Sessions) sessionID(r *http.Request) string {
	c, err := r.Cookie(s.Config.CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	if s.Config.Secret == "" {
		if _, err := uuid.Parse(c.Value); err != nil {
			return ""
		}
		return c.Value
	}
	id, err := token.Verify(c.Value, []byte(s.Config.Secret), s.Config.TTL)
	if err != nil {
		return ""
	}
	return id
}

func (s *Sessions) setCookie(w http.ResponseWriter, id string, logger *zap.Logger) {
	value := id
	if s.Config.Secret != "" {
		signed, err := token.Sign(id, []byte(s.Config.Secret))
		if err != nil {
			logger.Error("sign session cookie", zap.Error(err))
			return
		}
		value = signed
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.Config.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.Config.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithSession returns a copy of ctx carrying state.
func WithSession(ctx context.Context, state *models.SessionState) context.Context {
	return context.WithValue(ctx, sessionKey{}, state)
}

// SessionFromContext returns the request's session or nil.
func SessionFromContext(ctx context.Context) *models.SessionState {
	state, _ := ctx.Value(sessionKey{}).(*models.SessionState)
	return state
}
