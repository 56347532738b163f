package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/kv"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

const (
	// UserKey holds the signed-in user record.
	UserKey = "rmjobsites_user"
	// DefaultSessionTTL is how long a login is remembered.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Session is the persisted user record. The JWT is opaque to the client apart from
// its expiry.
type Session struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	JWT   string `json:"jwt"`
}

// User returns the public part of the session.
func (s Session) User() storefront.User {
	return storefront.User{ID: s.ID, Email: s.Email, Admin: s.Admin}
}

// Store persists the signed-in user in the key-value backend.
type Store struct {
	kv     kv.Store
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
	parser *jwt.Parser
}

// NewStore wires the session store. A non-positive ttl takes the default.
func NewStore(store kv.Store, ttl time.Duration, logg *logger.Logger) (*Store, error) {
	if store == nil {
		return nil, errors.New("kv store required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{kv: store, ttl: ttl, logger: logg, now: time.Now, parser: jwt.NewParser()}, nil
}

// WithClock overrides the clock used for token expiry checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Save remembers the session for the configured ttl.
func (s *Store) Save(ctx context.Context, session Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session")
	}
	if err := s.kv.Set(ctx, UserKey, string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "save session")
	}
	return nil
}

// Load returns the stored session, or nil when there is none, it cannot be decoded or
// its token has expired. Expired and corrupt records are removed.
func (s *Store) Load(ctx context.Context) *Session {
	raw, err := s.kv.Get(ctx, UserKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Error(ctx, "auth.session_load_failed", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read session"))
		}
		return nil
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.JWT == "" {
		s.logger.Warn(ctx, "auth.session_corrupt")
		s.drop(ctx)
		return nil
	}
	if s.expired(session.JWT) {
		s.logger.Info(s.logger.WithUserID(ctx, session.Email), "auth.session_expired")
		s.drop(ctx)
		return nil
	}
	return &session
}

// Clear forgets the session.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, UserKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear session")
	}
	return nil
}

// Token returns the bearer token of the current session, or "" when signed out.
// It satisfies storefront.TokenSource.
func (s *Store) Token(ctx context.Context) string {
	if session := s.Load(ctx); session != nil {
		return session.JWT
	}
	return ""
}

// expired reads the exp claim without verifying the signature; the API verifies.
// Tokens that are not JWTs, or carry no exp, never expire client-side.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

func (s *Store) drop(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.logger.Error(ctx, "auth.session_clear_failed", err)
	}
}
