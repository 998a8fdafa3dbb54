// Package session keeps the per-visitor key/value bag behind an opaque, signed cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// KeyUserID holds the logged-in user's id.
	KeyUserID = "user_id"

	defaultIssuer = "hotelbook"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidToken      = errors.New("invalid session token")
	ErrInvalidConfig     = errors.New("invalid session config")
	ErrStoreUnavailable  = errors.New("session store unavailable")
	errMissingSessionKey = errors.New("session id claim is empty")
)

// Values is the per-visitor bag.
type Values map[string]string

// Store persists bags by session id. Delete must remove the bag in one step so a
// logged-out id can never be read again.
type Store interface {
	Load(ctx context.Context, id string) (Values, error)
	Save(ctx context.Context, id string, values Values, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Config describes the cookie token.
type Config struct {
	SigningKey []byte
	Issuer     string
	TTL        time.Duration
}

// Session is a resolved bag and its id.
type Session struct {
	ID        string
	Values    Values
	ExpiresAt time.Time
}

// Get returns the value stored under key.
func (session Session) Get(key string) (string, bool) {
	value, ok := session.Values[key]
	return value, ok
}

type claims struct {
	jwt.RegisteredClaims
}

// Manager issues, resolves and destroys sessions.
type Manager struct {
	store Store
	cfg   Config
	nowFn func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(store Store, cfg Config, clock func() time.Time) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is nil", ErrInvalidConfig)
	}
	if clock == nil {
		return nil, fmt.Errorf("%w: clock is nil", ErrInvalidConfig)
	}
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: signing key is required", ErrInvalidConfig)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		cfg.Issuer = defaultIssuer
	}
	return &Manager{store: store, cfg: cfg, nowFn: clock}, nil
}

// TTL is the lifetime of new sessions.
func (manager *Manager) TTL() time.Duration {
	return manager.cfg.TTL
}

// Start stores values under a fresh id and returns the signed cookie token.
func (manager *Manager) Start(ctx context.Context, values Values) (Session, string, error) {
	now := manager.nowFn().UTC()
	session := Session{
		ID:        uuid.NewString(),
		Values:    values,
		ExpiresAt: now.Add(manager.cfg.TTL),
	}
	if err := manager.store.Save(ctx, session.ID, values, manager.cfg.TTL); err != nil {
		return Session{}, "", fmt.Errorf("save session: %w", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    manager.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	signed, err := token.SignedString(manager.cfg.SigningKey)
	if err != nil {
		_ = manager.store.Delete(ctx, session.ID)
		return Session{}, "", fmt.Errorf("sign session: %w", err)
	}
	return session, signed, nil
}

// Resolve verifies the token and loads its bag.
func (manager *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	parsed, err := manager.parse(token)
	if err != nil {
		return Session{}, err
	}
	values, err := manager.store.Load(ctx, parsed.ID)
	if err != nil {
		return Session{}, err
	}
	session := Session{ID: parsed.ID, Values: values}
	if parsed.ExpiresAt != nil {
		session.ExpiresAt = parsed.ExpiresAt.Time
	}
	return session, nil
}

// Destroy deletes the bag behind token. Unknown or expired sessions are not an error.
func (manager *Manager) Destroy(ctx context.Context, token string) error {
	parsed, err := manager.parse(token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	if err := manager.store.Delete(ctx, parsed.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (manager *Manager) parse(token string) (*claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(*jwt.Token) (interface{}, error) {
		return manager.cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(manager.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(manager.nowFn),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(parsed.ID) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, errMissingSessionKey)
	}
	return parsed, nil
}
