// Package session holds the single global sign-in slot.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/ledger"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// Manager issues signed session tokens and keeps the current one in the
// repository's session slot. Establishing a session replaces any previous one.
type Manager struct {
	repo   *ledger.Repository
	secret []byte
	clock  clock.Clock
	ids    idgen.Generator
}

// NewManager constructs a session manager signing tokens with secret.
func NewManager(repo *ledger.Repository, secret []byte, clk clock.Clock, ids idgen.Generator) *Manager {
	return &Manager{repo: repo, secret: secret, clock: clk, ids: ids}
}

// Establish binds the slot to userID.
func (m *Manager) Establish(ctx context.Context, userID string) (ledger.Session, error) {
	now := m.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
		ID:       m.ids.New("sess"),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return ledger.Session{}, fmt.Errorf("sign session token: %w", err)
	}

	s := ledger.Session{UserID: userID, Token: token, LoggedInAt: now}
	if err := m.repo.SaveSession(ctx, s); err != nil {
		return ledger.Session{}, err
	}
	return s, nil
}

// Current returns the slot or ErrNoSession.
func (m *Manager) Current(ctx context.Context) (ledger.Session, error) {
	s, err := m.repo.LoadSession(ctx)
	if err != nil {
		return ledger.Session{}, err
	}
	if s == nil || s.UserID == "" {
		return ledger.Session{}, ErrNoSession
	}
	return *s, nil
}

// Destroy empties the slot.
func (m *Manager) Destroy(ctx context.Context) error {
	return m.repo.ClearSession(ctx)
}

// DestroyIf ends the session bound to token when stale reports true for the
// current collections. A slot that already holds another token is kept, and
// stale is not consulted for it.
func (m *Manager) DestroyIf(ctx context.Context, token string, stale func(ledger.State) bool) (bool, error) {
	return m.repo.ClearSessionIf(ctx, func(st ledger.State, s ledger.Session) bool {
		return s.Token == token && stale(st)
	})
}

// Verify checks the token signature and that it is the token currently held
// in the slot. It returns the bound user id.
func (m *Manager) Verify(ctx context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.clock.Now))
	if err != nil || !parsed.Valid {
		return "", apperror.Auth("invalid session token")
	}

	current, err := m.Current(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", apperror.Auth("session has ended")
	}
	if err != nil {
		return "", err
	}
	if current.Token != token || current.UserID != claims.Subject {
		return "", apperror.Auth("session has been replaced")
	}
	return current.UserID, nil
}
