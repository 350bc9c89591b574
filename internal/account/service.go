// Package account manages customers: registration, sign-in, the current
// session user and the administrative operations on users and settings.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/metrics"
	"github.com/congo-pay/abank/internal/money"
	"github.com/congo-pay/abank/internal/session"
)

// ErrNoSession is returned by CurrentUser when nobody is signed in.
var ErrNoSession = session.ErrNoSession

// Config tunes the account service.
type Config struct {
	BcryptCost int
}

// Service manages the account lifecycle.
type Service struct {
	repo     *ledger.Repository
	sessions *session.Manager
	clock    clock.Clock
	ids      idgen.Generator
	validate *validator.Validate
	logger   *slog.Logger
	cost     int
}

// NewService creates a new account service.
func NewService(repo *ledger.Repository, sessions *session.Manager, clk clock.Clock, ids idgen.Generator, logger *slog.Logger, cfg Config) *Service {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		clock:    clk,
		ids:      ids,
		validate: newValidator(),
		logger:   logger,
		cost:     cost,
	}
}

const maxPasswordBytes = 72

// RegisterInput is the self-service sign-up form.
type RegisterInput struct {
	Name     string `validate:"required,max=100"`
	LastName string `validate:"max=100"`
	Email    string `validate:"required,email,max=254"`
	Phone    string `validate:"required,bankphone"`
	Password string `validate:"required,min=8,max=72"`
}

// Register creates an active user credited with the welcome bonus.
func (s *Service) Register(ctx context.Context, in RegisterInput) (ledger.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = ledger.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.validate.Struct(in); err != nil {
		return ledger.User{}, validationError(err)
	}
	// bcrypt counts bytes, the validator counts runes.
	if len(in.Password) > maxPasswordBytes {
		return ledger.User{}, apperror.Validation("password must not exceed %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return ledger.User{}, apperror.Validation("password must not exceed %d bytes", maxPasswordBytes)
	}
	if err != nil {
		return ledger.User{}, fmt.Errorf("hash password: %w", err)
	}

	var created ledger.User
	err = s.repo.Update(ctx, func(st *ledger.State) error {
		if _, taken := st.UserByEmail(in.Email); taken {
			return apperror.Conflict("email %s is already registered", in.Email)
		}
		if _, taken := st.UserByPhone(in.Phone); taken {
			return apperror.Conflict("phone %s is already registered", in.Phone)
		}

		now := s.clock.Now()
		created = ledger.User{
			ID:           s.ids.New("user"),
			Name:         in.Name,
			LastName:     in.LastName,
			Email:        in.Email,
			Phone:        in.Phone,
			PasswordHash: string(hash),
			Balance:      st.Settings.WelcomeBonus,
			Role:         ledger.RoleUser,
			Cards:        []ledger.Card{},
			Status:       ledger.StatusActive,
			CreatedAt:    now,
		}
		st.Users = append(st.Users, created)

		if bonus := st.Settings.WelcomeBonus; bonus > 0 {
			st.PrependOperation(ledger.Operation{
				ID:          s.ids.New("op"),
				Type:        ledger.OpWelcomeBonus,
				UserID:      created.ID,
				ToID:        created.ID,
				Amount:      bonus,
				Description: "Приветственный бонус",
				At:          now,
			})
		}
		return nil
	})
	metrics.RecordRegistration(err)
	if err != nil {
		return ledger.User{}, err
	}

	s.logger.Info("account registered", slog.String("user_id", created.ID), slog.String("email", created.Email))
	return created, nil
}

// Authenticate verifies credentials, records the login time and establishes
// the session. Unknown email, wrong password and inactive accounts are all
// reported as the same AuthError.
func (s *Service) Authenticate(ctx context.Context, email, password string) (ledger.User, ledger.Session, error) {
	email = ledger.NormalizeEmail(email)

	var candidate ledger.User
	err := s.repo.View(ctx, func(st ledger.State) error {
		u, ok := st.UserByEmail(email)
		if !ok || !u.IsActive() {
			return apperror.Auth("invalid credentials")
		}
		candidate = *u
		return nil
	})
	if err != nil {
		return ledger.User{}, ledger.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(candidate.PasswordHash), []byte(password)); err != nil {
		return ledger.User{}, ledger.Session{}, apperror.Auth("invalid credentials")
	}

	var user ledger.User
	err = s.repo.Update(ctx, func(st *ledger.State) error {
		u, ok := st.UserByID(candidate.ID)
		if !ok || !u.IsActive() || u.PasswordHash != candidate.PasswordHash {
			return apperror.Auth("invalid credentials")
		}
		now := s.clock.Now()
		u.LastLogin = &now
		user = *u
		return nil
	})
	if err != nil {
		return ledger.User{}, ledger.Session{}, err
	}

	sess, err := s.sessions.Establish(ctx, user.ID)
	if err != nil {
		return ledger.User{}, ledger.Session{}, err
	}
	s.logger.Info("account authenticated", slog.String("user_id", user.ID))
	return user, sess, nil
}

// CurrentUser resolves the session slot. A session pointing at a missing or
// inactive user is destroyed and reported as ErrNoSession.
func (s *Service) CurrentUser(ctx context.Context) (ledger.User, error) {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		return ledger.User{}, err
	}
	return s.resolveSessionUser(ctx, sess.UserID, sess.Token)
}

// UserForToken verifies token against the session slot and resolves its user.
func (s *Service) UserForToken(ctx context.Context, token string) (ledger.User, error) {
	userID, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return ledger.User{}, err
	}
	return s.resolveSessionUser(ctx, userID, token)
}

// resolveSessionUser checks the user and clears a stale slot under one
// repository lock, so a login landing in between keeps its session.
func (s *Service) resolveSessionUser(ctx context.Context, userID, token string) (ledger.User, error) {
	var user ledger.User
	var found bool
	cleared, err := s.sessions.DestroyIf(ctx, token, func(st ledger.State) bool {
		if u, ok := st.UserByID(userID); ok && u.IsActive() {
			user, found = *u, true
			return false
		}
		return true
	})
	if err != nil {
		return ledger.User{}, err
	}
	if cleared {
		s.logger.Info("session invalidated", slog.String("user_id", userID))
	}
	if !found {
		return ledger.User{}, ErrNoSession
	}
	return user, nil
}

// Logout destroys the session.
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Destroy(ctx)
}

// User returns the user with id.
func (s *Service) User(ctx context.Context, id string) (ledger.User, error) {
	var user ledger.User
	err := s.repo.View(ctx, func(st ledger.State) error {
		u, ok := st.UserByID(id)
		if !ok {
			return apperror.NotFound("user %s not found", id)
		}
		user = *u
		return nil
	})
	return user, err
}

// Balance returns the current balance of the user.
func (s *Service) Balance(ctx context.Context, id string) (money.Amount, error) {
	u, err := s.User(ctx, id)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

// CreditAdmin lets an admin top up a user's balance.
func (s *Service) CreditAdmin(ctx context.Context, actorID, userID string, amount money.Amount) (ledger.User, error) {
	if !amount.IsPositive() {
		return ledger.User{}, apperror.New(apperror.KindInvalidAmount, "credit amount must be positive")
	}

	var credited ledger.User
	err := s.repo.Update(ctx, func(st *ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		u, ok := st.UserByID(userID)
		if !ok {
			return apperror.NotFound("user %s not found", userID)
		}
		balance, ok := u.Balance.Add(amount)
		if !ok {
			return apperror.New(apperror.KindInvalidAmount, "credit of %s overflows the balance of %s", amount, userID)
		}
		u.Balance = balance
		credited = *u
		st.PrependOperation(ledger.Operation{
			ID:          s.ids.New("op"),
			Type:        ledger.OpAdminCredit,
			UserID:      userID,
			ToID:        userID,
			Amount:      amount,
			Description: "Пополнение администратором",
			At:          s.clock.Now(),
		})
		return nil
	})
	if err != nil {
		return ledger.User{}, err
	}

	s.logger.Info("admin credit",
		slog.String("actor_id", actorID),
		slog.String("user_id", userID),
		slog.String("amount", amount.String()),
	)
	return credited, nil
}

// ListUsers returns every user to an admin.
func (s *Service) ListUsers(ctx context.Context, actorID string) ([]ledger.User, error) {
	var users []ledger.User
	err := s.repo.View(ctx, func(st ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		users = st.Users
		return nil
	})
	return users, err
}

// SetUserStatus blocks or re-activates a user. Admins cannot change their own status.
func (s *Service) SetUserStatus(ctx context.Context, actorID, userID string, status ledger.Status) (ledger.User, error) {
	if status != ledger.StatusActive && status != ledger.StatusBlocked {
		return ledger.User{}, apperror.Validation("unknown status %q", status)
	}
	if actorID == userID {
		return ledger.User{}, apperror.Validation("administrators cannot change their own status")
	}

	var updated ledger.User
	err := s.repo.Update(ctx, func(st *ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		u, ok := st.UserByID(userID)
		if !ok {
			return apperror.NotFound("user %s not found", userID)
		}
		u.Status = status
		updated = *u
		return nil
	})
	return updated, err
}

// Settings returns the process-wide settings.
func (s *Service) Settings(ctx context.Context) (ledger.Settings, error) {
	return s.repo.LoadSettings(ctx)
}

// UpdateSettings replaces the settings. Amounts must not be negative.
func (s *Service) UpdateSettings(ctx context.Context, actorID string, settings ledger.Settings) (ledger.Settings, error) {
	settings.Currency = strings.ToUpper(strings.TrimSpace(settings.Currency))
	switch {
	case settings.TransferLimit <= 0:
		return ledger.Settings{}, apperror.Validation("transfer limit must be positive")
	case settings.WelcomeBonus < 0, settings.CardIssueFee < 0:
		return ledger.Settings{}, apperror.Validation("amounts must not be negative")
	case len(settings.Currency) != 3:
		return ledger.Settings{}, apperror.Validation("currency must be a three-letter code")
	}

	err := s.repo.Update(ctx, func(st *ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		st.Settings = settings
		return nil
	})
	if err != nil {
		return ledger.Settings{}, err
	}
	s.logger.Info("settings updated", slog.String("actor_id", actorID), slog.Bool("maintenance", settings.Maintenance))
	return settings, nil
}

// IsNoSession reports whether err means nobody is signed in.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession)
}
