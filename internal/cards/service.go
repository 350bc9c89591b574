// Package cards issues payment cards against verified passports and manages
// the passport registry.
package cards

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/metrics"
)

const (
	cardValidityYears = 3
	maxNumberAttempts = 32
)

// DigitSource supplies random digits for card numbers and CVVs.
// *rand.Rand from math/rand/v2 satisfies it.
type DigitSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Policy holds the configurable issuance rules.
type Policy struct {
	// SingleActiveCard rejects issuance while the user holds an active card.
	SingleActiveCard bool
}

// Service issues and manages cards.
type Service struct {
	repo   *ledger.Repository
	clock  clock.Clock
	ids    idgen.Generator
	digits DigitSource
	policy Policy
	logger *slog.Logger
}

// NewService constructs a card service. A nil digits source uses math/rand/v2.
// The source is only used inside repository updates, which are serialised,
// so it does not need to be safe for concurrent use.
func NewService(repo *ledger.Repository, clk clock.Clock, ids idgen.Generator, digits DigitSource, policy Policy, logger *slog.Logger) *Service {
	if digits == nil {
		digits = globalSource{}
	}
	return &Service{repo: repo, clock: clk, ids: ids, digits: digits, policy: policy, logger: logger}
}

// IssueInput describes a card request.
type IssueInput struct {
	UserID         string
	PassportNumber string
	CardType       string
}

// IssueCard issues a new card of the requested type to the user.
func (s *Service) IssueCard(ctx context.Context, in IssueInput) (ledger.Card, error) {
	in.PassportNumber = strings.TrimSpace(in.PassportNumber)

	var issued ledger.Card
	err := s.repo.Update(ctx, func(st *ledger.State) error {
		if st.Settings.Maintenance {
			return apperror.New(apperror.KindUnavailable, "card issuance is paused for maintenance")
		}
		product, ok := LookupProduct(in.CardType)
		if !ok {
			return apperror.Validation("unknown card type %q", in.CardType)
		}
		passport, ok := st.Passport(in.PassportNumber)
		if !ok || !passport.Verified {
			return apperror.New(apperror.KindNotVerified, "passport %s is not registered or not verified", in.PassportNumber)
		}
		user, ok := st.UserByID(in.UserID)
		if !ok {
			return apperror.NotFound("user %s not found", in.UserID)
		}
		if s.policy.SingleActiveCard {
			if active, has := user.ActiveCard(); has {
				return apperror.Conflict("user already holds active card %s", active.ID)
			}
		}
		fee := st.Settings.CardIssueFee
		if user.Balance < fee {
			return apperror.New(apperror.KindInsufficientFunds, "card issue fee %s exceeds balance %s", fee, user.Balance)
		}

		number, err := s.uniqueNumber(st, product)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		user.Balance -= fee
		issued = ledger.Card{
			ID:             s.ids.New("card"),
			Number:         number,
			Type:           product.Type,
			Balance:        user.Balance,
			Currency:       st.Settings.Currency,
			IssuedAt:       now,
			Expiry:         now.AddDate(cardValidityYears, 0, 0),
			CVV:            s.randomDigits(3),
			PassportNumber: passport.Number,
			Status:         ledger.StatusActive,
		}
		user.Cards = append(user.Cards, issued)

		if passport.UserID == "" {
			passport.UserID = user.ID
		}

		st.PrependOperation(ledger.Operation{
			ID:          s.ids.New("op"),
			Type:        ledger.OpCardIssued,
			UserID:      user.ID,
			Amount:      fee,
			Description: "Выпуск карты " + product.Type,
			Identifier:  maskNumber(number),
			At:          now,
		})
		return nil
	})
	if err != nil {
		return ledger.Card{}, err
	}

	metrics.RecordCardIssued(issued.Type)
	s.logger.Info("card issued",
		slog.String("user_id", in.UserID),
		slog.String("card_id", issued.ID),
		slog.String("type", issued.Type),
	)
	return issued, nil
}

// uniqueNumber draws BIN + random digits + Luhn check digit until the number
// is not held by any user.
func (s *Service) uniqueNumber(st *ledger.State, product Product) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		payload := product.BIN + s.randomDigits(randomDigits)
		number := payload + string(CheckDigit(payload))
		if !st.CardNumberTaken(number) {
			return number, nil
		}
	}
	return "", apperror.Conflict("no free card number for BIN %s after %d attempts", product.BIN, maxNumberAttempts)
}

func (s *Service) randomDigits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + s.digits.IntN(10)))
	}
	return b.String()
}

func maskNumber(number string) string {
	if len(number) < 4 {
		return number
	}
	return "•••• " + number[len(number)-4:]
}

// ListCards returns the cards held by userID.
func (s *Service) ListCards(ctx context.Context, userID string) ([]ledger.Card, error) {
	var cards []ledger.Card
	err := s.repo.View(ctx, func(st ledger.State) error {
		u, ok := st.UserByID(userID)
		if !ok {
			return apperror.NotFound("user %s not found", userID)
		}
		cards = u.Cards
		return nil
	})
	return cards, err
}

// BlockCard blocks one of the user's own cards.
func (s *Service) BlockCard(ctx context.Context, userID, cardID string) (ledger.Card, error) {
	var blocked ledger.Card
	err := s.repo.Update(ctx, func(st *ledger.State) error {
		u, ok := st.UserByID(userID)
		if !ok {
			return apperror.NotFound("user %s not found", userID)
		}
		for i := range u.Cards {
			if u.Cards[i].ID == cardID {
				u.Cards[i].Status = ledger.StatusBlocked
				blocked = u.Cards[i]
				return nil
			}
		}
		return apperror.NotFound("card %s not found", cardID)
	})
	return blocked, err
}
