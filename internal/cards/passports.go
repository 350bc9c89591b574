package cards

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/ledger"
)

var passportPattern = regexp.MustCompile(`^\d{10}$`)

// AddPassport registers a passport number. Admin only.
func (s *Service) AddPassport(ctx context.Context, actorID, number string, verified bool) (ledger.Passport, error) {
	number = strings.TrimSpace(number)
	if !passportPattern.MatchString(number) {
		return ledger.Passport{}, apperror.Validation("passport number must be 10 digits")
	}

	var added ledger.Passport
	err := s.repo.Update(ctx, func(st *ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		if _, exists := st.Passport(number); exists {
			return apperror.Conflict("passport %s is already registered", number)
		}
		now := s.clock.Now()
		added = ledger.Passport{Number: number, Verified: verified}
		if verified {
			added.VerifiedAt = &now
		}
		st.Passports = append(st.Passports, added)
		st.PrependOperation(ledger.Operation{
			ID:          s.ids.New("op"),
			Type:        ledger.OpAdminAddPassport,
			UserID:      actorID,
			Description: "Добавлен паспорт",
			Identifier:  number,
			At:          now,
		})
		return nil
	})
	if err != nil {
		return ledger.Passport{}, err
	}
	s.logger.Info("passport added", slog.String("actor_id", actorID), slog.Bool("verified", verified))
	return added, nil
}

// VerifyPassport marks a registered passport as verified. Admin only.
func (s *Service) VerifyPassport(ctx context.Context, actorID, number string) (ledger.Passport, error) {
	var verified ledger.Passport
	err := s.repo.Update(ctx, func(st *ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		p, ok := st.Passport(number)
		if !ok {
			return apperror.NotFound("passport %s not found", number)
		}
		if !p.Verified {
			now := s.clock.Now()
			p.Verified = true
			p.VerifiedAt = &now
		}
		verified = *p
		return nil
	})
	return verified, err
}

// RemovePassport deletes a passport from the registry. Cards already issued
// against it keep their copy of the number. Admin only.
func (s *Service) RemovePassport(ctx context.Context, actorID, number string) error {
	number = strings.TrimSpace(number)
	return s.repo.Update(ctx, func(st *ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		idx := -1
		for i := range st.Passports {
			if st.Passports[i].Number == number {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperror.NotFound("passport %s not found", number)
		}
		st.Passports = append(st.Passports[:idx], st.Passports[idx+1:]...)
		st.PrependOperation(ledger.Operation{
			ID:          s.ids.New("op"),
			Type:        ledger.OpAdminRemovePassport,
			UserID:      actorID,
			Description: "Удалён паспорт",
			Identifier:  number,
			At:          s.clock.Now(),
		})
		return nil
	})
}

// ListPassports returns the registry. Admin only.
func (s *Service) ListPassports(ctx context.Context, actorID string) ([]ledger.Passport, error) {
	var passports []ledger.Passport
	err := s.repo.View(ctx, func(st ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		passports = st.Passports
		return nil
	})
	return passports, err
}
