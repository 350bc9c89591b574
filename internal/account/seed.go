package account

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/money"
)

// Demo credentials installed by SeedDemo.
const (
	DemoAdminID        = "admin_001"
	DemoAdminEmail     = "admin@abank.ru"
	DemoAdminPassword  = "Admin123!"
	DemoUserID         = "user_001"
	DemoUserEmail      = "ivan@example.com"
	DemoUserPassword   = "12345678"
	DemoCardNumber     = "4276031234567893"
	DemoPassportLinked = "4500123456"
	DemoPassportFree   = "4500987654"
)

// SeedDemo installs the demo admin, the demo customer with one card and two
// verified passports. It only runs against a store that was never seeded.
func (s *Service) SeedDemo(ctx context.Context) (bool, error) {
	ran, err := s.repo.Bootstrap(ctx, func(st *ledger.State) error {
		adminHash, err := bcrypt.GenerateFromPassword([]byte(DemoAdminPassword), s.cost)
		if err != nil {
			return fmt.Errorf("hash demo admin password: %w", err)
		}
		userHash, err := bcrypt.GenerateFromPassword([]byte(DemoUserPassword), s.cost)
		if err != nil {
			return fmt.Errorf("hash demo user password: %w", err)
		}

		now := s.clock.Now()
		if _, exists := st.UserByID(DemoAdminID); !exists {
			st.Users = append(st.Users, ledger.User{
				ID:           DemoAdminID,
				Name:         "Администратор",
				LastName:     "Системы",
				Email:        DemoAdminEmail,
				Phone:        "+7 (999) 000-00-00",
				PasswordHash: string(adminHash),
				Balance:      money.FromMajor(100_000),
				Role:         ledger.RoleAdmin,
				Cards:        []ledger.Card{},
				Status:       ledger.StatusActive,
				CreatedAt:    now,
			})
		}
		if _, exists := st.UserByID(DemoUserID); !exists {
			balance := money.FromMajor(15_000)
			st.Users = append(st.Users, ledger.User{
				ID:           DemoUserID,
				Name:         "Иван",
				LastName:     "Петров",
				Email:        DemoUserEmail,
				Phone:        "+7 (999) 123-45-67",
				PasswordHash: string(userHash),
				Balance:      balance,
				Role:         ledger.RoleUser,
				Cards: []ledger.Card{{
					ID:             "card_001",
					Number:         DemoCardNumber,
					Type:           "Visa Platinum",
					Balance:        balance,
					Currency:       st.Settings.Currency,
					IssuedAt:       now,
					Expiry:         now.AddDate(3, 0, 0),
					CVV:            "123",
					PassportNumber: DemoPassportLinked,
					Status:         ledger.StatusActive,
				}},
				Status:    ledger.StatusActive,
				CreatedAt: now,
			})
		}

		verifiedAt := now
		if _, exists := st.Passport(DemoPassportLinked); !exists {
			st.Passports = append(st.Passports, ledger.Passport{
				Number: DemoPassportLinked, Verified: true, UserID: DemoUserID, VerifiedAt: &verifiedAt,
			})
		}
		if _, exists := st.Passport(DemoPassportFree); !exists {
			st.Passports = append(st.Passports, ledger.Passport{
				Number: DemoPassportFree, Verified: true, VerifiedAt: &verifiedAt,
			})
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if ran {
		s.logger.Info("demo data installed", slog.String("admin", DemoAdminEmail), slog.String("user", DemoUserEmail))
	}
	return ran, nil
}
