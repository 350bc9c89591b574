package account

import (
	"context"
	"time"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/money"
)

// UserStats is the dashboard summary of one customer.
type UserStats struct {
	Balance         money.Amount `json:"balance"`
	CardsCount      int          `json:"cardsCount"`
	ActiveCards     int          `json:"activeCards"`
	TransfersCount  int          `json:"transfersCount"`
	ReceivedCount   int          `json:"receivedCount"`
	OperationsCount int          `json:"operationsCount"`
	OperationsToday int          `json:"operationsToday"`
	TotalSent       money.Amount `json:"totalSent"`
	TotalReceived   money.Amount `json:"totalReceived"`
	LastOperationAt *time.Time   `json:"lastOperationAt,omitempty"`
}

// SystemStats is the admin overview.
type SystemStats struct {
	UsersCount        int          `json:"usersCount"`
	ActiveUsers       int          `json:"activeUsers"`
	BlockedUsers      int          `json:"blockedUsers"`
	AdminsCount       int          `json:"adminsCount"`
	CardsCount        int          `json:"cardsCount"`
	PassportsCount    int          `json:"passportsCount"`
	VerifiedPassports int          `json:"verifiedPassports"`
	OperationsCount   int          `json:"operationsCount"`
	OperationsToday   int          `json:"operationsToday"`
	TransfersCount    int          `json:"transfersCount"`
	TransfersToday    int          `json:"transfersToday"`
	TotalTransferred  money.Amount `json:"totalTransferred"`
	TotalBalance      money.Amount `json:"totalBalance"`
}

// ComputeUserStats aggregates the log for user. It does not modify its inputs.
func ComputeUserStats(user ledger.User, ops []ledger.Operation, now time.Time) UserStats {
	stats := UserStats{Balance: user.Balance, CardsCount: len(user.Cards)}
	for _, c := range user.Cards {
		if c.Status == ledger.StatusActive {
			stats.ActiveCards++
		}
	}

	for _, op := range ops {
		if !op.Involves(user.ID) {
			continue
		}
		stats.OperationsCount++
		if sameDay(op.At, now) {
			stats.OperationsToday++
		}
		if stats.LastOperationAt == nil || op.At.After(*stats.LastOperationAt) {
			at := op.At
			stats.LastOperationAt = &at
		}
		if op.Type != ledger.OpTransfer {
			continue
		}
		if op.FromID == user.ID {
			stats.TransfersCount++
			stats.TotalSent += op.Amount
		}
		if op.ToID == user.ID {
			stats.ReceivedCount++
			stats.TotalReceived += op.Amount
		}
	}
	return stats
}

// ComputeSystemStats aggregates every collection. It does not modify its inputs.
func ComputeSystemStats(users []ledger.User, passports []ledger.Passport, ops []ledger.Operation, now time.Time) SystemStats {
	stats := SystemStats{UsersCount: len(users), PassportsCount: len(passports), OperationsCount: len(ops)}

	for _, u := range users {
		switch u.Status {
		case ledger.StatusActive:
			stats.ActiveUsers++
		case ledger.StatusBlocked:
			stats.BlockedUsers++
		}
		if u.IsAdmin() {
			stats.AdminsCount++
		}
		stats.CardsCount += len(u.Cards)
		stats.TotalBalance += u.Balance
	}
	for _, p := range passports {
		if p.Verified {
			stats.VerifiedPassports++
		}
	}
	for _, op := range ops {
		today := sameDay(op.At, now)
		if today {
			stats.OperationsToday++
		}
		if op.Type == ledger.OpTransfer {
			stats.TransfersCount++
			stats.TotalTransferred += op.Amount
			if today {
				stats.TransfersToday++
			}
		}
	}
	return stats
}

// sameDay compares calendar days in the location of now.
func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// UserStats returns the dashboard summary of userID.
func (s *Service) UserStats(ctx context.Context, userID string) (UserStats, error) {
	var stats UserStats
	err := s.repo.View(ctx, func(st ledger.State) error {
		u, ok := st.UserByID(userID)
		if !ok {
			return apperror.NotFound("user %s not found", userID)
		}
		stats = ComputeUserStats(*u, st.Operations, s.clock.Now())
		return nil
	})
	return stats, err
}

// SystemStats returns the admin overview.
func (s *Service) SystemStats(ctx context.Context, actorID string) (SystemStats, error) {
	var stats SystemStats
	err := s.repo.View(ctx, func(st ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		stats = ComputeSystemStats(st.Users, st.Passports, st.Operations, s.clock.Now())
		return nil
	})
	return stats, err
}
