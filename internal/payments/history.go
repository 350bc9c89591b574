package payments

import (
	"context"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/ledger"
)

// DefaultRecentTransfers is the page size of RecentTransfers.
const DefaultRecentTransfers = 5

// History returns every operation involving userID, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]ledger.Operation, error) {
	var out []ledger.Operation
	err := s.repo.View(ctx, func(st ledger.State) error {
		for _, op := range st.Operations {
			if op.Involves(userID) {
				out = append(out, op)
			}
		}
		return nil
	})
	return out, err
}

// RecentTransfers returns up to limit transfers sent or received by userID.
// A non-positive limit uses DefaultRecentTransfers.
func (s *Service) RecentTransfers(ctx context.Context, userID string, limit int) ([]ledger.Operation, error) {
	if limit <= 0 {
		limit = DefaultRecentTransfers
	}
	out := make([]ledger.Operation, 0, limit)
	err := s.repo.View(ctx, func(st ledger.State) error {
		for _, op := range st.Operations {
			if len(out) == limit {
				break
			}
			if op.Type == ledger.OpTransfer && (op.FromID == userID || op.ToID == userID) {
				out = append(out, op)
			}
		}
		return nil
	})
	return out, err
}

// Receipts returns the receipts userID took part in, newest first.
func (s *Service) Receipts(ctx context.Context, userID string) ([]ledger.Receipt, error) {
	var out []ledger.Receipt
	err := s.repo.View(ctx, func(st ledger.State) error {
		for _, rc := range st.Receipts {
			if rc.FromID == userID || rc.ToID == userID {
				out = append(out, rc)
			}
		}
		return nil
	})
	return out, err
}

// Receipt returns one receipt visible to userID.
func (s *Service) Receipt(ctx context.Context, userID, receiptID string) (ledger.Receipt, error) {
	var out ledger.Receipt
	err := s.repo.View(ctx, func(st ledger.State) error {
		for _, rc := range st.Receipts {
			if rc.ID == receiptID && (rc.FromID == userID || rc.ToID == userID) {
				out = rc
				return nil
			}
		}
		return apperror.NotFound("receipt %s not found", receiptID)
	})
	return out, err
}

// Operations returns the whole log. Admin only.
func (s *Service) Operations(ctx context.Context, actorID string) ([]ledger.Operation, error) {
	var out []ledger.Operation
	err := s.repo.View(ctx, func(st ledger.State) error {
		if err := st.RequireAdmin(actorID); err != nil {
			return err
		}
		out = st.Operations
		return nil
	})
	return out, err
}
