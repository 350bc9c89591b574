package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/kvstore"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/logging"
)

func newManager(secret string) (*Manager, *ledger.Repository) {
	repo := ledger.NewRepository(kvstore.NewMemory(), logging.Discard())
	clk := clock.NewManual(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewManager(repo, []byte(secret), clk, idgen.NewSequence()), repo
}

func TestEstablishAndVerify(t *testing.T) {
	m, _ := newManager("test-secret-0123456789")
	ctx := context.Background()

	s, err := m.Establish(ctx, "user_001")
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	uid, err := m.Verify(ctx, s.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if uid != "user_001" {
		t.Fatalf("expected user_001, got %s", uid)
	}
}

func TestNewSessionReplacesPrevious(t *testing.T) {
	m, _ := newManager("test-secret-0123456789")
	ctx := context.Background()

	first, _ := m.Establish(ctx, "user_001")
	if _, err := m.Establish(ctx, "admin_001"); err != nil {
		t.Fatalf("establish: %v", err)
	}

	if _, err := m.Verify(ctx, first.Token); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("expected replaced token to fail, got %v", err)
	}
	current, err := m.Current(ctx)
	if err != nil || current.UserID != "admin_001" {
		t.Fatalf("unexpected current session %+v %v", current, err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	m, _ := newManager("test-secret-0123456789")
	other, _ := newManager("another-secret-987654")
	ctx := context.Background()

	forged, _ := other.Establish(ctx, "admin_001")
	if _, err := m.Establish(ctx, "user_001"); err != nil {
		t.Fatalf("establish: %v", err)
	}
	if _, err := m.Verify(ctx, forged.Token); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if _, err := m.Verify(ctx, "not-a-token"); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("expected auth error for garbage, got %v", err)
	}
}

func TestDestroy(t *testing.T) {
	m, _ := newManager("test-secret-0123456789")
	ctx := context.Background()

	s, _ := m.Establish(ctx, "user_001")
	if err := m.Destroy(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := m.Current(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
	if _, err := m.Verify(ctx, s.Token); !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("expected auth error after logout, got %v", err)
	}
}

func TestDestroyIfOnlyClearsMatchingToken(t *testing.T) {
	m, _ := newManager("test-secret-0123456789")
	ctx := context.Background()
	always := func(ledger.State) bool { return true }

	first, _ := m.Establish(ctx, "user_001")
	second, err := m.Establish(ctx, "admin_001")
	if err != nil {
		t.Fatalf("establish: %v", err)
	}

	cleared, err := m.DestroyIf(ctx, first.Token, always)
	if err != nil || cleared {
		t.Fatalf("replaced token must not clear the slot: cleared=%v err=%v", cleared, err)
	}
	if current, err := m.Current(ctx); err != nil || current.Token != second.Token {
		t.Fatalf("unexpected current session %+v %v", current, err)
	}

	cleared, err = m.DestroyIf(ctx, second.Token, func(ledger.State) bool { return false })
	if err != nil || cleared {
		t.Fatalf("fresh user must keep the slot: cleared=%v err=%v", cleared, err)
	}

	cleared, err = m.DestroyIf(ctx, second.Token, always)
	if err != nil || !cleared {
		t.Fatalf("expected slot to be cleared: cleared=%v err=%v", cleared, err)
	}
	if _, err := m.Current(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
}
