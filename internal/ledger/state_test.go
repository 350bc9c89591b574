package ledger

import (
	"errors"
	"testing"

	"github.com/congo-pay/abank/internal/apperror"
)

func TestStateLookups(t *testing.T) {
	admin := testUser("admin_1", "admin@abank.ru", "+7 (999) 000-00-00", 0)
	admin.Role = RoleAdmin
	ivan := testUser("user_1", "ivan@example.com", "+7 (999) 123-45-67", 100)
	ivan.Cards = []Card{{ID: "card_1", Number: "4276 0312 3456 7890", Status: StatusActive}}
	st := State{Users: []User{admin, ivan}, Passports: []Passport{{Number: "4500123456", Verified: true}}}

	if u, ok := st.UserByEmail("  IVAN@example.com "); !ok || u.ID != "user_1" {
		t.Fatalf("email lookup failed: %+v %v", u, ok)
	}
	if u, ok := st.UserByPhone("+7 (999) 123-45-67"); !ok || u.ID != "user_1" {
		t.Fatalf("phone lookup failed")
	}
	if _, ok := st.UserByPhone("79991234567"); ok {
		t.Fatalf("phone lookup must be exact")
	}
	if u, ok := st.UserByCardNumber("4276031234567890"); !ok || u.ID != "user_1" {
		t.Fatalf("card lookup should ignore whitespace")
	}
	if _, ok := st.UserByID(""); ok {
		t.Fatalf("empty id must not match")
	}
	if _, ok := st.Passport("4500123456"); !ok {
		t.Fatalf("passport lookup failed")
	}
	if _, ok := st.Passport("4500000000"); ok {
		t.Fatalf("unknown passport matched")
	}
	if got := st.TotalBalance(); got != 100 {
		t.Fatalf("expected total 100, got %d", got)
	}
}

func TestUserByIDReturnsMutablePointer(t *testing.T) {
	st := State{Users: []User{testUser("user_1", "a@x.com", "+7 (999) 111-11-11", 100)}}
	u, _ := st.UserByID("user_1")
	u.Balance = 5
	if st.Users[0].Balance != 5 {
		t.Fatalf("expected mutation through pointer")
	}
}

func TestRequireAdmin(t *testing.T) {
	admin := testUser("admin_1", "admin@abank.ru", "+7 (999) 000-00-00", 0)
	admin.Role = RoleAdmin
	blockedAdmin := testUser("admin_2", "b@abank.ru", "+7 (999) 000-00-01", 0)
	blockedAdmin.Role = RoleAdmin
	blockedAdmin.Status = StatusBlocked
	st := State{Users: []User{admin, blockedAdmin, testUser("user_1", "a@x.com", "+7 (999) 111-11-11", 0)}}

	if err := st.RequireAdmin("admin_1"); err != nil {
		t.Fatalf("expected admin to pass: %v", err)
	}
	for _, id := range []string{"admin_2", "user_1", "missing"} {
		if err := st.RequireAdmin(id); !errors.Is(err, apperror.ErrForbidden) {
			t.Fatalf("%s: expected forbidden, got %v", id, err)
		}
	}
}
