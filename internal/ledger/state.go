package ledger

import (
	"strings"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/money"
)

// NormalizeEmail is the canonical form emails are stored and matched in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeCardNumber strips all whitespace from a card number.
func NormalizeCardNumber(number string) string {
	return strings.Join(strings.Fields(number), "")
}

// UserByID returns a pointer into s.Users, or false when no user has id.
// The pointer is valid until s.Users is reassigned.
func (s *State) UserByID(id string) (*User, bool) {
	if id == "" {
		return nil, false
	}
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i], true
		}
	}
	return nil, false
}

// UserByEmail matches case-insensitively on the trimmed address.
func (s *State) UserByEmail(email string) (*User, bool) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, false
	}
	for i := range s.Users {
		if s.Users[i].Email == email {
			return &s.Users[i], true
		}
	}
	return nil, false
}

// UserByPhone matches the formatted phone exactly.
func (s *State) UserByPhone(phone string) (*User, bool) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, false
	}
	for i := range s.Users {
		if s.Users[i].Phone == phone {
			return &s.Users[i], true
		}
	}
	return nil, false
}

// UserByCardNumber finds the owner of any card with number, ignoring whitespace.
func (s *State) UserByCardNumber(number string) (*User, bool) {
	number = NormalizeCardNumber(number)
	if number == "" {
		return nil, false
	}
	for i := range s.Users {
		for _, c := range s.Users[i].Cards {
			if NormalizeCardNumber(c.Number) == number {
				return &s.Users[i], true
			}
		}
	}
	return nil, false
}

// CardNumberTaken reports whether any user already holds number.
func (s *State) CardNumberTaken(number string) bool {
	_, taken := s.UserByCardNumber(number)
	return taken
}

// Passport returns a pointer into s.Passports, or false when unknown.
func (s *State) Passport(number string) (*Passport, bool) {
	number = strings.TrimSpace(number)
	for i := range s.Passports {
		if s.Passports[i].Number == number {
			return &s.Passports[i], true
		}
	}
	return nil, false
}

// RequireAdmin fails with a forbidden error unless actorID is an active admin.
func (s *State) RequireAdmin(actorID string) error {
	actor, ok := s.UserByID(actorID)
	if !ok || !actor.IsAdmin() || !actor.IsActive() {
		return apperror.Forbidden("user %q is not an administrator", actorID)
	}
	return nil
}

// PrependOperation records op as the newest log entry.
func (s *State) PrependOperation(op Operation) {
	s.Operations = append([]Operation{op}, s.Operations...)
}

// PrependReceipt records rc as the newest receipt.
func (s *State) PrependReceipt(rc Receipt) {
	s.Receipts = append([]Receipt{rc}, s.Receipts...)
}

// TotalBalance sums every user balance.
func (s *State) TotalBalance() money.Amount {
	var total money.Amount
	for _, u := range s.Users {
		total += u.Balance
	}
	return total
}
