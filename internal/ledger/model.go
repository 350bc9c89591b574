package ledger

import (
	"time"

	"github.com/congo-pay/abank/internal/money"
)

const (
	// MaxOperations is the retention window of the operation log.
	MaxOperations = 1000
	// MaxReceipts is the retention window of the receipt log.
	MaxReceipts = 500
)

// Role grants access to administrative operations.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Status applies to users and cards.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// User is a bank customer and the exclusive owner of its cards.
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	LastName     string       `json:"lastName"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	PasswordHash string       `json:"passwordHash"`
	Balance      money.Amount `json:"balance"`
	Role         Role         `json:"role"`
	Cards        []Card       `json:"cards"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastLogin    *time.Time   `json:"lastLogin,omitempty"`
}

// IsActive reports whether the user may sign in and transact.
func (u User) IsActive() bool { return u.Status == StatusActive }

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Public returns a copy safe to hand to clients: no password hash and no
// card security codes.
func (u User) Public() User {
	u.PasswordHash = ""
	cards := make([]Card, len(u.Cards))
	for i, c := range u.Cards {
		c.CVV = ""
		cards[i] = c
	}
	u.Cards = cards
	return u
}

// ActiveCard returns the first active card held by the user.
func (u User) ActiveCard() (Card, bool) {
	for _, c := range u.Cards {
		if c.Status == StatusActive {
			return c, true
		}
	}
	return Card{}, false
}

// Card is a payment card issued against a verified passport.
type Card struct {
	ID             string       `json:"id"`
	Number         string       `json:"number"`
	Type           string       `json:"type"`
	Balance        money.Amount `json:"balance"`
	Currency       string       `json:"currency"`
	IssuedAt       time.Time    `json:"issuedAt"`
	Expiry         time.Time    `json:"expiry"`
	CVV            string       `json:"cvv"`
	PassportNumber string       `json:"passportNumber"`
	Status         Status       `json:"status"`
}

// Passport is pre-registered by an admin and must be verified before it can
// back a card. UserID is a weak link set by the first card issued against it.
type Passport struct {
	Number     string     `json:"number"`
	Verified   bool       `json:"verified"`
	UserID     string     `json:"userId,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

// OperationType enumerates the entries of the operation log.
type OperationType string

const (
	OpTransfer            OperationType = "transfer"
	OpWelcomeBonus        OperationType = "welcome_bonus"
	OpCardIssued          OperationType = "card_issued"
	OpAdminCredit         OperationType = "admin_credit"
	OpAdminAddPassport    OperationType = "admin_add_passport"
	OpAdminRemovePassport OperationType = "admin_remove_passport"
)

// Operation is one append-only entry of the ledger log.
type Operation struct {
	ID          string        `json:"id"`
	Type        OperationType `json:"type"`
	FromID      string        `json:"fromId,omitempty"`
	ToID        string        `json:"toId,omitempty"`
	UserID      string        `json:"userId,omitempty"`
	Amount      money.Amount  `json:"amount"`
	Description string        `json:"description,omitempty"`
	Method      string        `json:"method,omitempty"`
	Identifier  string        `json:"identifier,omitempty"`
	At          time.Time     `json:"at"`
}

// Involves reports whether userID appears on any side of the operation.
func (o Operation) Involves(userID string) bool {
	return userID != "" && (o.UserID == userID || o.FromID == userID || o.ToID == userID)
}

// ReceiptStatusCompleted is the only status a receipt ever has.
const ReceiptStatusCompleted = "completed"

// Receipt is the immutable customer-facing copy of a transfer.
type Receipt struct {
	ID          string        `json:"id"`
	OperationID string        `json:"operationId"`
	Number      string        `json:"number"`
	Type        OperationType `json:"type"`
	Amount      money.Amount  `json:"amount"`
	FromID      string        `json:"fromId"`
	ToID        string        `json:"toId"`
	Description string        `json:"description,omitempty"`
	Method      string        `json:"method"`
	Identifier  string        `json:"identifier"`
	At          time.Time     `json:"at"`
	Status      string        `json:"status"`
}

// Settings are process-wide and admin-mutable.
type Settings struct {
	TransferLimit money.Amount `json:"transferLimit"`
	WelcomeBonus  money.Amount `json:"welcomeBonus"`
	Currency      string       `json:"currency"`
	CardIssueFee  money.Amount `json:"cardIssueFee"`
	Maintenance   bool         `json:"maintenance"`
}

// DefaultSettings are used when no settings document exists.
func DefaultSettings() Settings {
	return Settings{
		TransferLimit: money.FromMajor(50_000),
		WelcomeBonus:  money.FromMajor(500),
		Currency:      "RUB",
	}
}

// Session binds the single authenticated user to a token.
type Session struct {
	UserID     string    `json:"userId"`
	Token      string    `json:"token"`
	LoggedInAt time.Time `json:"loggedInAt"`
}
