// Package payments moves money between customers and keeps the receipt log.
package payments

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strings"

	"github.com/congo-pay/abank/internal/apperror"
	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/metrics"
	"github.com/congo-pay/abank/internal/money"
	"github.com/congo-pay/abank/internal/notification"
)

// Method selects how the recipient identifier is resolved.
type Method string

const (
	MethodEmail Method = "email"
	MethodPhone Method = "phone"
	MethodCard  Method = "card"
)

const defaultDescription = "Перевод"

// Service executes transfers between users.
type Service struct {
	repo     *ledger.Repository
	clock    clock.Clock
	ids      idgen.Generator
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a payment service. notifier may be nil.
func NewService(repo *ledger.Repository, clk clock.Clock, ids idgen.Generator, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, clock: clk, ids: ids, notifier: notifier, logger: logger}
}

// TransferInput captures the data needed to move funds between users.
type TransferInput struct {
	FromID      string
	Recipient   string
	Amount      string
	Description string
	Method      Method
}

// TransferResult describes the committed transfer.
type TransferResult struct {
	Operation ledger.Operation
	Receipt   ledger.Receipt
	Sender    ledger.User
	Recipient ledger.User
}

// Transfer debits the sender and credits the recipient in one repository
// update, recording one operation and one receipt.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	amount, err := money.Parse(input.Amount)
	if err != nil {
		metrics.RecordTransfer(string(input.Method), 0, err)
		return TransferResult{}, err
	}

	var (
		result   TransferResult
		currency string
	)
	err = s.repo.Update(ctx, func(st *ledger.State) error {
		if st.Settings.Maintenance {
			return apperror.New(apperror.KindUnavailable, "transfers are paused for maintenance")
		}
		if amount > st.Settings.TransferLimit {
			return apperror.New(apperror.KindLimitExceeded, "amount %s exceeds transfer limit %s", amount, st.Settings.TransferLimit)
		}
		sender, ok := st.UserByID(input.FromID)
		if !ok {
			return apperror.NotFound("sender %s not found", input.FromID)
		}
		recipient, identifier, ok := resolveRecipient(st, input.Method, input.Recipient)
		if !ok {
			return apperror.New(apperror.KindRecipientNotFound, "no recipient for %s %q", input.Method, input.Recipient)
		}
		if sender.Balance < amount {
			return apperror.New(apperror.KindInsufficientFunds, "balance %s is below %s", sender.Balance, amount)
		}
		if sender.ID == recipient.ID {
			return apperror.New(apperror.KindSelfTransfer, "sender and recipient are the same user")
		}

		credited, ok := recipient.Balance.Add(amount)
		if !ok {
			return apperror.New(apperror.KindInvalidAmount, "amount %s overflows the recipient balance", amount)
		}
		sender.Balance -= amount
		recipient.Balance = credited

		description := strings.TrimSpace(input.Description)
		if description == "" {
			description = defaultDescription
		}
		now := s.clock.Now()
		op := ledger.Operation{
			ID:          s.ids.New("op"),
			Type:        ledger.OpTransfer,
			FromID:      sender.ID,
			ToID:        recipient.ID,
			Amount:      amount,
			Description: description,
			Method:      string(input.Method),
			Identifier:  identifier,
			At:          now,
		}
		st.PrependOperation(op)

		receipt := receiptFor(op, s.ids.New("rcpt"))
		st.PrependReceipt(receipt)

		result = TransferResult{Operation: op, Receipt: receipt, Sender: *sender, Recipient: *recipient}
		currency = st.Settings.Currency
		return nil
	})
	metrics.RecordTransfer(string(input.Method), amount, err)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindStorage {
			s.logger.Error("transfer failed", slog.String("operation", "transfer"), slog.Any("error", err))
		}
		return TransferResult{}, err
	}

	s.logger.Info("transfer completed",
		slog.String("operation_id", result.Operation.ID),
		slog.String("from", result.Sender.ID),
		slog.String("to", result.Recipient.ID),
		slog.String("amount", amount.String()),
	)
	s.notifyRecipient(ctx, result, currency)
	return result, nil
}

func (s *Service) notifyRecipient(ctx context.Context, result TransferResult, currency string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTransferReceived,
		UserID:      result.Recipient.ID,
		Destination: result.Recipient.Email,
		Subject:     "Поступление перевода",
		Body: fmt.Sprintf("%s, вам поступил перевод %s %s от %s. Квитанция %s.",
			result.Recipient.Name, result.Operation.Amount, currency, result.Sender.Name, result.Receipt.Number),
	})
	if err != nil {
		s.logger.Warn("transfer notification failed",
			slog.String("operation_id", result.Operation.ID),
			slog.Any("error", err),
		)
	}
}

// resolveRecipient returns the matched user and the identifier as recorded
// in the log.
func resolveRecipient(st *ledger.State, method Method, identifier string) (*ledger.User, string, bool) {
	identifier = strings.TrimSpace(identifier)
	switch method {
	case MethodEmail:
		u, ok := st.UserByEmail(identifier)
		return u, ledger.NormalizeEmail(identifier), ok
	case MethodPhone:
		u, ok := st.UserByPhone(identifier)
		return u, identifier, ok
	case MethodCard:
		u, ok := st.UserByCardNumber(identifier)
		return u, ledger.NormalizeCardNumber(identifier), ok
	default:
		return nil, identifier, false
	}
}

func receiptFor(op ledger.Operation, id string) ledger.Receipt {
	return ledger.Receipt{
		ID:          id,
		OperationID: op.ID,
		Number:      receiptNumber(op, id),
		Type:        op.Type,
		Amount:      op.Amount,
		FromID:      op.FromID,
		ToID:        op.ToID,
		Description: op.Description,
		Method:      op.Method,
		Identifier:  op.Identifier,
		At:          op.At,
		Status:      ledger.ReceiptStatusCompleted,
	}
}

// receiptNumber renders R<yyyymmdd>-<8 hex digits>.
func receiptNumber(op ledger.Operation, receiptID string) string {
	return fmt.Sprintf("R%s-%08X", op.At.Format("20060102"), crc32.ChecksumIEEE([]byte(receiptID+op.ID)))
}
