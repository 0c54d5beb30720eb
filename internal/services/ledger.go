package services

import (
	"context"
	"errors"
	"fmt"

	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

// DuesCategory is the ledger category of credits posted from dues payments.
const DuesCategory = "mensalidade"

// ErrPostedEntry is returned when a manual operation targets an entry owned
// by a payment.
var ErrPostedEntry = errors.New("entry belongs to a payment")

// LedgerService keeps each city's cash book.
type LedgerService struct {
	store  Store
	logger *applog.Logger
}

func NewLedgerService(store Store, logger *applog.Logger) *LedgerService {
	return &LedgerService{store: store, logger: componentLogger(logger, applog.ComponentLedger)}
}

// CashBook returns the entries of a city between from and to (inclusive)
// with the balance carried in from before from. Zero bounds are open.
func (s *LedgerService) CashBook(ctx context.Context, cityID string, from, to core.Date) (core.CashBook, error) {
	if _, err := s.store.GetCity(ctx, cityID); err != nil {
		return core.CashBook{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		return core.CashBook{}, invalid(fmt.Errorf("range ends (%s) before it starts (%s)", to, from))
	}

	var opening core.Money
	if !from.IsZero() {
		var err error
		if opening, err = s.store.LedgerBalanceBefore(ctx, cityID, from); err != nil {
			return core.CashBook{}, err
		}
	}
	entries, err := s.store.ListLedgerEntries(ctx, cityID, from, to)
	if err != nil {
		return core.CashBook{}, err
	}

	book := core.CashBook{
		CityID:         cityID,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		Entries:        entries,
	}
	for _, e := range entries {
		if e.Kind == core.EntryDebit {
			book.TotalOut = book.TotalOut.Add(e.Amount)
		} else {
			book.TotalIn = book.TotalIn.Add(e.Amount)
		}
	}
	book.ClosingBalance = opening.Add(book.TotalIn).Sub(book.TotalOut)
	return book, nil
}

// Balance is the closing balance of a city's cash book up to and including day.
func (s *LedgerService) Balance(ctx context.Context, cityID string, day core.Date) (core.Money, error) {
	return s.store.LedgerBalanceBefore(ctx, cityID, core.Date{Time: day.AddDate(0, 0, 1)})
}

// RecordEntry stores a manual entry. Manual entries never reference a payment.
func (s *LedgerService) RecordEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if e.PaymentID != "" {
		return core.LedgerEntry{}, invalid(ErrPostedEntry)
	}
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, invalid(err)
	}
	created, err := s.store.CreateLedgerEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	s.logger.InfoContext(ctx, "Ledger entry recorded",
		applog.FieldEntryID, created.ID,
		applog.FieldCityID, created.CityID,
		applog.FieldAmountCents, created.Signed().Cents)
	return created, nil
}

// DeleteEntry removes a manual entry. Entries posted from payments go away
// with their payment.
func (s *LedgerService) DeleteEntry(ctx context.Context, id string) error {
	e, err := s.store.GetLedgerEntry(ctx, id)
	if err != nil {
		return err
	}
	if e.PaymentID != "" {
		return invalid(ErrPostedEntry)
	}
	return s.store.DeleteLedgerEntry(ctx, id)
}

// PostPayment credits a paid payment to its member's city. It reports false
// without error when there is nothing to post: the payment is gone, is not a
// paid amount, or was already posted.
func (s *LedgerService) PostPayment(ctx context.Context, paymentID string) (bool, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.Status != core.PaymentPaid || p.Amount.Cents <= 0 {
		return false, nil
	}

	member, err := s.store.GetMember(ctx, p.MemberID)
	if err != nil {
		return false, fmt.Errorf("member of payment %s: %w", p.ID, err)
	}
	cityID, err := cityOfMember(ctx, s.store, member)
	if err != nil {
		return false, fmt.Errorf("city of member %s: %w", member.ID, err)
	}
	if cityID == "" {
		return false, fmt.Errorf("member %s has no city to post payment %s to", member.ID, p.ID)
	}

	entry := core.LedgerEntry{
		CityID:      cityID,
		Date:        p.Date,
		Kind:        core.EntryCredit,
		Description: fmt.Sprintf("Mensalidade %s - %s", p.ReferenceMonth, member.Name),
		Category:    DuesCategory,
		Amount:      p.Amount,
		PaymentID:   p.ID,
	}
	created, err := s.store.CreateLedgerEntry(ctx, entry)
	if errors.Is(err, storage.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Payment posted to cash book",
		applog.FieldPaymentID, p.ID,
		applog.FieldEntryID, created.ID,
		applog.FieldCityID, cityID,
		applog.FieldAmountCents, p.Amount.Cents)
	return true, nil
}

// UnpostPayment removes the credit of a payment. It reports false when there
// was none.
func (s *LedgerService) UnpostPayment(ctx context.Context, paymentID string) (bool, error) {
	err := s.store.DeleteLedgerEntryByPayment(ctx, paymentID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "Payment removed from cash book", applog.FieldPaymentID, paymentID)
	return true, nil
}

// ProcessUnposted posts up to limit paid payments that have no ledger entry.
// Failures are logged and skipped; the count of posted payments is returned.
func (s *LedgerService) ProcessUnposted(ctx context.Context, limit int) (int, error) {
	pending, err := s.store.ListUnpostedPayments(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unposted payments: %w", err)
	}

	posted := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return posted, err
		}
		ok, err := s.PostPayment(ctx, p.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to post payment",
				applog.FieldPaymentID, p.ID, applog.FieldError, err)
			continue
		}
		if ok {
			posted++
		}
	}
	return posted, nil
}
