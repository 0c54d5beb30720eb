package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tesouraria/internal/amqp"
	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

// PaymentService records dues payments and tells the worker about them.
type PaymentService struct {
	store     Store
	publisher Publisher
	ledger    *LedgerService
	logger    *applog.Logger
	now       func() time.Time
}

// NewPaymentService wires the payment flow. publisher may be nil, in which
// case payments are posted to the cash book inline.
func NewPaymentService(store Store, publisher Publisher, ledger *LedgerService, logger *applog.Logger) *PaymentService {
	return &PaymentService{
		store:     store,
		publisher: publisher,
		ledger:    ledger,
		logger:    componentLogger(logger, applog.ComponentPayments),
		now:       time.Now,
	}
}

// RecordPayment validates and stores p, then publishes payment.recorded.
// The reference month is stored in its canonical "M/YYYY" form. Missing
// status defaults to paid, missing date to today and missing team to the
// member's current team.
func (s *PaymentService) RecordPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	key, err := core.NormalizeMonthKey(p.ReferenceMonth)
	if err != nil {
		return core.Payment{}, invalid(err)
	}
	p.ReferenceMonth = key
	if p.Status == "" {
		p.Status = core.PaymentPaid
	}
	if p.Date.IsZero() {
		now := s.now()
		p.Date = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, invalid(err)
	}

	member, err := s.store.GetMember(ctx, p.MemberID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Payment{}, invalid(fmt.Errorf("unknown member %q", p.MemberID))
	}
	if err != nil {
		return core.Payment{}, err
	}
	if p.TeamID == "" {
		p.TeamID = member.TeamID
	}

	created, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}

	s.logger.InfoContext(ctx, "Payment recorded", applog.NewFields().
		WithPayment(created.ID, created.MemberID, created.ReferenceMonth, created.Amount.Cents).
		ToSlice()...)

	ev := amqp.NewPaymentEvent(amqp.EventPaymentRecorded, created.ID, created.MemberID,
		created.ReferenceMonth, created.Amount.Cents)
	if !s.publish(ctx, ev) {
		if _, err := s.ledger.PostPayment(ctx, created.ID); err != nil {
			// The periodic sweep picks it up later.
			s.logger.ErrorContext(ctx, "Failed to post payment inline",
				applog.FieldPaymentID, created.ID, applog.FieldError, err)
		}
	}
	return created, nil
}

// DeletePayment removes a payment and publishes payment.deleted.
func (s *PaymentService) DeletePayment(ctx context.Context, id string) error {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}

	s.logger.InfoContext(ctx, "Payment deleted", applog.NewFields().
		WithPayment(p.ID, p.MemberID, p.ReferenceMonth, p.Amount.Cents).
		ToSlice()...)

	ev := amqp.NewPaymentEvent(amqp.EventPaymentDeleted, p.ID, p.MemberID, p.ReferenceMonth, p.Amount.Cents)
	if !s.publish(ctx, ev) {
		if _, err := s.ledger.UnpostPayment(ctx, p.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to remove payment from cash book",
				applog.FieldPaymentID, p.ID, applog.FieldError, err)
		}
	}
	return nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// ListPayments accepts the reference month in either padded or unpadded form.
func (s *PaymentService) ListPayments(ctx context.Context, f storage.PaymentFilter) ([]core.Payment, error) {
	if f.ReferenceMonth != "" {
		key, err := core.NormalizeMonthKey(f.ReferenceMonth)
		if err != nil {
			return nil, invalid(err)
		}
		f.ReferenceMonth = key
	}
	return s.store.ListPayments(ctx, f)
}

// publish reports whether the event reached the broker. A failed publish is
// logged but never fails the request: the payment is already saved.
func (s *PaymentService) publish(ctx context.Context, ev *amqp.PaymentEvent) bool {
	if s.publisher == nil {
		return false
	}
	if err := s.publisher.PublishPaymentEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish payment event",
			applog.FieldRoutingKey, ev.Type,
			applog.FieldPaymentID, ev.PaymentID,
			applog.FieldError, err)
		return false
	}
	return true
}
