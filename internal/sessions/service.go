// Package sessions drives the parking session lifecycle: check-in, quoting,
// paid checkout, force-close into debt, cancellation and the stale sweep.
// All transitions commit atomically with their billing rows and outbox
// events.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/internal/debts"
	"github.com/jmoris/stpark-backend/internal/discount"
	"github.com/jmoris/stpark-backend/internal/pricing"
	"github.com/jmoris/stpark-backend/internal/quote"
	"github.com/jmoris/stpark-backend/internal/shifts"
	"github.com/jmoris/stpark-backend/pkg/clock"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/lock"
	"github.com/jmoris/stpark-backend/pkg/outbox"
	"github.com/jmoris/stpark-backend/pkg/outbox/payloads"
	"github.com/jmoris/stpark-backend/pkg/plates"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ruleSource resolves the evaluable rule set for a sector at an instant.
type ruleSource interface {
	ActiveRulesFor(ctx context.Context, sectorID uuid.UUID, at time.Time) ([]pricing.Rule, error)
}

// discountSource resolves a redemption code to its evaluation form.
type discountSource interface {
	FindByCode(ctx context.Context, code string) (*discount.Definition, error)
}

// drawer is the slice of the shift service checkout needs.
type drawer interface {
	OpenShiftFor(ctx context.Context, operatorID uuid.UUID) (*models.Shift, error)
	RecordCollection(ctx context.Context, tx *gorm.DB, input shifts.CollectionInput) (*models.ShiftOperation, error)
}

// debtCreator registers an obligation inside the caller's transaction.
type debtCreator interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, input debts.CreateDebtInput) (*models.Debt, error)
}

// Service exposes session lifecycle operations.
type Service interface {
	CheckIn(ctx context.Context, input CheckInInput) (*models.ParkingSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ParkingSession, error)
	FindActiveByPlate(ctx context.Context, plate string) (*models.ParkingSession, error)
	ListByPlate(ctx context.Context, plate string, limit int) ([]models.ParkingSession, error)
	Quote(ctx context.Context, input QuoteInput) (*quote.Quote, error)
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	ForceCheckout(ctx context.Context, input ForceCheckoutInput) (*ForceCheckoutResult, error)
	Cancel(ctx context.Context, input CancelInput) (*models.ParkingSession, error)
	ExpireStale(ctx context.Context) (int, error)
}

// CheckInInput starts a session for a parked vehicle.
type CheckInInput struct {
	Plate      string           `json:"plate"`
	SectorID   uuid.UUID        `json:"sector_id"`
	StreetID   *uuid.UUID       `json:"street_id"`
	OperatorID uuid.UUID        `json:"operator_id"`
	DeviceID   *string          `json:"device_id"`
	Actor      *outbox.ActorRef `json:"-"`
}

// QuoteInput prices a session without mutating it. A zero At means "now".
type QuoteInput struct {
	SessionID    uuid.UUID  `json:"session_id"`
	At           *time.Time `json:"at"`
	DiscountCode string     `json:"discount_code"`
}

// CheckoutInput settles an active session with payment.
type CheckoutInput struct {
	SessionID    uuid.UUID           `json:"session_id"`
	Method       enums.PaymentMethod `json:"method"`
	Tendered     *decimal.Decimal    `json:"tendered"`
	DiscountCode string              `json:"discount_code"`
	OperatorID   uuid.UUID           `json:"operator_id"`
	Actor        *outbox.ActorRef    `json:"-"`
}

// CheckoutResult is everything the receipt needs. Sale and Payment are nil
// when the net amount was zero.
type CheckoutResult struct {
	Session *models.ParkingSession `json:"session"`
	Sale    *models.Sale           `json:"sale,omitempty"`
	Payment *models.Payment        `json:"payment,omitempty"`
	Quote   quote.Quote            `json:"quote"`
	Change  *decimal.Decimal       `json:"change,omitempty"`
}

// ForceCheckoutInput closes a session without payment, leaving a debt.
type ForceCheckoutInput struct {
	SessionID uuid.UUID        `json:"session_id"`
	Reason    string           `json:"reason"`
	Actor     *outbox.ActorRef `json:"-"`
}

// ForceCheckoutResult reports the close and the debt it left behind. Debt is
// nil when the session priced to zero.
type ForceCheckoutResult struct {
	Session *models.ParkingSession `json:"session"`
	Debt    *models.Debt           `json:"debt,omitempty"`
	Quote   quote.Quote            `json:"quote"`
}

// CancelInput voids an active session without billing it.
type CancelInput struct {
	SessionID uuid.UUID        `json:"session_id"`
	Reason    string           `json:"reason"`
	Actor     *outbox.ActorRef `json:"-"`
}

type service struct {
	tx          txRunner
	repo        Repository
	rules       ruleSource
	discounts   discountSource
	shifts      drawer
	debts       debtCreator
	outbox      outboxPublisher
	clock       clock.Clock
	locks       *lock.Keyed
	maxDuration time.Duration
}

// NewService wires the session service. maxDuration caps how long a session
// may stay active before the sweep force-closes it.
func NewService(
	tx txRunner,
	repo Repository,
	rules ruleSource,
	discounts discountSource,
	drawers drawer,
	debtWriter debtCreator,
	publisher outboxPublisher,
	clk clock.Clock,
	maxDuration time.Duration,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if rules == nil {
		return nil, fmt.Errorf("rule source required")
	}
	if discounts == nil {
		return nil, fmt.Errorf("discount source required")
	}
	if drawers == nil {
		return nil, fmt.Errorf("shift drawer required")
	}
	if debtWriter == nil {
		return nil, fmt.Errorf("debt creator required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if clk == nil {
		clk = clock.System()
	}
	if maxDuration <= 0 {
		maxDuration = 24 * time.Hour
	}
	return &service{
		tx:          tx,
		repo:        repo,
		rules:       rules,
		discounts:   discounts,
		shifts:      drawers,
		debts:       debtWriter,
		outbox:      publisher,
		clock:       clk,
		locks:       lock.NewKeyed(),
		maxDuration: maxDuration,
	}, nil
}

// plateKey folds a plate into the keyed-lock space so check-ins for the same
// plate serialize.
func plateKey(plate string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(plate))
}

// CheckIn opens a session. A plate can hold at most one active session; a
// duplicate check-in conflicts and reports the existing session.
func (s *service) CheckIn(ctx context.Context, input CheckInInput) (*models.ParkingSession, error) {
	plate, err := plates.Normalize(input.Plate)
	if err != nil {
		return nil, err
	}
	if input.SectorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sector id required")
	}
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}

	release := s.locks.Acquire(plateKey(plate))
	defer release()

	now := s.clock.Now()
	var session *models.ParkingSession
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindActiveByPlate(ctx, plate)
		if err != nil {
			return err
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("plate %s already has an active session", plate)).
				WithDetails(map[string]interface{}{"active_session_id": existing.ID})
		}

		session = &models.ParkingSession{
			ID:         uuid.New(),
			Plate:      plate,
			SectorID:   input.SectorID,
			StreetID:   input.StreetID,
			OperatorID: input.OperatorID,
			DeviceID:   input.DeviceID,
			Status:     enums.SessionStatusActive,
			StartedAt:  now,
		}
		if err := repo.Create(ctx, session); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionCheckedIn,
			AggregateType: enums.AggregateParkingSession,
			AggregateID:   session.ID,
			Actor:         input.Actor,
			OccurredAt:    now,
			Data: payloads.SessionCheckedInEvent{
				SessionID:  session.ID,
				Plate:      session.Plate,
				SectorID:   session.SectorID,
				OperatorID: session.OperatorID,
				StartedAt:  session.StartedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.ParkingSession, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) FindActiveByPlate(ctx context.Context, plate string) (*models.ParkingSession, error) {
	normalized, err := plates.Normalize(plate)
	if err != nil {
		return nil, err
	}
	session, err := s.repo.FindActiveByPlate(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no active session for plate %s", normalized))
	}
	return session, nil
}

func (s *service) ListByPlate(ctx context.Context, plate string, limit int) ([]models.ParkingSession, error) {
	normalized, err := plates.Normalize(plate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByPlate(ctx, normalized, limit)
}

// Quote prices the session as if it ended at the given instant. Quotes are
// projections; nothing is persisted.
func (s *service) Quote(ctx context.Context, input QuoteInput) (*quote.Quote, error) {
	session, err := s.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("session is %s, only active sessions can be quoted", session.Status))
	}

	at := s.clock.Now()
	if input.At != nil {
		at = *input.At
	}

	q, _, err := s.price(ctx, session, at, input.DiscountCode)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Checkout settles an active session. The operator must have an open shift;
// the collection lands in that shift's ledger regardless of method.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.Method))
	}
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}

	release := s.locks.Acquire(input.SessionID)
	defer release()

	shift, err := s.shifts.OpenShiftFor(ctx, input.OperatorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var result *CheckoutResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		session, err := repo.FindByID(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if session.Status != enums.SessionStatusActive && session.Status != enums.SessionStatusToPay {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("session is %s, cannot check out", session.Status))
		}

		q, disc, err := s.price(ctx, session, now, input.DiscountCode)
		if err != nil {
			return err
		}

		var change *decimal.Decimal
		if q.NetAmount.IsPositive() && input.Method.IsCash() {
			if input.Tendered == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "tendered amount required for cash payment")
			}
			if input.Tendered.LessThan(q.NetAmount) {
				return pkgerrors.New(pkgerrors.CodeInsufficientPayment, "tendered amount does not cover the charge").
					WithDetails(map[string]interface{}{
						"net_amount": q.NetAmount,
						"tendered":   *input.Tendered,
					})
			}
			diff := input.Tendered.Sub(q.NetAmount)
			change = &diff
		}

		seconds := int64(now.Sub(session.StartedAt) / time.Second)
		session.Status = enums.SessionStatusPaid
		session.EndedAt = &now
		session.SecondsTotal = &seconds
		session.GrossAmount = &q.GrossAmount
		session.DiscountAmount = &q.DiscountAmount
		session.NetAmount = &q.NetAmount
		if disc != nil {
			session.DiscountID = &disc.ID
		}
		method := input.Method
		session.PaymentMethod = &method
		if err := repo.Update(ctx, session); err != nil {
			return err
		}

		result = &CheckoutResult{Session: session, Quote: *q, Change: change}

		if q.NetAmount.IsPositive() {
			sale := &models.Sale{
				ID:            uuid.New(),
				SessionID:     session.ID,
				ShiftID:       &shift.ID,
				Amount:        q.NetAmount,
				PaymentMethod: input.Method,
				SoldAt:        now,
			}
			if err := repo.CreateSale(ctx, sale); err != nil {
				return err
			}
			payment := &models.Payment{
				ID:         uuid.New(),
				SaleID:     sale.ID,
				Method:     input.Method,
				Amount:     q.NetAmount,
				Tendered:   input.Tendered,
				Change:     change,
				ReceivedAt: now,
			}
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return err
			}
			if _, err := s.shifts.RecordCollection(ctx, tx, shifts.CollectionInput{
				ShiftID:     shift.ID,
				Method:      input.Method,
				Amount:      q.NetAmount,
				ReferenceID: &sale.ID,
			}); err != nil {
				return err
			}
			result.Sale = sale
			result.Payment = payment
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionCheckedOut,
			AggregateType: enums.AggregateParkingSession,
			AggregateID:   session.ID,
			Actor:         input.Actor,
			OccurredAt:    now,
			Data: payloads.SessionCheckedOutEvent{
				SessionID:      session.ID,
				Plate:          session.Plate,
				SectorID:       session.SectorID,
				OperatorID:     input.OperatorID,
				ShiftID:        &shift.ID,
				EndedAt:        now,
				SecondsTotal:   seconds,
				GrossAmount:    q.GrossAmount,
				DiscountAmount: q.DiscountAmount,
				NetAmount:      q.NetAmount,
				PaymentMethod:  input.Method,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ForceCheckout closes a session without payment. A positive net amount
// becomes a pending debt against the plate in the same transaction.
func (s *service) ForceCheckout(ctx context.Context, input ForceCheckoutInput) (*ForceCheckoutResult, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	release := s.locks.Acquire(input.SessionID)
	defer release()

	now := s.clock.Now()
	var result *ForceCheckoutResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.closeUnpaid(ctx, tx, input.SessionID, now, closeContext{
			reason: input.Reason,
			actor:  input.Actor,
		})
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel voids an active session. Canceled sessions bill nothing and leave
// no debt.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.ParkingSession, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	release := s.locks.Acquire(input.SessionID)
	defer release()

	now := s.clock.Now()
	var session *models.ParkingSession
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if found.Status != enums.SessionStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("session is %s, only active sessions can be canceled", found.Status))
		}

		found.Status = enums.SessionStatusCanceled
		found.EndedAt = &now
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		session = found

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionCanceled,
			AggregateType: enums.AggregateParkingSession,
			AggregateID:   found.ID,
			Actor:         input.Actor,
			OccurredAt:    now,
			Data: payloads.SessionCanceledEvent{
				SessionID:  found.ID,
				Plate:      found.Plate,
				SectorID:   found.SectorID,
				CanceledAt: now,
				Reason:     input.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ExpireStale force-closes active sessions older than the configured cap.
// Each session closes in its own transaction so one bad row cannot stall
// the sweep; errors accumulate and are returned alongside the sweep count.
func (s *service) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.maxDuration)
	stale, err := s.repo.ListActiveStartedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	var errs error
	for _, candidate := range stale {
		candidate := candidate
		err := func() error {
			release := s.locks.Acquire(candidate.ID)
			defer release()

			endAt := candidate.StartedAt.Add(s.maxDuration)
			return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				_, err := s.closeUnpaid(ctx, tx, candidate.ID, endAt, closeContext{
					reason:  "session exceeded maximum duration",
					expired: true,
				})
				return err
			})
		}()
		if err != nil {
			// concurrent checkout wins the race; skip quietly
			if pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", candidate.ID, err))
			continue
		}
		swept++
	}
	return swept, errs
}

type closeContext struct {
	reason  string
	actor   *outbox.ActorRef
	expired bool
}

// closeUnpaid transitions an active session to closed, pricing it at endAt
// and registering the debt. Caller holds the session lock and transaction.
func (s *service) closeUnpaid(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, endAt time.Time, cc closeContext) (*ForceCheckoutResult, error) {
	repo := s.repo.WithTx(tx)
	session, err := repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("session is %s, cannot force close", session.Status))
	}

	q, _, err := s.price(ctx, session, endAt, "")
	if err != nil {
		return nil, err
	}

	seconds := int64(endAt.Sub(session.StartedAt) / time.Second)
	session.Status = enums.SessionStatusClosed
	session.EndedAt = &endAt
	session.SecondsTotal = &seconds
	session.GrossAmount = &q.GrossAmount
	session.DiscountAmount = &q.DiscountAmount
	session.NetAmount = &q.NetAmount
	if err := repo.Update(ctx, session); err != nil {
		return nil, err
	}

	result := &ForceCheckoutResult{Session: session, Quote: *q}
	var debtID uuid.UUID
	if q.NetAmount.IsPositive() {
		debt, err := s.debts.CreateInTx(ctx, tx, debts.CreateDebtInput{
			Plate:           session.Plate,
			Origin:          enums.DebtOriginSession,
			PrincipalAmount: q.NetAmount,
			SessionID:       &session.ID,
			Actor:           cc.actor,
		})
		if err != nil {
			return nil, err
		}
		result.Debt = debt
		debtID = debt.ID
	}

	event := outbox.DomainEvent{
		AggregateType: enums.AggregateParkingSession,
		AggregateID:   session.ID,
		Actor:         cc.actor,
		OccurredAt:    endAt,
	}
	if cc.expired {
		event.EventType = enums.EventSessionExpired
		event.Data = payloads.SessionExpiredEvent{
			SessionID: session.ID,
			Plate:     session.Plate,
			StartedAt: session.StartedAt,
			ExpiredAt: endAt,
			TTLHours:  int(s.maxDuration.Hours()),
		}
	} else {
		event.EventType = enums.EventSessionForceClosed
		event.Data = payloads.SessionForceClosedEvent{
			SessionID: session.ID,
			Plate:     session.Plate,
			SectorID:  session.SectorID,
			EndedAt:   endAt,
			NetAmount: q.NetAmount,
			DebtID:    debtID,
			Reason:    cc.reason,
		}
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return result, nil
}

// price resolves rules and, optionally, a discount code, then calculates the
// quote for [StartedAt, endAt].
func (s *service) price(ctx context.Context, session *models.ParkingSession, endAt time.Time, discountCode string) (*quote.Quote, *discount.Definition, error) {
	rules, err := s.rules.ActiveRulesFor(ctx, session.SectorID, session.StartedAt)
	if err != nil {
		return nil, nil, err
	}

	var disc *discount.Definition
	if discountCode != "" {
		disc, err = s.discounts.FindByCode(ctx, discountCode)
		if err != nil {
			return nil, nil, err
		}
	}

	q, err := quote.Calculate(session.StartedAt, endAt, rules, disc)
	if err != nil {
		return nil, nil, err
	}
	return &q, disc, nil
}
