// Package debts tracks unpaid obligations per plate. Session force-closes
// create debts; settlement is the only path that clears one and feeds the
// collecting operator's drawer.
package debts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

// drawer is the slice of the shift service settlement needs: resolving the
// collecting operator's open shift and appending the collection to its ledger.
type drawer interface {
	OpenShiftFor(ctx context.Context, operatorID uuid.UUID) (*models.Shift, error)
	RecordCollection(ctx context.Context, tx *gorm.DB, input shifts.CollectionInput) (*models.ShiftOperation, error)
}

// Service exposes debt lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateDebtInput) (*models.Debt, error)
	CreateInTx(ctx context.Context, tx *gorm.DB, input CreateDebtInput) (*models.Debt, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Debt, error)
	ListByPlate(ctx context.Context, plate string, status *enums.DebtStatus) ([]models.Debt, error)
	Settle(ctx context.Context, input SettleDebtInput) (*models.Debt, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Debt, error)
}

// CreateDebtInput registers an obligation against a plate.
type CreateDebtInput struct {
	Plate           string           `json:"plate"`
	Origin          enums.DebtOrigin `json:"origin"`
	PrincipalAmount decimal.Decimal  `json:"principal_amount"`
	SessionID       *uuid.UUID       `json:"session_id"`
	Actor           *outbox.ActorRef `json:"-"`
}

// SettleDebtInput clears a pending debt. OperatorID identifies whose drawer
// receives the money; leave it nil for settlements outside a shift.
type SettleDebtInput struct {
	DebtID     uuid.UUID           `json:"debt_id"`
	Method     enums.PaymentMethod `json:"method"`
	OperatorID uuid.UUID           `json:"operator_id"`
	Actor      *outbox.ActorRef    `json:"-"`
}

type service struct {
	tx     txRunner
	repo   Repository
	shifts drawer
	outbox outboxPublisher
	clock  clock.Clock
	locks  *lock.Keyed
}

// NewService wires the debt service.
func NewService(tx txRunner, repo Repository, drawers drawer, publisher outboxPublisher, clk clock.Clock) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("debt repository required")
	}
	if drawers == nil {
		return nil, fmt.Errorf("shift drawer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &service{
		tx:     tx,
		repo:   repo,
		shifts: drawers,
		outbox: publisher,
		clock:  clk,
		locks:  lock.NewKeyed(),
	}, nil
}

// Create registers a debt in its own transaction. Force-closed sessions use
// CreateInTx instead so the debt and the session close commit together.
func (s *service) Create(ctx context.Context, input CreateDebtInput) (*models.Debt, error) {
	var debt *models.Debt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreateInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		debt = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

// CreateInTx writes the debt row and queues debt_created in the caller's
// transaction.
func (s *service) CreateInTx(ctx context.Context, tx *gorm.DB, input CreateDebtInput) (*models.Debt, error) {
	plate, err := plates.Normalize(input.Plate)
	if err != nil {
		return nil, err
	}
	if !input.Origin.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown debt origin %q", input.Origin))
	}
	if !input.PrincipalAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "principal amount must be positive")
	}
	if input.Origin == enums.DebtOriginSession && input.SessionID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session debts require a session id")
	}

	debt := &models.Debt{
		ID:              uuid.New(),
		Plate:           plate,
		Origin:          input.Origin,
		PrincipalAmount: input.PrincipalAmount,
		Status:          enums.DebtStatusPending,
		SessionID:       input.SessionID,
	}
	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, debt); err != nil {
		return nil, err
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventDebtCreated,
		AggregateType: enums.AggregateDebt,
		AggregateID:   debt.ID,
		Actor:         input.Actor,
		OccurredAt:    s.clock.Now(),
		Data: payloads.DebtCreatedEvent{
			DebtID:          debt.ID,
			Plate:           debt.Plate,
			Origin:          debt.Origin,
			PrincipalAmount: debt.PrincipalAmount,
			SessionID:       debt.SessionID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return debt, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Debt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debt id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListByPlate(ctx context.Context, plate string, status *enums.DebtStatus) ([]models.Debt, error) {
	normalized, err := plates.Normalize(plate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByPlate(ctx, normalized, status)
}

// Settle clears a pending debt. Cash settlements require the operator to
// have an open shift; the payment lands in that shift's ledger.
func (s *service) Settle(ctx context.Context, input SettleDebtInput) (*models.Debt, error) {
	if input.DebtID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debt id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.Method))
	}

	release := s.locks.Acquire(input.DebtID)
	defer release()

	var shiftID *uuid.UUID
	if input.OperatorID != uuid.Nil {
		shift, err := s.shifts.OpenShiftFor(ctx, input.OperatorID)
		if err != nil {
			return nil, err
		}
		shiftID = &shift.ID
	} else if input.Method.IsCash() {
		return nil, pkgerrors.New(pkgerrors.CodeNoOpenShift, "cash settlement requires an operator with an open shift")
	}

	now := s.clock.Now()
	var debt *models.Debt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, input.DebtID)
		if err != nil {
			return err
		}
		if found.Status != enums.DebtStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("debt is %s, only pending debts can be settled", found.Status))
		}

		found.Status = enums.DebtStatusSettled
		found.SettledAt = &now
		if err := repo.Update(ctx, found); err != nil {
			return err
		}

		if shiftID != nil {
			_, err := s.shifts.RecordCollection(ctx, tx, shifts.CollectionInput{
				ShiftID:     *shiftID,
				Method:      input.Method,
				Amount:      found.PrincipalAmount,
				ReferenceID: &found.ID,
			})
			if err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDebtSettled,
			AggregateType: enums.AggregateDebt,
			AggregateID:   found.ID,
			Actor:         input.Actor,
			OccurredAt:    now,
			Data: payloads.DebtSettledEvent{
				DebtID:        found.ID,
				Plate:         found.Plate,
				SettledAt:     now,
				PaymentMethod: input.Method,
				ShiftID:       shiftID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		debt = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

// Cancel voids a pending debt without payment.
func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*models.Debt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debt id required")
	}

	release := s.locks.Acquire(id)
	defer release()

	var debt *models.Debt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if found.Status != enums.DebtStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("debt is %s, only pending debts can be cancelled", found.Status))
		}
		found.Status = enums.DebtStatusCancelled
		if err := repo.Update(ctx, found); err != nil {
			return err
		}
		debt = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}
