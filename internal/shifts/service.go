package shifts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/clock"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/lock"
	"github.com/jmoris/stpark-backend/pkg/outbox"
	"github.com/jmoris/stpark-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type pinVerifier interface {
	VerifyPin(ctx context.Context, id uuid.UUID, pin string) error
}

// Service manages the operator shift lifecycle and its cash ledger. Every
// money movement is an append-only ShiftOperation row; reconciliation and
// close replay the ledger instead of trusting running counters.
type Service interface {
	Open(ctx context.Context, input OpenShiftInput) (*models.Shift, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	OpenShiftFor(ctx context.Context, operatorID uuid.UUID) (*models.Shift, error)
	RecordCollection(ctx context.Context, tx *gorm.DB, input CollectionInput) (*models.ShiftOperation, error)
	Deposit(ctx context.Context, input MovementInput) (*models.ShiftOperation, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.ShiftOperation, error)
	Reconcile(ctx context.Context, shiftID uuid.UUID) (*Totals, error)
	Close(ctx context.Context, input CloseShiftInput) (*models.Shift, *Totals, error)
	ListOperations(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftOperation, error)
}

// OpenShiftInput captures the data needed to start a drawer.
type OpenShiftInput struct {
	OperatorID   uuid.UUID       `json:"operator_id"`
	SectorID     *uuid.UUID      `json:"sector_id"`
	DeviceID     *string         `json:"device_id"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

// CollectionInput records a payment taken during the shift. ReferenceID
// points at the sale (or debt) the money belongs to.
type CollectionInput struct {
	ShiftID     uuid.UUID
	Method      enums.PaymentMethod
	Amount      decimal.Decimal
	ReferenceID *uuid.UUID
}

// MovementInput covers deposits to the drawer.
type MovementInput struct {
	ShiftID uuid.UUID       `json:"shift_id"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
}

// WithdrawInput removes cash from the drawer. When ApprovedBy is set the
// approver's PIN is verified before the movement is written.
type WithdrawInput struct {
	ShiftID     uuid.UUID       `json:"shift_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	ApprovedBy  *uuid.UUID      `json:"approved_by"`
	ApproverPin string          `json:"approver_pin"`
}

// CloseShiftInput carries the cash the operator counted in the drawer.
type CloseShiftInput struct {
	ShiftID      uuid.UUID       `json:"shift_id"`
	DeclaredCash decimal.Decimal `json:"declared_cash"`
}

// Totals is the outcome of replaying a shift's ledger.
type Totals struct {
	OpeningFloat    decimal.Decimal                         `json:"opening_float"`
	CashCollected   decimal.Decimal                         `json:"cash_collected"`
	CashDeposits    decimal.Decimal                         `json:"cash_deposits"`
	CashWithdrawals decimal.Decimal                         `json:"cash_withdrawals"`
	ExpectedCash    decimal.Decimal                         `json:"expected_cash"`
	ByMethod        map[enums.PaymentMethod]decimal.Decimal `json:"by_method"`
	DeclaredCash    *decimal.Decimal                        `json:"declared_cash,omitempty"`
	OverShort       *decimal.Decimal                        `json:"over_short,omitempty"`
}

type service struct {
	tx     txRunner
	repo   Repository
	pins   pinVerifier
	outbox outboxPublisher
	clock  clock.Clock
	locks  *lock.Keyed
}

// NewService wires the shift service.
func NewService(tx txRunner, repo Repository, pins pinVerifier, publisher outboxPublisher, clk clock.Clock) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("shift repository required")
	}
	if pins == nil {
		return nil, fmt.Errorf("pin verifier required")
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
		pins:   pins,
		outbox: publisher,
		clock:  clk,
		locks:  lock.NewKeyed(),
	}, nil
}

func (s *service) Open(ctx context.Context, input OpenShiftInput) (*models.Shift, error) {
	if input.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	if input.OpeningFloat.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening float cannot be negative")
	}

	release := s.locks.Acquire(input.OperatorID)
	defer release()

	now := s.clock.Now()
	var shift *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindOpenByOperator(ctx, input.OperatorID)
		if err != nil {
			return err
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeShiftAlreadyOpen, "close the current shift before opening another").
				WithDetails(map[string]any{"open_shift_id": existing.ID})
		}

		shift = &models.Shift{
			OperatorID:   input.OperatorID,
			SectorID:     input.SectorID,
			DeviceID:     input.DeviceID,
			Status:       enums.ShiftStatusOpen,
			OpenedAt:     now,
			OpeningFloat: input.OpeningFloat,
		}
		if err := repo.Create(ctx, shift); err != nil {
			return err
		}

		opening := input.OpeningFloat
		op := &models.ShiftOperation{
			ShiftID: shift.ID,
			Kind:    enums.ShiftOperationOpen,
			Amount:  &opening,
			At:      now,
		}
		if err := repo.AppendOperation(ctx, op); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShiftOpened,
			AggregateType: enums.AggregateShift,
			AggregateID:   shift.ID,
			Actor:         &outbox.ActorRef{OperatorID: input.OperatorID, DeviceID: input.DeviceID},
			Data: payloads.ShiftOpenedEvent{
				ShiftID:      shift.ID,
				OperatorID:   input.OperatorID,
				SectorID:     input.SectorID,
				DeviceID:     input.DeviceID,
				OpenedAt:     now,
				OpeningFloat: input.OpeningFloat,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return shift, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	return s.repo.FindByID(ctx, id)
}

// OpenShiftFor resolves the operator's current open shift. Payment recording
// is refused when none exists.
func (s *service) OpenShiftFor(ctx context.Context, operatorID uuid.UUID) (*models.Shift, error) {
	if operatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	shift, err := s.repo.FindOpenByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoOpenShift, "open a shift before collecting payments")
	}
	return shift, nil
}

// RecordCollection appends a collection row inside the caller's transaction.
// The session checkout calls this so the sale and the drawer movement commit
// or roll back together.
func (s *service) RecordCollection(ctx context.Context, tx *gorm.DB, input CollectionInput) (*models.ShiftOperation, error) {
	if input.ShiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection amount cannot be negative")
	}

	repo := s.repo.WithTx(tx)
	shift, err := repo.FindByID(ctx, input.ShiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status != enums.ShiftStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeNoOpenShift, "shift is no longer open")
	}

	amount := input.Amount
	method := input.Method
	op := &models.ShiftOperation{
		ShiftID:     shift.ID,
		Kind:        enums.ShiftOperationCollection,
		Method:      &method,
		Amount:      &amount,
		At:          s.clock.Now(),
		ReferenceID: input.ReferenceID,
	}
	if err := repo.AppendOperation(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

func (s *service) Deposit(ctx context.Context, input MovementInput) (*models.ShiftOperation, error) {
	if err := validateMovement(input.ShiftID, input.Amount, input.Reason); err != nil {
		return nil, err
	}

	release := s.locks.Acquire(input.ShiftID)
	defer release()

	var op *models.ShiftOperation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shift, err := repo.FindByID(ctx, input.ShiftID)
		if err != nil {
			return err
		}
		if shift.Status != enums.ShiftStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot deposit into a closed shift")
		}

		amount := input.Amount
		reason := strings.TrimSpace(input.Reason)
		op = &models.ShiftOperation{
			ShiftID: shift.ID,
			Kind:    enums.ShiftOperationDeposit,
			Amount:  &amount,
			At:      s.clock.Now(),
			Reason:  &reason,
		}
		return repo.AppendOperation(ctx, op)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.ShiftOperation, error) {
	if err := validateMovement(input.ShiftID, input.Amount, input.Reason); err != nil {
		return nil, err
	}
	if input.ApprovedBy != nil {
		if err := s.pins.VerifyPin(ctx, *input.ApprovedBy, input.ApproverPin); err != nil {
			return nil, err
		}
	}

	release := s.locks.Acquire(input.ShiftID)
	defer release()

	var op *models.ShiftOperation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shift, err := repo.FindByID(ctx, input.ShiftID)
		if err != nil {
			return err
		}
		if shift.Status != enums.ShiftStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot withdraw from a closed shift")
		}

		totals, err := replayLedger(ctx, repo, shift)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(totals.ExpectedCash) {
			return pkgerrors.New(pkgerrors.CodeValidation, "withdrawal exceeds cash in drawer").
				WithDetails(map[string]any{"expected_cash": totals.ExpectedCash})
		}

		amount := input.Amount
		reason := strings.TrimSpace(input.Reason)
		op = &models.ShiftOperation{
			ShiftID:    shift.ID,
			Kind:       enums.ShiftOperationWithdrawal,
			Amount:     &amount,
			At:         s.clock.Now(),
			Reason:     &reason,
			ApprovedBy: input.ApprovedBy,
		}
		return repo.AppendOperation(ctx, op)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (s *service) Reconcile(ctx context.Context, shiftID uuid.UUID) (*Totals, error) {
	if shiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	shift, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	totals, err := replayLedger(ctx, s.repo, shift)
	if err != nil {
		return nil, err
	}
	if shift.ClosingDeclaredCash != nil {
		declared := *shift.ClosingDeclaredCash
		overShort := declared.Sub(totals.ExpectedCash)
		totals.DeclaredCash = &declared
		totals.OverShort = &overShort
	}
	return totals, nil
}

// Close reconciles and closes the shift. A cash difference never blocks the
// close; it is recorded as over/short for back-office follow up.
func (s *service) Close(ctx context.Context, input CloseShiftInput) (*models.Shift, *Totals, error) {
	if input.ShiftID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	if input.DeclaredCash.IsNegative() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "declared cash cannot be negative")
	}

	release := s.locks.Acquire(input.ShiftID)
	defer release()

	now := s.clock.Now()
	var (
		shift  *models.Shift
		totals *Totals
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		shift, err = repo.FindByID(ctx, input.ShiftID)
		if err != nil {
			return err
		}
		if shift.Status != enums.ShiftStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shift is already closed")
		}

		totals, err = replayLedger(ctx, repo, shift)
		if err != nil {
			return err
		}

		declared := input.DeclaredCash
		overShort := declared.Sub(totals.ExpectedCash)
		totals.DeclaredCash = &declared
		totals.OverShort = &overShort

		closeOp := &models.ShiftOperation{
			ShiftID: shift.ID,
			Kind:    enums.ShiftOperationClose,
			Amount:  &declared,
			At:      now,
		}
		if err := repo.AppendOperation(ctx, closeOp); err != nil {
			return err
		}

		shift.Status = enums.ShiftStatusClosed
		shift.ClosedAt = &now
		shift.ClosingDeclaredCash = &declared
		shift.CashOverShort = &overShort
		if err := repo.Update(ctx, shift); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShiftClosed,
			AggregateType: enums.AggregateShift,
			AggregateID:   shift.ID,
			Actor:         &outbox.ActorRef{OperatorID: shift.OperatorID, DeviceID: shift.DeviceID},
			Data: payloads.ShiftClosedEvent{
				ShiftID:       shift.ID,
				OperatorID:    shift.OperatorID,
				ClosedAt:      now,
				ExpectedCash:  totals.ExpectedCash,
				DeclaredCash:  declared,
				CashOverShort: overShort,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return shift, totals, nil
}

func (s *service) ListOperations(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftOperation, error) {
	if shiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	return s.repo.ListOperations(ctx, shiftID)
}

func validateMovement(shiftID uuid.UUID, amount decimal.Decimal, reason string) error {
	if shiftID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	return nil
}

// replayLedger folds the shift's operations into drawer totals. Only cash
// collections move the expected drawer amount; other methods are summarized
// per method for the close report.
func replayLedger(ctx context.Context, repo Repository, shift *models.Shift) (*Totals, error) {
	ops, err := repo.ListOperations(ctx, shift.ID)
	if err != nil {
		return nil, err
	}

	totals := &Totals{
		OpeningFloat: shift.OpeningFloat,
		ByMethod:     make(map[enums.PaymentMethod]decimal.Decimal),
	}
	for _, op := range ops {
		if op.Amount == nil {
			continue
		}
		amount := *op.Amount
		switch op.Kind {
		case enums.ShiftOperationCollection:
			if op.Method == nil {
				continue
			}
			totals.ByMethod[*op.Method] = totals.ByMethod[*op.Method].Add(amount)
			if op.Method.IsCash() {
				totals.CashCollected = totals.CashCollected.Add(amount)
			}
		case enums.ShiftOperationDeposit:
			totals.CashDeposits = totals.CashDeposits.Add(amount)
		case enums.ShiftOperationWithdrawal:
			totals.CashWithdrawals = totals.CashWithdrawals.Add(amount)
		case enums.ShiftOperationAdjustment:
			// Signed amount. Positive adds to the drawer, negative removes.
			totals.CashDeposits = totals.CashDeposits.Add(amount)
		}
	}

	totals.ExpectedCash = totals.OpeningFloat.
		Add(totals.CashCollected).
		Add(totals.CashDeposits).
		Sub(totals.CashWithdrawals)
	return totals, nil
}
