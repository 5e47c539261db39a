package debts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/internal/shifts"
	"github.com/jmoris/stpark-backend/pkg/clock"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	debts map[uuid.UUID]*models.Debt
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{debts: map[uuid.UUID]*models.Debt{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, debt *models.Debt) error {
	if debt.ID == uuid.Nil {
		debt.ID = uuid.New()
	}
	copied := *debt
	f.debts[debt.ID] = &copied
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Debt, error) {
	debt, ok := f.debts[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "debt not found")
	}
	copied := *debt
	return &copied, nil
}

func (f *fakeRepo) Update(_ context.Context, debt *models.Debt) error {
	copied := *debt
	f.debts[debt.ID] = &copied
	return nil
}

func (f *fakeRepo) ListByPlate(_ context.Context, plate string, status *enums.DebtStatus) ([]models.Debt, error) {
	var out []models.Debt
	for _, debt := range f.debts {
		if debt.Plate != plate {
			continue
		}
		if status != nil && debt.Status != *status {
			continue
		}
		out = append(out, *debt)
	}
	return out, nil
}

type fakePublisher struct {
	events []outbox.DomainEvent
}

func (f *fakePublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeDrawer struct {
	openShift   *models.Shift
	collections []shifts.CollectionInput
}

func (f *fakeDrawer) OpenShiftFor(_ context.Context, operatorID uuid.UUID) (*models.Shift, error) {
	if f.openShift == nil || f.openShift.OperatorID != operatorID {
		return nil, pkgerrors.New(pkgerrors.CodeNoOpenShift, "operator has no open shift")
	}
	copied := *f.openShift
	return &copied, nil
}

func (f *fakeDrawer) RecordCollection(_ context.Context, _ *gorm.DB, input shifts.CollectionInput) (*models.ShiftOperation, error) {
	f.collections = append(f.collections, input)
	return &models.ShiftOperation{ID: uuid.New(), ShiftID: input.ShiftID}, nil
}

func newTestService(t *testing.T) (Service, *fakeRepo, *fakeDrawer, *fakePublisher) {
	t.Helper()
	repo := newFakeRepo()
	drawers := &fakeDrawer{}
	publisher := &fakePublisher{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	svc, err := NewService(stubTxRunner{}, repo, drawers, publisher, clk)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, drawers, publisher
}

func TestCreateEmitsDebtCreated(t *testing.T) {
	svc, _, _, publisher := newTestService(t)
	sessionID := uuid.New()

	debt, err := svc.Create(context.Background(), CreateDebtInput{
		Plate:           "gh-jk12",
		Origin:          enums.DebtOriginSession,
		PrincipalAmount: decimal.NewFromInt(3000),
		SessionID:       &sessionID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if debt.Plate != "GHJK12" {
		t.Fatalf("plate not normalized: %q", debt.Plate)
	}
	if debt.Status != enums.DebtStatusPending {
		t.Fatalf("expected pending, got %s", debt.Status)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventDebtCreated {
		t.Fatalf("expected one debt_created event, got %+v", publisher.events)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateDebtInput{
		Plate:           "GHJK12",
		Origin:          enums.DebtOriginSession,
		PrincipalAmount: decimal.NewFromInt(3000),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing session id, got %v", err)
	}

	_, err = svc.Create(ctx, CreateDebtInput{
		Plate:           "GHJK12",
		Origin:          enums.DebtOriginManual,
		PrincipalAmount: decimal.Zero,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero principal, got %v", err)
	}
}

func TestSettleCashFeedsDrawer(t *testing.T) {
	svc, _, drawers, publisher := newTestService(t)
	ctx := context.Background()
	operatorID := uuid.New()
	drawers.openShift = &models.Shift{ID: uuid.New(), OperatorID: operatorID, Status: enums.ShiftStatusOpen}

	debt, err := svc.Create(ctx, CreateDebtInput{
		Plate:           "GHJK12",
		Origin:          enums.DebtOriginManual,
		PrincipalAmount: decimal.NewFromInt(3000),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	settled, err := svc.Settle(ctx, SettleDebtInput{
		DebtID:     debt.ID,
		Method:     enums.PaymentMethodCash,
		OperatorID: operatorID,
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if settled.Status != enums.DebtStatusSettled || settled.SettledAt == nil {
		t.Fatalf("debt not settled: %+v", settled)
	}
	if len(drawers.collections) != 1 {
		t.Fatalf("expected one drawer collection, got %d", len(drawers.collections))
	}
	col := drawers.collections[0]
	if col.ShiftID != drawers.openShift.ID || !col.Amount.Equal(decimal.NewFromInt(3000)) || col.ReferenceID == nil || *col.ReferenceID != debt.ID {
		t.Fatalf("collection mismatch: %+v", col)
	}
	last := publisher.events[len(publisher.events)-1]
	if last.EventType != enums.EventDebtSettled {
		t.Fatalf("expected debt_settled, got %s", last.EventType)
	}
}

func TestSettleCashRequiresOpenShift(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	debt, err := svc.Create(ctx, CreateDebtInput{
		Plate:           "GHJK12",
		Origin:          enums.DebtOriginManual,
		PrincipalAmount: decimal.NewFromInt(3000),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Settle(ctx, SettleDebtInput{
		DebtID:     debt.ID,
		Method:     enums.PaymentMethodCash,
		OperatorID: uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNoOpenShift) {
		t.Fatalf("expected NO_OPEN_SHIFT, got %v", err)
	}

	_, err = svc.Settle(ctx, SettleDebtInput{
		DebtID: debt.ID,
		Method: enums.PaymentMethodCash,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNoOpenShift) {
		t.Fatalf("expected NO_OPEN_SHIFT without operator, got %v", err)
	}
}

func TestSettleTwiceRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	debt, err := svc.Create(ctx, CreateDebtInput{
		Plate:           "GHJK12",
		Origin:          enums.DebtOriginManual,
		PrincipalAmount: decimal.NewFromInt(3000),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Settle(ctx, SettleDebtInput{DebtID: debt.ID, Method: enums.PaymentMethodTransfer}); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	_, err = svc.Settle(ctx, SettleDebtInput{DebtID: debt.ID, Method: enums.PaymentMethodTransfer})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestCancelPendingOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	debt, err := svc.Create(ctx, CreateDebtInput{
		Plate:           "GHJK12",
		Origin:          enums.DebtOriginFine,
		PrincipalAmount: decimal.NewFromInt(15000),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, debt.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != enums.DebtStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := svc.Cancel(ctx, debt.ID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestListByPlateFiltersStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateDebtInput{Plate: "GHJK12", Origin: enums.DebtOriginManual, PrincipalAmount: decimal.NewFromInt(1000)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateDebtInput{Plate: "GHJK12", Origin: enums.DebtOriginManual, PrincipalAmount: decimal.NewFromInt(2000)}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Settle(ctx, SettleDebtInput{DebtID: first.ID, Method: enums.PaymentMethodCard}); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	pending := enums.DebtStatusPending
	debts, err := svc.ListByPlate(ctx, "gh jk 12", &pending)
	if err != nil {
		t.Fatalf("ListByPlate: %v", err)
	}
	if len(debts) != 1 || !debts[0].PrincipalAmount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected the pending 2000 debt, got %+v", debts)
	}
}
