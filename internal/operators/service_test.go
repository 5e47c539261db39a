package operators

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/config"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

type fakeRepo struct {
	byID map[uuid.UUID]*models.Operator
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]*models.Operator{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, operator *models.Operator) error {
	if operator.ID == uuid.Nil {
		operator.ID = uuid.New()
	}
	f.byID[operator.ID] = operator
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Operator, error) {
	operator, ok := f.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "operator not found")
	}
	copied := *operator
	return &copied, nil
}

func (f *fakeRepo) Update(_ context.Context, operator *models.Operator) error {
	f.byID[operator.ID] = operator
	return nil
}

func (f *fakeRepo) ListActive(_ context.Context) ([]models.Operator, error) {
	var out []models.Operator
	for _, op := range f.byID {
		if op.IsActive {
			out = append(out, *op)
		}
	}
	return out, nil
}

func testService(t *testing.T) (Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc, err := NewService(repo, config.PinConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func TestCreateAndVerifyPin(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	operator, err := svc.Create(ctx, CreateOperatorInput{Name: "Maria Soto", Pin: "4821"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if operator.PinHash == "" || operator.PinHash == "4821" {
		t.Fatalf("expected hashed pin, got %q", operator.PinHash)
	}

	if err := svc.VerifyPin(ctx, operator.ID, "4821"); err != nil {
		t.Fatalf("VerifyPin with correct pin: %v", err)
	}

	err = svc.VerifyPin(ctx, operator.ID, "9999")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED for wrong pin, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateOperatorInput{Name: " ", Pin: "4821"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for blank name, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateOperatorInput{Name: "Maria", Pin: "12"}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR for short pin, got %v", err)
	}
}

func TestVerifyPinInactiveOperator(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	operator, err := svc.Create(ctx, CreateOperatorInput{Name: "Maria Soto", Pin: "4821"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Deactivate(ctx, operator.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	err = svc.VerifyPin(ctx, operator.ID, "4821")
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for inactive operator, got %v", err)
	}
}
