package shifts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// Repository manages persistence for shifts and their append-only ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shift *models.Shift) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*models.Shift, error)
	Update(ctx context.Context, shift *models.Shift) error
	AppendOperation(ctx context.Context, op *models.ShiftOperation) error
	ListOperations(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftOperation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shift repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shift *models.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	if err := r.db.WithContext(ctx).First(&shift, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
		}
		return nil, err
	}
	return &shift, nil
}

func (r *repository) FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).
		Where("operator_id = ? AND status = ?", operatorID, enums.ShiftStatusOpen).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shift, nil
}

func (r *repository) Update(ctx context.Context, shift *models.Shift) error {
	return r.db.WithContext(ctx).Save(shift).Error
}

func (r *repository) AppendOperation(ctx context.Context, op *models.ShiftOperation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *repository) ListOperations(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftOperation, error) {
	var ops []models.ShiftOperation
	if err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("at ASC").
		Order("created_at ASC").
		Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}
