package debts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// Repository manages persistence for debt rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, debt *models.Debt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Debt, error)
	Update(ctx context.Context, debt *models.Debt) error
	ListByPlate(ctx context.Context, plate string, status *enums.DebtStatus) ([]models.Debt, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a debt repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, debt *models.Debt) error {
	return r.db.WithContext(ctx).Create(debt).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Debt, error) {
	var debt models.Debt
	if err := r.db.WithContext(ctx).First(&debt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "debt not found")
		}
		return nil, err
	}
	return &debt, nil
}

func (r *repository) Update(ctx context.Context, debt *models.Debt) error {
	return r.db.WithContext(ctx).Save(debt).Error
}

func (r *repository) ListByPlate(ctx context.Context, plate string, status *enums.DebtStatus) ([]models.Debt, error) {
	query := r.db.WithContext(ctx).Where("plate = ?", plate)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var debts []models.Debt
	if err := query.Order("created_at DESC").Find(&debts).Error; err != nil {
		return nil, err
	}
	return debts, nil
}
