package operators

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// Repository manages persistence for street operators.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, operator *models.Operator) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Operator, error)
	Update(ctx context.Context, operator *models.Operator) error
	ListActive(ctx context.Context) ([]models.Operator, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an operator repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, operator *models.Operator) error {
	return r.db.WithContext(ctx).Create(operator).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.WithContext(ctx).First(&operator, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "operator not found")
		}
		return nil, err
	}
	return &operator, nil
}

func (r *repository) Update(ctx context.Context, operator *models.Operator) error {
	return r.db.WithContext(ctx).Save(operator).Error
}

func (r *repository) ListActive(ctx context.Context) ([]models.Operator, error) {
	var operators []models.Operator
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&operators).Error; err != nil {
		return nil, err
	}
	return operators, nil
}
