package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
)

// Repository manages persistence for discount definitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, def *models.DiscountDefinition) error
	FindByCode(ctx context.Context, code string) (*models.DiscountDefinition, error)
	List(ctx context.Context) ([]models.DiscountDefinition, error)
	Update(ctx context.Context, def *models.DiscountDefinition) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a discount repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, def *models.DiscountDefinition) error {
	return r.db.WithContext(ctx).Create(def).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.DiscountDefinition, error) {
	var def models.DiscountDefinition
	if err := r.db.WithContext(ctx).First(&def, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("discount code %q not found", code))
		}
		return nil, err
	}
	return &def, nil
}

func (r *repository) List(ctx context.Context) ([]models.DiscountDefinition, error) {
	var defs []models.DiscountDefinition
	if err := r.db.WithContext(ctx).
		Order("priority DESC, created_at ASC").
		Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *repository) Update(ctx context.Context, def *models.DiscountDefinition) error {
	return r.db.WithContext(ctx).Save(def).Error
}

// Resolver looks up stored definitions in their evaluation form.
type Resolver struct {
	repo Repository
}

// NewResolver wires a definition resolver over the discount repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// FindByCode loads and validates the definition for a redemption code.
// Codes are matched case-insensitively on their uppercase form.
func (r *Resolver) FindByCode(ctx context.Context, code string) (*Definition, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}
	row, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	def, err := FromModel(*row)
	if err != nil {
		return nil, err
	}
	return &def, nil
}
