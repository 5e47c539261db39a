package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/pagination"
)

// Repository manages persistence for sessions and their billing rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.ParkingSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ParkingSession, error)
	FindActiveByPlate(ctx context.Context, plate string) (*models.ParkingSession, error)
	Update(ctx context.Context, session *models.ParkingSession) error
	ListByPlate(ctx context.Context, plate string, limit int) ([]models.ParkingSession, error)
	ListActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]models.ParkingSession, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a session repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.ParkingSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ParkingSession, error) {
	var session models.ParkingSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, err
	}
	return &session, nil
}

// FindActiveByPlate returns the plate's active session, or nil when the
// plate is not currently parked.
func (r *repository) FindActiveByPlate(ctx context.Context, plate string) (*models.ParkingSession, error) {
	var session models.ParkingSession
	err := r.db.WithContext(ctx).
		Where("plate = ? AND status = ?", plate, enums.SessionStatusActive).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) Update(ctx context.Context, session *models.ParkingSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *repository) ListByPlate(ctx context.Context, plate string, limit int) ([]models.ParkingSession, error) {
	limit = pagination.NormalizeLimit(limit)
	var sessions []models.ParkingSession
	if err := r.db.WithContext(ctx).
		Where("plate = ?", plate).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListActiveStartedBefore feeds the stale-session sweep.
func (r *repository) ListActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]models.ParkingSession, error) {
	var sessions []models.ParkingSession
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", enums.SessionStatusActive, cutoff).
		Order("started_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}
