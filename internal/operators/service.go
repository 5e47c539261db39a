package operators

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jmoris/stpark-backend/pkg/config"
	"github.com/jmoris/stpark-backend/pkg/db/models"
	"github.com/jmoris/stpark-backend/pkg/enums"
	pkgerrors "github.com/jmoris/stpark-backend/pkg/errors"
	"github.com/jmoris/stpark-backend/pkg/security"
)

// Service manages operator records and PIN verification. Withdrawals above
// the drawer use VerifyPin to countersign the movement.
type Service interface {
	Create(ctx context.Context, input CreateOperatorInput) (*models.Operator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Operator, error)
	ListActive(ctx context.Context) ([]models.Operator, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	VerifyPin(ctx context.Context, id uuid.UUID, pin string) error
}

// CreateOperatorInput captures the data needed to register an operator.
type CreateOperatorInput struct {
	Name     string             `json:"name"`
	SectorID *uuid.UUID         `json:"sector_id"`
	Role     enums.OperatorRole `json:"role"`
	Pin      string             `json:"pin"`
}

type service struct {
	repo   Repository
	pinCfg config.PinConfig
}

// NewService wires an operator service with the provided repository.
func NewService(repo Repository, pinCfg config.PinConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("operator repository required")
	}
	return &service{repo: repo, pinCfg: pinCfg}, nil
}

func (s *service) Create(ctx context.Context, input CreateOperatorInput) (*models.Operator, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator name required")
	}
	if len(input.Pin) < 4 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pin must be at least 4 characters")
	}
	role := input.Role
	if role == "" {
		role = enums.RoleOperator
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown operator role %q", role))
	}

	hash, err := security.HashPin(input.Pin, s.pinCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing pin")
	}

	operator := &models.Operator{
		Name:     name,
		SectorID: input.SectorID,
		Role:     role,
		PinHash:  hash,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, operator); err != nil {
		return nil, err
	}
	return operator, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "operator id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListActive(ctx context.Context) ([]models.Operator, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	operator, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !operator.IsActive {
		return nil
	}
	operator.IsActive = false
	return s.repo.Update(ctx, operator)
}

func (s *service) VerifyPin(ctx context.Context, id uuid.UUID, pin string) error {
	operator, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !operator.IsActive {
		return pkgerrors.New(pkgerrors.CodeForbidden, "operator is inactive")
	}
	ok, err := security.VerifyPin(pin, operator.PinHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying pin")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "pin does not match")
	}
	return nil
}
