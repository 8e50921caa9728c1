package services

import (
	"context"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/repositories"
	apperrors "asset-transfer-system/pkg/errors"
)

type MovementLogServiceInterface interface {
	GetAssetHistory(ctx context.Context, serial string) ([]entities.MovementLog, error)
	GetMovements(ctx context.Context, limit, offset int) ([]entities.MovementLog, uint64, error)
}

// MovementLogService — только чтение журнала; записи делают оркестратор
// и машина состояний внутри своих транзакций.
type MovementLogService struct {
	movementRepo repositories.MovementLogRepositoryInterface
}

func NewMovementLogService(movementRepo repositories.MovementLogRepositoryInterface) *MovementLogService {
	return &MovementLogService{movementRepo: movementRepo}
}

// GetAssetHistory — полная история движений серийника в хронологическом порядке.
func (s *MovementLogService) GetAssetHistory(ctx context.Context, serial string) ([]entities.MovementLog, error) {
	if _, ok := authz.ScopeFromContext(ctx); !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}
	return s.movementRepo.FindBySerial(ctx, serial)
}

func (s *MovementLogService) GetMovements(ctx context.Context, limit, offset int) ([]entities.MovementLog, uint64, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, 0, apperrors.ErrUserNotFoundInContext
	}
	return s.movementRepo.GetMovements(ctx, scope.BranchIDs(), limit, offset)
}
