package services

import (
	"context"
	"errors"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/repositories"
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/types"
)

type AssetServiceInterface interface {
	GetMachines(ctx context.Context, filter types.Filter) ([]entities.Machine, uint64, error)
	GetSimCards(ctx context.Context, filter types.Filter) ([]entities.SimCard, uint64, error)
	FindAsset(ctx context.Context, serial, assetType string) (*entities.Asset, error)
}

// AssetService — чтение реестра активов в зоне видимости пользователя.
type AssetService struct {
	machineRepo repositories.MachineRepositoryInterface
	simRepo     repositories.SimRepositoryInterface
}

func NewAssetService(
	machineRepo repositories.MachineRepositoryInterface,
	simRepo repositories.SimRepositoryInterface,
) *AssetService {
	return &AssetService{machineRepo: machineRepo, simRepo: simRepo}
}

func (s *AssetService) GetMachines(ctx context.Context, filter types.Filter) ([]entities.Machine, uint64, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, 0, apperrors.ErrUserNotFoundInContext
	}
	return s.machineRepo.GetMachines(ctx, filter, scope.BranchIDs())
}

func (s *AssetService) GetSimCards(ctx context.Context, filter types.Filter) ([]entities.SimCard, uint64, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, 0, apperrors.ErrUserNotFoundInContext
	}
	return s.simRepo.GetSimCards(ctx, filter, scope.BranchIDs())
}

func (s *AssetService) FindAsset(ctx context.Context, serial, assetType string) (*entities.Asset, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}

	var asset entities.Asset
	if assetType == constants.AssetTypeSim {
		sim, err := s.simRepo.FindBySerial(ctx, serial)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("SIM-карта", "serial=%s", serial)
		}
		if err != nil {
			return nil, err
		}
		asset = sim.AsAsset()
	} else {
		machine, err := s.machineRepo.FindBySerial(ctx, serial)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("терминал", "serial=%s", serial)
		}
		if err != nil {
			return nil, err
		}
		asset = machine.AsAsset()
	}

	if !scope.Allows(asset.BranchID) {
		return nil, apperrors.ErrForbidden
	}
	return &asset, nil
}
