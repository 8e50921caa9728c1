package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/repositories"
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/types"
)

type MaintenanceServiceInterface interface {
	CreateRequest(ctx context.Context, data dto.CreateMaintenanceRequestDTO, userID uint64) (*entities.MaintenanceRequest, error)
	GetRequestByID(ctx context.Context, id uint64) (*entities.MaintenanceRequest, error)
	GetRequests(ctx context.Context, filter types.Filter) ([]entities.MaintenanceRequest, uint64, error)
}

// MaintenanceService открывает ремонтные заявки в филиалах. Дальше заявку
// ведут оркестратор перебросок (PENDING_TRANSFER/AT_CENTER) и машина
// состояний (закрытие с исходом).
type MaintenanceService struct {
	maintenanceRepo repositories.MaintenanceRepositoryInterface
	machineRepo     repositories.MachineRepositoryInterface
	simRepo         repositories.SimRepositoryInterface
	logger          *zap.Logger
}

func NewMaintenanceService(
	maintenanceRepo repositories.MaintenanceRepositoryInterface,
	machineRepo repositories.MachineRepositoryInterface,
	simRepo repositories.SimRepositoryInterface,
	logger *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		maintenanceRepo: maintenanceRepo,
		machineRepo:     machineRepo,
		simRepo:         simRepo,
		logger:          logger,
	}
}

func (s *MaintenanceService) findAsset(ctx context.Context, serial, assetType string) (*entities.Asset, error) {
	if assetType == constants.AssetTypeSim {
		sim, err := s.simRepo.FindBySerial(ctx, serial)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("SIM-карта", "serial=%s", serial)
		}
		if err != nil {
			return nil, err
		}
		asset := sim.AsAsset()
		return &asset, nil
	}
	machine, err := s.machineRepo.FindBySerial(ctx, serial)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("терминал", "serial=%s", serial)
	}
	if err != nil {
		return nil, err
	}
	asset := machine.AsAsset()
	return &asset, nil
}

// CreateRequest открывает заявку. По серийнику может быть не больше одной
// незакрытой заявки: повторное открытие — конфликт.
func (s *MaintenanceService) CreateRequest(ctx context.Context, data dto.CreateMaintenanceRequestDTO, userID uint64) (*entities.MaintenanceRequest, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}
	if !scope.Allows(data.BranchID) {
		return nil, &apperrors.ForbiddenError{UserID: userID, BranchID: data.BranchID}
	}

	asset, err := s.findAsset(ctx, data.Serial, data.AssetType)
	if err != nil {
		return nil, err
	}
	if asset.BranchID != data.BranchID {
		return nil, apperrors.NewValidationError([]apperrors.Violation{{
			Serial:   data.Serial,
			Reason:   apperrors.ReasonAssetNotFound,
			BranchID: data.BranchID,
		}})
	}

	existing, err := s.maintenanceRepo.FindActiveBySerial(ctx, data.Serial)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewConflictError([]apperrors.Violation{{
			Serial: data.Serial,
			Reason: "MAINTENANCE_ALREADY_OPEN",
		}})
	}

	req := &entities.MaintenanceRequest{
		Serial:    data.Serial,
		AssetType: data.AssetType,
		BranchID:  data.BranchID,
		Status:    constants.MaintenanceStatusOpen,
	}
	if data.Problem != "" {
		req.Problem.SetValid(data.Problem)
	}

	id, err := s.maintenanceRepo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	req.ID = id

	s.logger.Info("открыта ремонтная заявка",
		zap.Uint64("request_id", id),
		zap.String("serial", data.Serial),
	)
	return req, nil
}

func (s *MaintenanceService) GetRequestByID(ctx context.Context, id uint64) (*entities.MaintenanceRequest, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}

	req, err := s.maintenanceRepo.FindByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("ремонтная заявка", "id=%d", id)
	}
	if err != nil {
		return nil, err
	}
	if !scope.Allows(req.BranchID) {
		return nil, apperrors.ErrForbidden
	}
	return req, nil
}

func (s *MaintenanceService) GetRequests(ctx context.Context, filter types.Filter) ([]entities.MaintenanceRequest, uint64, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, 0, apperrors.ErrUserNotFoundInContext
	}
	return s.maintenanceRepo.GetRequests(ctx, filter, scope.BranchIDs())
}
