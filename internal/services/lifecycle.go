package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/events"
	"asset-transfer-system/internal/repositories"
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/eventbus"
)

type LifecycleServiceInterface interface {
	Transition(ctx context.Context, serial, assetType string, data dto.TransitionDTO, userID uint64) (*entities.Asset, error)
	GetKanbanStats(ctx context.Context, branchID *uint64) (*dto.KanbanStatsDTO, error)
}

// LifecycleService — машина состояний ремонтного цикла. Переход, журнал
// движений и закрытие ремонтной заявки фиксируются одной транзакцией.
type LifecycleService struct {
	txManager       repositories.TxManagerInterface
	machineRepo     repositories.MachineRepositoryInterface
	simRepo         repositories.SimRepositoryInterface
	maintenanceRepo repositories.MaintenanceRepositoryInterface
	movementRepo    repositories.MovementLogRepositoryInterface
	publisher       eventbus.Publisher
	logger          *zap.Logger
}

func NewLifecycleService(
	txManager repositories.TxManagerInterface,
	machineRepo repositories.MachineRepositoryInterface,
	simRepo repositories.SimRepositoryInterface,
	maintenanceRepo repositories.MaintenanceRepositoryInterface,
	movementRepo repositories.MovementLogRepositoryInterface,
	publisher eventbus.Publisher,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		txManager:       txManager,
		machineRepo:     machineRepo,
		simRepo:         simRepo,
		maintenanceRepo: maintenanceRepo,
		movementRepo:    movementRepo,
		publisher:       publisher,
		logger:          logger,
	}
}

func (s *LifecycleService) lockAsset(ctx context.Context, tx pgx.Tx, serial, assetType string) (*entities.Asset, error) {
	if assetType == constants.AssetTypeSim {
		sims, err := s.simRepo.LockBySerialsInTx(ctx, tx, []string{serial})
		if err != nil {
			return nil, err
		}
		if sim, ok := sims[serial]; ok {
			asset := sim.AsAsset()
			return &asset, nil
		}
		return nil, apperrors.NewNotFoundError("SIM-карта", "serial=%s", serial)
	}
	machines, err := s.machineRepo.LockBySerialsInTx(ctx, tx, []string{serial})
	if err != nil {
		return nil, err
	}
	if m, ok := machines[serial]; ok {
		asset := m.AsAsset()
		return &asset, nil
	}
	return nil, apperrors.NewNotFoundError("терминал", "serial=%s", serial)
}

// Transition переводит актив в следующий статус цикла. На решающих
// состояниях обязателен исход: там же закрывается ремонтная заявка.
func (s *LifecycleService) Transition(ctx context.Context, serial, assetType string, data dto.TransitionDTO, userID uint64) (*entities.Asset, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}
	if !authz.IsCenterRole(scope.Role) && !authz.IsPrivilegedRole(scope.Role) {
		return nil, apperrors.ErrForbidden
	}

	var asset *entities.Asset
	var fromStatus string
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		asset, err = s.lockAsset(ctx, tx, serial, assetType)
		if err != nil {
			return err
		}

		if !scope.Allows(asset.BranchID) {
			return &apperrors.ForbiddenError{UserID: userID, BranchID: asset.BranchID}
		}

		from := asset.Status
		fromStatus = from
		to := data.TargetStatus
		if !IsValidTransition(from, to) {
			return &apperrors.InvalidTransitionError{Serial: serial, From: from, To: to}
		}

		if IsDecisionState(to) {
			if !constants.IsKnownResolution(data.Resolution) {
				return apperrors.NewValidationError([]apperrors.Violation{{
					Serial: serial,
					Reason: "RESOLUTION_REQUIRED",
				}})
			}

			req, err := s.maintenanceRepo.FindActiveBySerial(ctx, serial)
			if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			if req != nil {
				parts := strings.Join(data.PartsUsed, ", ")
				if err := s.maintenanceRepo.CloseInTx(ctx, tx, req.ID, data.Resolution, data.RepairCost, parts); err != nil {
					return err
				}
			}
		}

		setStatus := s.machineRepo.UpdateStatusInTx
		if assetType == constants.AssetTypeSim {
			setStatus = s.simRepo.UpdateStatusInTx
		}
		if err := setStatus(ctx, tx, serial, to); err != nil {
			return err
		}
		asset.Status = to

		detail := fmt.Sprintf("%s -> %s", from, to)
		if data.Resolution != "" {
			detail += ", исход " + data.Resolution
		}
		if data.Notes != "" {
			detail += ": " + data.Notes
		}
		entry := repositories.NewMovementEntry(
			serial, asset.Type, constants.MovementActionTransition,
			asset.BranchID, asset.BranchID, userID, detail,
		)
		if err := s.movementRepo.CreateInTx(ctx, tx, entry); err != nil {
			return err
		}

		sysEntry := &entities.SystemLog{
			EntityType:  "asset",
			EntityID:    serial,
			Action:      constants.MovementActionTransition,
			PerformedBy: userID,
		}
		sysEntry.BranchID.SetValid(asset.BranchID)
		sysEntry.Detail.SetValid(detail)
		return s.movementRepo.CreateSystemInTx(ctx, tx, sysEntry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("переход жизненного цикла",
		zap.String("serial", serial),
		zap.String("status", asset.Status),
	)

	s.publisher.Publish(ctx, events.LifecycleTransitionEvent{
		Serial:      serial,
		AssetType:   asset.Type,
		BranchID:    asset.BranchID,
		FromStatus:  fromStatus,
		ToStatus:    asset.Status,
		Resolution:  data.Resolution,
		PerformedBy: userID,
	})

	return asset, nil
}

// GetKanbanStats — счётчики терминалов по состояниям цикла для доски центра.
func (s *LifecycleService) GetKanbanStats(ctx context.Context, branchID *uint64) (*dto.KanbanStatsDTO, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}
	if branchID != nil && !scope.Allows(*branchID) {
		return nil, apperrors.ErrForbidden
	}

	counts, err := s.machineRepo.CountByStatuses(ctx, branchID, LifecycleStates)
	if err != nil {
		return nil, err
	}

	stats := &dto.KanbanStatsDTO{Counts: make(map[string]uint64, len(LifecycleStates))}
	if branchID != nil {
		stats.BranchID = *branchID
	}
	// Пустые колонки доски тоже присутствуют в ответе.
	for _, state := range LifecycleStates {
		stats.Counts[state] = counts[state]
	}
	return stats, nil
}
