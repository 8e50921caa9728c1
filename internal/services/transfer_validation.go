package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/repositories"
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
)

// ValidationResult агрегирует нарушения; проверки никогда не
// останавливаются на первом сбое.
type ValidationResult struct {
	Violations []apperrors.Violation
}

func (r *ValidationResult) Add(v ...apperrors.Violation) {
	r.Violations = append(r.Violations, v...)
}

func (r *ValidationResult) Merge(other *ValidationResult) {
	if other != nil {
		r.Violations = append(r.Violations, other.Violations...)
	}
}

func (r *ValidationResult) OK() bool {
	return len(r.Violations) == 0
}

// HasConflict — есть ли среди нарушений занятость другим ордером.
func (r *ValidationResult) HasConflict() bool {
	for _, v := range r.Violations {
		if v.Reason == apperrors.ReasonDuplicateTransfer {
			return true
		}
	}
	return false
}

// AsError превращает результат в типизированную ошибку:
// конфликт занятости важнее прочих нарушений для вызывающей стороны.
func (r *ValidationResult) AsError() error {
	if r.OK() {
		return nil
	}
	if r.HasConflict() {
		return apperrors.NewConflictError(r.Violations)
	}
	return apperrors.NewValidationError(r.Violations)
}

// CheckTransferItems — чистая проверка позиций над снимком реестра.
// Используется и для предварительной проверки по пулу, и для
// авторитетной перепроверки по строкам, взятым под FOR UPDATE.
func CheckTransferItems(serials []string, assets map[string]entities.Asset, activeRefs []repositories.ActiveOrderRef, fromBranchID uint64) *ValidationResult {
	refsBySerial := make(map[string][]repositories.ActiveOrderRef, len(activeRefs))
	for _, ref := range activeRefs {
		refsBySerial[ref.Serial] = append(refsBySerial[ref.Serial], ref)
	}

	result := &ValidationResult{}
	for _, serial := range serials {
		asset, ok := assets[serial]
		if !ok || asset.BranchID != fromBranchID {
			result.Add(apperrors.Violation{
				Serial:   serial,
				Reason:   apperrors.ReasonAssetNotFound,
				BranchID: fromBranchID,
			})
			continue
		}

		if constants.IsTransferBlockedStatus(asset.Status) {
			result.Add(apperrors.Violation{
				Serial:      serial,
				Reason:      apperrors.ReasonAssetStatusFrozen,
				AssetStatus: asset.Status,
			})
		}

		for _, ref := range refsBySerial[serial] {
			result.Add(apperrors.Violation{
				Serial:             serial,
				Reason:             apperrors.ReasonDuplicateTransfer,
				ConflictingOrderNo: ref.OrderNo,
				ConflictFromBranch: ref.FromBranchID,
				ConflictToBranch:   ref.ToBranchID,
			})
		}
	}
	return result
}

// CheckBranches — чистая проверка пары филиалов для данного типа переброски.
// Отсутствующий филиал передаётся как nil.
func CheckBranches(fromBranchID, toBranchID uint64, from, to *entities.Branch, transferType string) *ValidationResult {
	result := &ValidationResult{}

	if fromBranchID == toBranchID {
		// Совпадение филиалов делает остальные проверки бессмысленными.
		result.Add(apperrors.Violation{Reason: apperrors.ReasonSameBranch, BranchID: fromBranchID})
		return result
	}

	checkBranch := func(id uint64, b *entities.Branch) {
		if b == nil {
			result.Add(apperrors.Violation{Reason: apperrors.ReasonBranchNotFound, BranchID: id})
			return
		}
		if !b.IsActive {
			result.Add(apperrors.Violation{Reason: apperrors.ReasonBranchInactive, BranchID: id})
		}
	}
	checkBranch(fromBranchID, from)
	checkBranch(toBranchID, to)

	if constants.IsMaintenanceTransferType(transferType) && to != nil && !to.IsMaintenanceCenter() {
		result.Add(apperrors.Violation{Reason: apperrors.ReasonNotCenterBranch, BranchID: toBranchID})
	}

	return result
}

// CheckUserPermission — источник переброски должен входить в авторизованный
// набор филиалов, либо роль обходит фильтрацию.
func CheckUserPermission(scope *authz.BranchScope, fromBranchID uint64) *ValidationResult {
	result := &ValidationResult{}
	if !scope.Allows(fromBranchID) {
		result.Add(apperrors.Violation{Reason: apperrors.ReasonBranchForbidden, BranchID: fromBranchID})
	}
	return result
}

type TransferValidationServiceInterface interface {
	ValidateItemsForTransfer(ctx context.Context, serials []string, assetType string, fromBranchID uint64) (*ValidationResult, error)
	ValidateBranches(ctx context.Context, fromBranchID, toBranchID uint64, transferType string) (*ValidationResult, error)
	ValidateTransferOrder(ctx context.Context, data dto.CreateTransferOrderDTO, scope *authz.BranchScope) (*ValidationResult, error)
}

// TransferValidationService — движок проверок. Сам ничего не пишет;
// читает реестр активов, филиалы и активные ордера.
type TransferValidationService struct {
	machineRepo  repositories.MachineRepositoryInterface
	simRepo      repositories.SimRepositoryInterface
	branchRepo   repositories.BranchRepositoryInterface
	transferRepo repositories.TransferRepositoryInterface
	logger       *zap.Logger
}

func NewTransferValidationService(
	machineRepo repositories.MachineRepositoryInterface,
	simRepo repositories.SimRepositoryInterface,
	branchRepo repositories.BranchRepositoryInterface,
	transferRepo repositories.TransferRepositoryInterface,
	logger *zap.Logger,
) *TransferValidationService {
	return &TransferValidationService{
		machineRepo:  machineRepo,
		simRepo:      simRepo,
		branchRepo:   branchRepo,
		transferRepo: transferRepo,
		logger:       logger,
	}
}

func (s *TransferValidationService) loadAssets(ctx context.Context, serials []string, assetType string) (map[string]entities.Asset, error) {
	assets := make(map[string]entities.Asset, len(serials))
	switch assetType {
	case constants.AssetTypeSim:
		sims, err := s.simRepo.FindBySerials(ctx, serials)
		if err != nil {
			return nil, err
		}
		for serial, sim := range sims {
			assets[serial] = sim.AsAsset()
		}
	default:
		machines, err := s.machineRepo.FindBySerials(ctx, serials)
		if err != nil {
			return nil, err
		}
		for serial, machine := range machines {
			assets[serial] = machine.AsAsset()
		}
	}
	return assets, nil
}

func (s *TransferValidationService) ValidateItemsForTransfer(ctx context.Context, serials []string, assetType string, fromBranchID uint64) (*ValidationResult, error) {
	assets, err := s.loadAssets(ctx, serials, assetType)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения реестра активов: %w", err)
	}

	refs, err := s.transferRepo.FindActiveRefsBySerials(ctx, serials, assetType)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска активных ордеров: %w", err)
	}

	return CheckTransferItems(serials, assets, refs, fromBranchID), nil
}

func (s *TransferValidationService) ValidateBranches(ctx context.Context, fromBranchID, toBranchID uint64, transferType string) (*ValidationResult, error) {
	from, err := s.findBranch(ctx, fromBranchID)
	if err != nil {
		return nil, err
	}
	to, err := s.findBranch(ctx, toBranchID)
	if err != nil {
		return nil, err
	}
	return CheckBranches(fromBranchID, toBranchID, from, to, transferType), nil
}

func (s *TransferValidationService) findBranch(ctx context.Context, id uint64) (*entities.Branch, error) {
	branch, err := s.branchRepo.FindBranch(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return branch, err
}

// ValidateTransferOrder агрегирует все нарушения. Единственное допустимое
// сокращение: при непригодных филиалах (совпадение/неизвестный источник)
// проверка позиций не выполняется — её результат был бы бессмысленным.
func (s *TransferValidationService) ValidateTransferOrder(ctx context.Context, data dto.CreateTransferOrderDTO, scope *authz.BranchScope) (*ValidationResult, error) {
	result := &ValidationResult{}

	branchRes, err := s.ValidateBranches(ctx, data.FromBranchID, data.ToBranchID, data.Type)
	if err != nil {
		return nil, err
	}
	result.Merge(branchRes)

	result.Merge(CheckUserPermission(scope, data.FromBranchID))

	for _, v := range branchRes.Violations {
		if v.Reason == apperrors.ReasonSameBranch ||
			(v.Reason == apperrors.ReasonBranchNotFound && v.BranchID == data.FromBranchID) {
			return result, nil
		}
	}

	assetType := constants.AssetTypeForTransferType(data.Type)
	itemRes, err := s.ValidateItemsForTransfer(ctx, data.Serials, assetType, data.FromBranchID)
	if err != nil {
		return nil, err
	}
	result.Merge(itemRes)

	return result, nil
}
