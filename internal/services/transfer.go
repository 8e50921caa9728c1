package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/events"
	"asset-transfer-system/internal/repositories"
	"asset-transfer-system/pkg/constants"
	"asset-transfer-system/pkg/contextkeys"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/eventbus"
	"asset-transfer-system/pkg/types"
)

type TransferServiceInterface interface {
	CreateTransferOrder(ctx context.Context, data dto.CreateTransferOrderDTO, userID uint64) (*entities.TransferOrder, error)
	CreateBulkTransfer(ctx context.Context, data dto.CreateBulkTransferDTO, userID uint64) (*entities.TransferOrder, error)
	ReceiveTransferOrder(ctx context.Context, orderID uint64, data dto.ReceiveTransferOrderDTO, userID uint64) (*entities.TransferOrder, error)
	CancelTransferOrder(ctx context.Context, orderID uint64, userID uint64) (*entities.TransferOrder, error)
	GetTransferOrderByID(ctx context.Context, orderID uint64) (*entities.TransferOrder, error)
	GetTransferOrders(ctx context.Context, filter types.Filter) ([]entities.TransferOrder, uint64, error)
	GetPendingOrders(ctx context.Context, filter types.Filter) ([]entities.TransferOrder, uint64, error)
	GetPendingSerials(ctx context.Context) ([]string, error)
}

// TransferService — оркестратор перебросок. Создание и приём ордера —
// единая транзакция: ордер, позиции, заморозка активов и журнал движений
// фиксируются вместе или не фиксируются вовсе.
type TransferService struct {
	txManager       repositories.TxManagerInterface
	transferRepo    repositories.TransferRepositoryInterface
	machineRepo     repositories.MachineRepositoryInterface
	simRepo         repositories.SimRepositoryInterface
	maintenanceRepo repositories.MaintenanceRepositoryInterface
	movementRepo    repositories.MovementLogRepositoryInterface
	validation      TransferValidationServiceInterface
	publisher       eventbus.Publisher
	logger          *zap.Logger
}

func NewTransferService(
	txManager repositories.TxManagerInterface,
	transferRepo repositories.TransferRepositoryInterface,
	machineRepo repositories.MachineRepositoryInterface,
	simRepo repositories.SimRepositoryInterface,
	maintenanceRepo repositories.MaintenanceRepositoryInterface,
	movementRepo repositories.MovementLogRepositoryInterface,
	validation TransferValidationServiceInterface,
	publisher eventbus.Publisher,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		txManager:       txManager,
		transferRepo:    transferRepo,
		machineRepo:     machineRepo,
		simRepo:         simRepo,
		maintenanceRepo: maintenanceRepo,
		movementRepo:    movementRepo,
		validation:      validation,
		publisher:       publisher,
		logger:          logger,
	}
}

// generateOrderNo — человекочитаемый номер ордера: дата + хвост UUID.
func generateOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TRF-%s-%s", now.Format("20060102"), suffix)
}

func (s *TransferService) lockAssets(ctx context.Context, tx pgx.Tx, serials []string, assetType string) (map[string]entities.Asset, error) {
	assets := make(map[string]entities.Asset, len(serials))
	if assetType == constants.AssetTypeSim {
		sims, err := s.simRepo.LockBySerialsInTx(ctx, tx, serials)
		if err != nil {
			return nil, err
		}
		for serial, sim := range sims {
			assets[serial] = sim.AsAsset()
		}
		return assets, nil
	}
	machines, err := s.machineRepo.LockBySerialsInTx(ctx, tx, serials)
	if err != nil {
		return nil, err
	}
	for serial, machine := range machines {
		assets[serial] = machine.AsAsset()
	}
	return assets, nil
}

func (s *TransferService) setAssetStatus(ctx context.Context, tx pgx.Tx, serial, assetType, status string) error {
	if assetType == constants.AssetTypeSim {
		return s.simRepo.UpdateStatusInTx(ctx, tx, serial, status)
	}
	return s.machineRepo.UpdateStatusInTx(ctx, tx, serial, status)
}

func (s *TransferService) setAssetStatusAndBranch(ctx context.Context, tx pgx.Tx, serial, assetType, status string, branchID uint64) error {
	if assetType == constants.AssetTypeSim {
		return s.simRepo.UpdateStatusAndBranchInTx(ctx, tx, serial, status, branchID)
	}
	return s.machineRepo.UpdateStatusAndBranchInTx(ctx, tx, serial, status, branchID)
}

func (s *TransferService) CreateTransferOrder(ctx context.Context, data dto.CreateTransferOrderDTO, userID uint64) (*entities.TransferOrder, error) {
	return s.createOrder(ctx, data, "", userID)
}

// CreateBulkTransfer — сервисный сценарий с накладной: несколько десятков
// серийников одним ордером. Проверки и транзакция те же.
func (s *TransferService) CreateBulkTransfer(ctx context.Context, data dto.CreateBulkTransferDTO, userID uint64) (*entities.TransferOrder, error) {
	base := dto.CreateTransferOrderDTO{
		FromBranchID: data.FromBranchID,
		ToBranchID:   data.ToBranchID,
		Type:         data.Type,
		Serials:      data.Serials,
		Notes:        data.Notes,
	}
	return s.createOrder(ctx, base, data.Waybill, userID)
}

func (s *TransferService) createOrder(ctx context.Context, data dto.CreateTransferOrderDTO, waybill string, userID uint64) (*entities.TransferOrder, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}
	if !authz.IsPrivilegedRole(scope.Role) {
		return nil, apperrors.ErrForbidden
	}

	serials := dedupeSerials(data.Serials)
	// Список из пробелов схлопывается в пустой: ордер без позиций не создаём.
	if len(serials) == 0 {
		return nil, apperrors.NewValidationError([]apperrors.Violation{{Reason: apperrors.ReasonEmptySerialList}})
	}
	data.Serials = serials

	// Предварительная проверка по пулу: быстрый отказ без открытия транзакции.
	result, err := s.validation.ValidateTransferOrder(ctx, data, scope)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(data.FromBranchID) {
		return nil, &apperrors.ForbiddenError{UserID: userID, BranchID: data.FromBranchID}
	}
	if err := result.AsError(); err != nil {
		return nil, err
	}

	assetType := constants.AssetTypeForTransferType(data.Type)
	order := &entities.TransferOrder{
		OrderNo:      generateOrderNo(time.Now()),
		FromBranchID: data.FromBranchID,
		ToBranchID:   data.ToBranchID,
		Type:         data.Type,
		Status:       constants.TransferStatusPending,
		CreatedBy:    userID,
	}
	if waybill != "" {
		order.Waybill.SetValid(waybill)
	}
	if data.Notes != "" {
		order.Notes.SetValid(data.Notes)
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		// Авторитетная перепроверка по строкам, взятым под FOR UPDATE:
		// между предварительной проверкой и блокировкой активы могли уйти.
		lockedAssets, err := s.lockAssets(ctx, tx, serials, assetType)
		if err != nil {
			return err
		}
		refs, err := s.transferRepo.FindActiveRefsBySerialsInTx(ctx, tx, serials, assetType)
		if err != nil {
			return err
		}
		if checked := CheckTransferItems(serials, lockedAssets, refs, data.FromBranchID); !checked.OK() {
			return checked.AsError()
		}

		orderID, err := s.transferRepo.CreateOrderInTx(ctx, tx, order)
		if err != nil {
			return err
		}
		order.ID = orderID

		items := make([]entities.TransferOrderItem, 0, len(serials))
		for _, serial := range serials {
			items = append(items, entities.TransferOrderItem{Serial: serial, ItemType: assetType})
		}
		if err := s.transferRepo.CreateItemsInTx(ctx, tx, orderID, items); err != nil {
			return err
		}
		order.Items = items

		activeRequests, err := s.maintenanceRepo.FindActiveBySerialsInTx(ctx, tx, serials)
		if err != nil {
			return err
		}

		for _, serial := range serials {
			if err := s.setAssetStatus(ctx, tx, serial, assetType, constants.AssetStatusInTransit); err != nil {
				return err
			}

			// Открытая ремонтная заявка едет вместе с активом.
			if req, ok := activeRequests[serial]; ok && req.Status == constants.MaintenanceStatusOpen {
				if err := s.maintenanceRepo.UpdateStatusInTx(ctx, tx, req.ID, constants.MaintenanceStatusPendingTransfer); err != nil {
					return err
				}
			}

			entry := repositories.NewMovementEntry(
				serial, assetType, constants.MovementActionCreated,
				data.FromBranchID, data.ToBranchID, userID,
				fmt.Sprintf("ордер %s", order.OrderNo),
			)
			if err := s.movementRepo.CreateInTx(ctx, tx, entry); err != nil {
				return err
			}
		}

		sysEntry := &entities.SystemLog{
			EntityType:  "transfer_order",
			EntityID:    fmt.Sprint(orderID),
			Action:      constants.MovementActionCreated,
			PerformedBy: userID,
		}
		sysEntry.BranchID.SetValid(data.FromBranchID)
		sysEntry.Detail.SetValid(fmt.Sprintf("ордер %s: %d позиций", order.OrderNo, len(serials)))
		return s.movementRepo.CreateSystemInTx(ctx, tx, sysEntry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("создан ордер переброски",
		zap.Uint64("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.String("type", order.Type),
		zap.Int("items", len(serials)),
	)

	s.publisher.Publish(ctx, events.TransferCreatedEvent{
		OrderID:      order.ID,
		OrderNo:      order.OrderNo,
		Type:         order.Type,
		FromBranchID: order.FromBranchID,
		ToBranchID:   order.ToBranchID,
		Serials:      serials,
		CreatedBy:    userID,
	})

	return order, nil
}

// ReceiveTransferOrder отмечает приём серийников на стороне назначения.
// Частичный приём допустим: статус ордера пересчитывается из позиций.
func (s *TransferService) ReceiveTransferOrder(ctx context.Context, orderID uint64, data dto.ReceiveTransferOrderDTO, userID uint64) (*entities.TransferOrder, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}

	serials := dedupeSerials(data.Serials)

	var order *entities.TransferOrder
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = s.transferRepo.LockOrderInTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if !scope.Allows(order.ToBranchID) {
			return &apperrors.ForbiddenError{UserID: userID, BranchID: order.ToBranchID}
		}
		if order.Status == constants.TransferStatusCancelled {
			return apperrors.NewConflictError([]apperrors.Violation{{
				Reason:             apperrors.ReasonDuplicateTransfer,
				ConflictingOrderNo: order.OrderNo,
			}})
		}
		// В полностью принятом ордере непринятых позиций не осталось.
		if order.Status == constants.TransferStatusReceived {
			return apperrors.NewNotFoundError("непринятая позиция", "ордер %s уже принят полностью", order.OrderNo)
		}

		itemsBySerial := make(map[string]*entities.TransferOrderItem, len(order.Items))
		for i := range order.Items {
			itemsBySerial[order.Items[i].Serial] = &order.Items[i]
		}

		isMaintenance := constants.IsMaintenanceTransferType(order.Type)
		var activeRequests map[string]entities.MaintenanceRequest
		if isMaintenance {
			activeRequests, err = s.maintenanceRepo.FindActiveBySerialsInTx(ctx, tx, serials)
			if err != nil {
				return err
			}
		}

		for _, serial := range serials {
			item, known := itemsBySerial[serial]
			if !known {
				return apperrors.NewNotFoundError("позиция ордера", "order_id=%d serial=%s", orderID, serial)
			}
			// Повторный приём той же позиции — no-op.
			if item.Received {
				continue
			}

			if err := s.transferRepo.MarkItemReceivedInTx(ctx, tx, orderID, serial); err != nil {
				return err
			}
			item.Received = true

			targetStatus := constants.AssetStatusStandby
			if isMaintenance {
				targetStatus = constants.AssetStatusReceivedAtCenter
			}
			if err := s.setAssetStatusAndBranch(ctx, tx, serial, item.ItemType, targetStatus, order.ToBranchID); err != nil {
				return err
			}

			if req, ok := activeRequests[serial]; ok && req.Status == constants.MaintenanceStatusPendingTransfer {
				if err := s.maintenanceRepo.UpdateStatusInTx(ctx, tx, req.ID, constants.MaintenanceStatusAtCenter); err != nil {
					return err
				}
			}

			entry := repositories.NewMovementEntry(
				serial, item.ItemType, constants.MovementActionReceived,
				order.FromBranchID, order.ToBranchID, userID,
				fmt.Sprintf("ордер %s", order.OrderNo),
			)
			if err := s.movementRepo.CreateInTx(ctx, tx, entry); err != nil {
				return err
			}
		}

		order.Status = order.ComputeStatus()
		if err := s.transferRepo.UpdateOrderStatusInTx(ctx, tx, orderID, order.Status); err != nil {
			return err
		}

		sysEntry := &entities.SystemLog{
			EntityType:  "transfer_order",
			EntityID:    fmt.Sprint(orderID),
			Action:      constants.MovementActionReceived,
			PerformedBy: userID,
		}
		sysEntry.BranchID.SetValid(order.ToBranchID)
		sysEntry.Detail.SetValid(fmt.Sprintf("ордер %s: принято %d, статус %s", order.OrderNo, len(serials), order.Status))
		return s.movementRepo.CreateSystemInTx(ctx, tx, sysEntry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("принят ордер переброски",
		zap.Uint64("order_id", order.ID),
		zap.String("status", order.Status),
		zap.Int("received", len(serials)),
	)

	s.publisher.Publish(ctx, events.TransferReceivedEvent{
		OrderID:      order.ID,
		OrderNo:      order.OrderNo,
		Status:       order.Status,
		FromBranchID: order.FromBranchID,
		ToBranchID:   order.ToBranchID,
		Serials:      serials,
		ReceivedBy:   userID,
	})

	return order, nil
}

// CancelTransferOrder отменяет активный ордер. Непринятые активы
// размораживаются в STANDBY на исходном филиале; принятые остаются
// на назначении, их история не переписывается.
func (s *TransferService) CancelTransferOrder(ctx context.Context, orderID uint64, userID uint64) (*entities.TransferOrder, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}

	var order *entities.TransferOrder
	var cancelled []string
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = s.transferRepo.LockOrderInTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if !scope.Allows(order.FromBranchID) {
			return &apperrors.ForbiddenError{UserID: userID, BranchID: order.FromBranchID}
		}
		if constants.IsFinalTransferStatus(order.Status) {
			return apperrors.NewConflictError([]apperrors.Violation{{
				Reason:             apperrors.ReasonDuplicateTransfer,
				ConflictingOrderNo: order.OrderNo,
			}})
		}

		var activeRequests map[string]entities.MaintenanceRequest
		if constants.IsMaintenanceTransferType(order.Type) {
			pending := make([]string, 0, len(order.Items))
			for _, item := range order.Items {
				if !item.Received {
					pending = append(pending, item.Serial)
				}
			}
			activeRequests, err = s.maintenanceRepo.FindActiveBySerialsInTx(ctx, tx, pending)
			if err != nil {
				return err
			}
		}

		for _, item := range order.Items {
			if item.Received {
				continue
			}
			cancelled = append(cancelled, item.Serial)

			if err := s.setAssetStatus(ctx, tx, item.Serial, item.ItemType, constants.AssetStatusStandby); err != nil {
				return err
			}

			// Заявка на ремонт возвращается в исходное состояние: актив никуда не уехал.
			if req, ok := activeRequests[item.Serial]; ok && req.Status == constants.MaintenanceStatusPendingTransfer {
				if err := s.maintenanceRepo.UpdateStatusInTx(ctx, tx, req.ID, constants.MaintenanceStatusOpen); err != nil {
					return err
				}
			}

			entry := repositories.NewMovementEntry(
				item.Serial, item.ItemType, constants.MovementActionCancelled,
				order.FromBranchID, order.ToBranchID, userID,
				fmt.Sprintf("ордер %s отменён", order.OrderNo),
			)
			if err := s.movementRepo.CreateInTx(ctx, tx, entry); err != nil {
				return err
			}
		}

		order.Status = constants.TransferStatusCancelled
		if err := s.transferRepo.UpdateOrderStatusInTx(ctx, tx, orderID, order.Status); err != nil {
			return err
		}

		sysEntry := &entities.SystemLog{
			EntityType:  "transfer_order",
			EntityID:    fmt.Sprint(orderID),
			Action:      constants.MovementActionCancelled,
			PerformedBy: userID,
		}
		sysEntry.BranchID.SetValid(order.FromBranchID)
		sysEntry.Detail.SetValid(fmt.Sprintf("ордер %s отменён, разморожено %d позиций", order.OrderNo, len(cancelled)))
		return s.movementRepo.CreateSystemInTx(ctx, tx, sysEntry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("отменён ордер переброски",
		zap.Uint64("order_id", order.ID),
		zap.Int("released", len(cancelled)),
	)

	s.publisher.Publish(ctx, events.TransferCancelledEvent{
		OrderID:      order.ID,
		OrderNo:      order.OrderNo,
		FromBranchID: order.FromBranchID,
		ToBranchID:   order.ToBranchID,
		Serials:      cancelled,
		CancelledBy:  userID,
	})

	return order, nil
}

func (s *TransferService) GetTransferOrderByID(ctx context.Context, orderID uint64) (*entities.TransferOrder, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}

	order, err := s.transferRepo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Ордер видят обе стороны переброски.
	if !scope.Allows(order.FromBranchID) && !scope.Allows(order.ToBranchID) {
		userID, _ := ctx.Value(contextkeys.UserIDKey).(uint64)
		return nil, &apperrors.ForbiddenError{UserID: userID, BranchID: order.FromBranchID}
	}
	return order, nil
}

func (s *TransferService) GetTransferOrders(ctx context.Context, filter types.Filter) ([]entities.TransferOrder, uint64, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, 0, apperrors.ErrUserNotFoundInContext
	}
	return s.transferRepo.GetTransferOrders(ctx, filter, scope.BranchIDs())
}

// GetPendingOrders — активные (PENDING/PARTIAL) ордера в зоне видимости:
// очередь приёма на стороне назначения.
func (s *TransferService) GetPendingOrders(ctx context.Context, filter types.Filter) ([]entities.TransferOrder, uint64, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, 0, apperrors.ErrUserNotFoundInContext
	}
	if filter.Filter == nil {
		filter.Filter = make(map[string]interface{}, 1)
	}
	filter.Filter["status"] = constants.ActiveTransferStatuses
	return s.transferRepo.GetTransferOrders(ctx, filter, scope.BranchIDs())
}

// GetPendingSerials — серийники, занятые активными ордерами, для подсветки
// в интерфейсе реестра.
func (s *TransferService) GetPendingSerials(ctx context.Context) ([]string, error) {
	scope, ok := authz.ScopeFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUserNotFoundInContext
	}
	return s.transferRepo.GetPendingSerials(ctx, scope.BranchIDs())
}

func dedupeSerials(serials []string) []string {
	seen := make(map[string]struct{}, len(serials))
	out := make([]string, 0, len(serials))
	for _, s := range serials {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
