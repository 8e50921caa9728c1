package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// --- ОБЩЕЕ IN-MEMORY ХРАНИЛИЩЕ ДЛЯ ФЕЙКОВ ---

type fakeStore struct {
	branches    map[uint64]entities.Branch
	machines    map[string]entities.Machine
	sims        map[string]entities.SimCard
	orders      map[uint64]*entities.TransferOrder
	maintenance map[uint64]*entities.MaintenanceRequest
	movements   []entities.MovementLog
	systemLogs  []entities.SystemLog
	nextID      uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		branches:    make(map[uint64]entities.Branch),
		machines:    make(map[string]entities.Machine),
		sims:        make(map[string]entities.SimCard),
		orders:      make(map[uint64]*entities.TransferOrder),
		maintenance: make(map[uint64]*entities.MaintenanceRequest),
		nextID:      1,
	}
}

func (s *fakeStore) id() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

type storeSnapshot struct {
	machines    map[string]entities.Machine
	sims        map[string]entities.SimCard
	orders      map[uint64]*entities.TransferOrder
	maintenance map[uint64]*entities.MaintenanceRequest
	movements   []entities.MovementLog
	systemLogs  []entities.SystemLog
	nextID      uint64
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		machines:    make(map[string]entities.Machine, len(s.machines)),
		sims:        make(map[string]entities.SimCard, len(s.sims)),
		orders:      make(map[uint64]*entities.TransferOrder, len(s.orders)),
		maintenance: make(map[uint64]*entities.MaintenanceRequest, len(s.maintenance)),
		movements:   append([]entities.MovementLog(nil), s.movements...),
		systemLogs:  append([]entities.SystemLog(nil), s.systemLogs...),
		nextID:      s.nextID,
	}
	for k, v := range s.machines {
		snap.machines[k] = v
	}
	for k, v := range s.sims {
		snap.sims[k] = v
	}
	for k, v := range s.orders {
		o := *v
		o.Items = append([]entities.TransferOrderItem(nil), v.Items...)
		snap.orders[k] = &o
	}
	for k, v := range s.maintenance {
		m := *v
		snap.maintenance[k] = &m
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.machines = snap.machines
	s.sims = snap.sims
	s.orders = snap.orders
	s.maintenance = snap.maintenance
	s.movements = snap.movements
	s.systemLogs = snap.systemLogs
	s.nextID = snap.nextID
}

// fakeTxManager имитирует транзакционность: при ошибке fn всё состояние
// откатывается к снимку.
type fakeTxManager struct {
	store *fakeStore
}

func (m *fakeTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	snap := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// --- ФЕЙКИ РЕПОЗИТОРИЕВ ---

type fakeMachineRepo struct{ store *fakeStore }

func (r *fakeMachineRepo) GetMachines(_ context.Context, _ types.Filter, _ []uint64) ([]entities.Machine, uint64, error) {
	return nil, 0, nil
}

func (r *fakeMachineRepo) FindBySerial(_ context.Context, serial string) (*entities.Machine, error) {
	if m, ok := r.store.machines[serial]; ok {
		return &m, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeMachineRepo) FindBySerials(_ context.Context, serials []string) (map[string]entities.Machine, error) {
	result := make(map[string]entities.Machine)
	for _, serial := range serials {
		if m, ok := r.store.machines[serial]; ok {
			result[serial] = m
		}
	}
	return result, nil
}

func (r *fakeMachineRepo) LockBySerialsInTx(ctx context.Context, _ pgx.Tx, serials []string) (map[string]entities.Machine, error) {
	return r.FindBySerials(ctx, serials)
}

func (r *fakeMachineRepo) UpdateStatusInTx(_ context.Context, _ pgx.Tx, serial string, status string) error {
	m, ok := r.store.machines[serial]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.Status = status
	r.store.machines[serial] = m
	return nil
}

func (r *fakeMachineRepo) UpdateStatusAndBranchInTx(_ context.Context, _ pgx.Tx, serial string, status string, branchID uint64) error {
	m, ok := r.store.machines[serial]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.Status = status
	m.BranchID = branchID
	r.store.machines[serial] = m
	return nil
}

func (r *fakeMachineRepo) CountByStatuses(_ context.Context, branchID *uint64, statuses []string) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	for _, m := range r.store.machines {
		if branchID != nil && m.BranchID != *branchID {
			continue
		}
		for _, s := range statuses {
			if m.Status == s {
				counts[s]++
			}
		}
	}
	return counts, nil
}

type fakeSimRepo struct{ store *fakeStore }

func (r *fakeSimRepo) GetSimCards(_ context.Context, _ types.Filter, _ []uint64) ([]entities.SimCard, uint64, error) {
	return nil, 0, nil
}

func (r *fakeSimRepo) FindBySerial(_ context.Context, serial string) (*entities.SimCard, error) {
	if s, ok := r.store.sims[serial]; ok {
		return &s, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeSimRepo) FindBySerials(_ context.Context, serials []string) (map[string]entities.SimCard, error) {
	result := make(map[string]entities.SimCard)
	for _, serial := range serials {
		if s, ok := r.store.sims[serial]; ok {
			result[serial] = s
		}
	}
	return result, nil
}

func (r *fakeSimRepo) LockBySerialsInTx(ctx context.Context, _ pgx.Tx, serials []string) (map[string]entities.SimCard, error) {
	return r.FindBySerials(ctx, serials)
}

func (r *fakeSimRepo) UpdateStatusInTx(_ context.Context, _ pgx.Tx, serial string, status string) error {
	s, ok := r.store.sims[serial]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.Status = status
	r.store.sims[serial] = s
	return nil
}

func (r *fakeSimRepo) UpdateStatusAndBranchInTx(_ context.Context, _ pgx.Tx, serial string, status string, branchID uint64) error {
	s, ok := r.store.sims[serial]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.Status = status
	s.BranchID = branchID
	r.store.sims[serial] = s
	return nil
}

type fakeBranchRepo struct{ store *fakeStore }

func (r *fakeBranchRepo) GetBranches(_ context.Context, _ types.Filter) ([]entities.Branch, uint64, error) {
	return nil, 0, nil
}

func (r *fakeBranchRepo) FindBranch(_ context.Context, id uint64) (*entities.Branch, error) {
	if b, ok := r.store.branches[id]; ok {
		return &b, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeBranchRepo) FindBranches(_ context.Context, ids []uint64) (map[uint64]entities.Branch, error) {
	result := make(map[uint64]entities.Branch)
	for _, id := range ids {
		if b, ok := r.store.branches[id]; ok {
			result[id] = b
		}
	}
	return result, nil
}

func (r *fakeBranchRepo) GetHierarchyLinks(_ context.Context) ([]repositories.BranchLink, error) {
	links := make([]repositories.BranchLink, 0, len(r.store.branches))
	for _, b := range r.store.branches {
		links = append(links, repositories.BranchLink{ID: b.ID, ParentID: b.ParentID, IsActive: b.IsActive})
	}
	return links, nil
}

type fakeTransferRepo struct{ store *fakeStore }

func (r *fakeTransferRepo) CreateOrderInTx(_ context.Context, _ pgx.Tx, order *entities.TransferOrder) (uint64, error) {
	id := r.store.id()
	saved := *order
	saved.ID = id
	r.store.orders[id] = &saved
	return id, nil
}

func (r *fakeTransferRepo) CreateItemsInTx(_ context.Context, _ pgx.Tx, orderID uint64, items []entities.TransferOrderItem) error {
	order := r.store.orders[orderID]
	for _, item := range items {
		item.ID = r.store.id()
		item.OrderID = orderID
		order.Items = append(order.Items, item)
	}
	return nil
}

func (r *fakeTransferRepo) findActiveRefs(serials []string, itemType string) []repositories.ActiveOrderRef {
	want := make(map[string]struct{}, len(serials))
	for _, s := range serials {
		want[s] = struct{}{}
	}

	var refs []repositories.ActiveOrderRef
	for _, order := range r.store.orders {
		if constants.IsFinalTransferStatus(order.Status) {
			continue
		}
		for _, item := range order.Items {
			if item.ItemType != itemType {
				continue
			}
			if _, ok := want[item.Serial]; !ok {
				continue
			}
			refs = append(refs, repositories.ActiveOrderRef{
				Serial:       item.Serial,
				OrderID:      order.ID,
				OrderNo:      order.OrderNo,
				FromBranchID: order.FromBranchID,
				ToBranchID:   order.ToBranchID,
			})
		}
	}
	return refs
}

func (r *fakeTransferRepo) FindActiveRefsBySerials(_ context.Context, serials []string, itemType string) ([]repositories.ActiveOrderRef, error) {
	return r.findActiveRefs(serials, itemType), nil
}

func (r *fakeTransferRepo) FindActiveRefsBySerialsInTx(_ context.Context, _ pgx.Tx, serials []string, itemType string) ([]repositories.ActiveOrderRef, error) {
	return r.findActiveRefs(serials, itemType), nil
}

func (r *fakeTransferRepo) FindOrderByID(_ context.Context, id uint64) (*entities.TransferOrder, error) {
	order, ok := r.store.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("ордер переброски", "id=%d", id)
	}
	copied := *order
	copied.Items = append([]entities.TransferOrderItem(nil), order.Items...)
	return &copied, nil
}

func (r *fakeTransferRepo) LockOrderInTx(ctx context.Context, _ pgx.Tx, id uint64) (*entities.TransferOrder, error) {
	return r.FindOrderByID(ctx, id)
}

func (r *fakeTransferRepo) MarkItemReceivedInTx(_ context.Context, _ pgx.Tx, orderID uint64, serial string) error {
	order, ok := r.store.orders[orderID]
	if !ok {
		return apperrors.NewNotFoundError("ордер переброски", "id=%d", orderID)
	}
	for i := range order.Items {
		if order.Items[i].Serial == serial && !order.Items[i].Received {
			order.Items[i].Received = true
			return nil
		}
	}
	return apperrors.NewNotFoundError("позиция ордера", "order_id=%d serial=%s", orderID, serial)
}

func (r *fakeTransferRepo) UpdateOrderStatusInTx(_ context.Context, _ pgx.Tx, orderID uint64, status string) error {
	order, ok := r.store.orders[orderID]
	if !ok {
		return apperrors.NewNotFoundError("ордер переброски", "id=%d", orderID)
	}
	order.Status = status
	return nil
}

func (r *fakeTransferRepo) GetTransferOrders(_ context.Context, _ types.Filter, _ []uint64) ([]entities.TransferOrder, uint64, error) {
	return nil, 0, nil
}

func (r *fakeTransferRepo) GetPendingSerials(_ context.Context, _ []uint64) ([]string, error) {
	return nil, nil
}

type fakeMaintenanceRepo struct{ store *fakeStore }

func (r *fakeMaintenanceRepo) Create(_ context.Context, req *entities.MaintenanceRequest) (uint64, error) {
	id := r.store.id()
	saved := *req
	saved.ID = id
	r.store.maintenance[id] = &saved
	return id, nil
}

func (r *fakeMaintenanceRepo) FindByID(_ context.Context, id uint64) (*entities.MaintenanceRequest, error) {
	if m, ok := r.store.maintenance[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeMaintenanceRepo) FindActiveBySerial(_ context.Context, serial string) (*entities.MaintenanceRequest, error) {
	for _, m := range r.store.maintenance {
		if m.Serial == serial && m.Status != constants.MaintenanceStatusClosed {
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeMaintenanceRepo) FindActiveBySerialsInTx(_ context.Context, _ pgx.Tx, serials []string) (map[string]entities.MaintenanceRequest, error) {
	want := make(map[string]struct{}, len(serials))
	for _, s := range serials {
		want[s] = struct{}{}
	}
	result := make(map[string]entities.MaintenanceRequest)
	for _, m := range r.store.maintenance {
		if _, ok := want[m.Serial]; ok && m.Status != constants.MaintenanceStatusClosed {
			result[m.Serial] = *m
		}
	}
	return result, nil
}

func (r *fakeMaintenanceRepo) UpdateStatusInTx(_ context.Context, _ pgx.Tx, id uint64, status string) error {
	m, ok := r.store.maintenance[id]
	if !ok {
		return apperrors.NewNotFoundError("ремонтная заявка", "id=%d", id)
	}
	m.Status = status
	return nil
}

func (r *fakeMaintenanceRepo) CloseInTx(_ context.Context, _ pgx.Tx, id uint64, resolution string, repairCost *float64, partsUsed string) error {
	m, ok := r.store.maintenance[id]
	if !ok {
		return apperrors.NewNotFoundError("ремонтная заявка", "id=%d", id)
	}
	m.Status = constants.MaintenanceStatusClosed
	m.Resolution.SetValid(resolution)
	if repairCost != nil {
		m.RepairCost.SetValid(*repairCost)
	}
	if partsUsed != "" {
		m.PartsUsed.SetValid(partsUsed)
	}
	return nil
}

func (r *fakeMaintenanceRepo) GetRequests(_ context.Context, _ types.Filter, _ []uint64) ([]entities.MaintenanceRequest, uint64, error) {
	return nil, 0, nil
}

type fakeMovementRepo struct{ store *fakeStore }

func (r *fakeMovementRepo) CreateInTx(_ context.Context, _ pgx.Tx, entry *entities.MovementLog) error {
	r.store.movements = append(r.store.movements, *entry)
	return nil
}

func (r *fakeMovementRepo) CreateSystemInTx(_ context.Context, _ pgx.Tx, entry *entities.SystemLog) error {
	r.store.systemLogs = append(r.store.systemLogs, *entry)
	return nil
}

func (r *fakeMovementRepo) FindBySerial(_ context.Context, serial string) ([]entities.MovementLog, error) {
	var logs []entities.MovementLog
	for _, l := range r.store.movements {
		if l.Serial == serial {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (r *fakeMovementRepo) GetMovements(_ context.Context, _ []uint64, _, _ int) ([]entities.MovementLog, uint64, error) {
	return r.store.movements, uint64(len(r.store.movements)), nil
}

type fakePublisher struct {
	published []eventbus.Event
}

func (p *fakePublisher) Publish(_ context.Context, event eventbus.Event) {
	p.published = append(p.published, event)
}

// --- СБОРКА ОКРУЖЕНИЯ ---

type transferEnv struct {
	store     *fakeStore
	service   *TransferService
	lifecycle *LifecycleService
	publisher *fakePublisher
}

func newTransferEnv() *transferEnv {
	store := newFakeStore()
	logger := zap.NewNop()

	machineRepo := &fakeMachineRepo{store: store}
	simRepo := &fakeSimRepo{store: store}
	branchRepo := &fakeBranchRepo{store: store}
	transferRepo := &fakeTransferRepo{store: store}
	maintenanceRepo := &fakeMaintenanceRepo{store: store}
	movementRepo := &fakeMovementRepo{store: store}
	txManager := &fakeTxManager{store: store}
	publisher := &fakePublisher{}

	validation := NewTransferValidationService(machineRepo, simRepo, branchRepo, transferRepo, logger)
	service := NewTransferService(
		txManager, transferRepo, machineRepo, simRepo,
		maintenanceRepo, movementRepo, validation, publisher, logger,
	)
	lifecycle := NewLifecycleService(
		txManager, machineRepo, simRepo, maintenanceRepo, movementRepo, publisher, logger,
	)

	return &transferEnv{store: store, service: service, lifecycle: lifecycle, publisher: publisher}
}

func (e *transferEnv) addBranch(id uint64, branchType string, active bool) {
	e.store.branches[id] = entities.Branch{ID: id, Name: "branch", Type: branchType, IsActive: active}
}

func (e *transferEnv) addMachine(serial string, branchID uint64, status string) {
	e.store.machines[serial] = entities.Machine{Serial: serial, BranchID: branchID, Status: status}
}

func ctxWithScope(userID uint64, role authz.Role, branchIDs []uint64) context.Context {
	ctx := context.WithValue(context.Background(), contextkeys.UserIDKey, userID)
	ctx = context.WithValue(ctx, contextkeys.UserRoleKey, string(role))
	return authz.WithScope(ctx, authz.NewBranchScope(role, branchIDs))
}

// --- ТЕСТЫ СОЗДАНИЯ ---

func TestCreateTransferOrder(t *testing.T) {
	const (
		fromBranch = uint64(1)
		toBranch   = uint64(2)
		userID     = uint64(100)
	)

	setup := func() *transferEnv {
		env := newTransferEnv()
		env.addBranch(fromBranch, entities.BranchTypeOperating, true)
		env.addBranch(toBranch, entities.BranchTypeOperating, true)
		env.addMachine("POS-1", fromBranch, constants.AssetStatusStandby)
		env.addMachine("POS-2", fromBranch, constants.AssetStatusStandby)
		return env
	}

	ctx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{fromBranch, toBranch})

	t.Run("успешное создание замораживает активы", func(t *testing.T) {
		env := setup()
		order, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1", "POS-2"},
		}, userID)
		require.NoError(t, err)

		assert.Equal(t, constants.TransferStatusPending, order.Status)
		assert.Regexp(t, regexp.MustCompile(`^TRF-\d{8}-[0-9A-F]{6}$`), order.OrderNo)
		assert.Len(t, order.Items, 2)

		assert.Equal(t, constants.AssetStatusInTransit, env.store.machines["POS-1"].Status)
		assert.Equal(t, constants.AssetStatusInTransit, env.store.machines["POS-2"].Status)
		// Активы остаются числиться за источником до приёма.
		assert.Equal(t, fromBranch, env.store.machines["POS-1"].BranchID)

		assert.Len(t, env.store.movements, 2)
		assert.Len(t, env.store.systemLogs, 1)

		require.Len(t, env.publisher.published, 1)
		created, ok := env.publisher.published[0].(events.TransferCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, order.ID, created.OrderID)
	})

	t.Run("занятый серийник даёт конфликт и ничего не меняет", func(t *testing.T) {
		env := setup()
		_, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1"},
		}, userID)
		require.NoError(t, err)

		// Активы вернулись бы в STANDBY только после приёма или отмены.
		_, err = env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1", "POS-2"},
		}, userID)

		var conflict *apperrors.ConflictError
		require.ErrorAs(t, err, &conflict)

		// Второй ордер не создан, POS-2 не заморожен.
		assert.Len(t, env.store.orders, 1)
		assert.Equal(t, constants.AssetStatusStandby, env.store.machines["POS-2"].Status)
	})

	t.Run("все нарушения в одном ответе", func(t *testing.T) {
		env := setup()
		env.addMachine("POS-SOLD", fromBranch, constants.AssetStatusSold)

		_, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-SOLD", "POS-404"},
		}, userID)

		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Violations, 2)
	})

	t.Run("совпадение филиалов", func(t *testing.T) {
		env := setup()
		_, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   fromBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1"},
		}, userID)

		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Len(t, vErr.Violations, 1)
		assert.Equal(t, apperrors.ReasonSameBranch, vErr.Violations[0].Reason)
	})

	t.Run("чужой филиал-источник запрещён", func(t *testing.T) {
		env := setup()
		foreignCtx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{toBranch})

		_, err := env.service.CreateTransferOrder(foreignCtx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1"},
		}, userID)

		var forbidden *apperrors.ForbiddenError
		require.ErrorAs(t, err, &forbidden)
		assert.Equal(t, fromBranch, forbidden.BranchID)
	})

	t.Run("пустой список серийников отклоняется", func(t *testing.T) {
		env := setup()
		for _, serials := range [][]string{nil, {" "}, {"", "  "}} {
			_, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
				FromBranchID: fromBranch,
				ToBranchID:   toBranch,
				Type:         constants.TransferTypeMachine,
				Serials:      serials,
			}, userID)

			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Violations, 1)
			assert.Equal(t, apperrors.ReasonEmptySerialList, vErr.Violations[0].Reason)
		}
		// Ордер без позиций не появился.
		assert.Empty(t, env.store.orders)
		assert.Empty(t, env.store.movements)
	})

	t.Run("рядовой сотрудник не создаёт переброску", func(t *testing.T) {
		env := setup()
		employeeCtx := ctxWithScope(userID, authz.RoleBranchEmployee, []uint64{fromBranch, toBranch})

		_, err := env.service.CreateTransferOrder(employeeCtx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1"},
		}, userID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Equal(t, constants.AssetStatusStandby, env.store.machines["POS-1"].Status)
	})

	t.Run("сервисная переброска требует центр и везёт заявку", func(t *testing.T) {
		env := setup()
		const center = uint64(5)
		env.addBranch(center, entities.BranchTypeCenter, true)

		_, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMaintenance,
			Serials:      []string{"POS-1"},
		}, userID)
		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)

		reqID, err := (&fakeMaintenanceRepo{store: env.store}).Create(context.Background(), &entities.MaintenanceRequest{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  fromBranch,
			Status:    constants.MaintenanceStatusOpen,
		})
		require.NoError(t, err)

		centerCtx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{fromBranch, center})
		_, err = env.service.CreateTransferOrder(centerCtx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   center,
			Type:         constants.TransferTypeMaintenance,
			Serials:      []string{"POS-1"},
		}, userID)
		require.NoError(t, err)

		assert.Equal(t, constants.MaintenanceStatusPendingTransfer, env.store.maintenance[reqID].Status)
	})

	t.Run("дубликаты серийников схлопываются", func(t *testing.T) {
		env := setup()
		order, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1", "POS-1", " POS-1 "},
		}, userID)
		require.NoError(t, err)
		assert.Len(t, order.Items, 1)
	})
}

func TestCreateBulkTransfer(t *testing.T) {
	env := newTransferEnv()
	env.addBranch(1, entities.BranchTypeOperating, true)
	env.addBranch(5, entities.BranchTypeCenter, true)
	env.addMachine("POS-1", 1, constants.AssetStatusStandby)
	env.addMachine("POS-2", 1, constants.AssetStatusStandby)

	ctx := ctxWithScope(100, authz.RoleBranchManager, []uint64{1, 5})

	order, err := env.service.CreateBulkTransfer(ctx, dto.CreateBulkTransferDTO{
		FromBranchID: 1,
		ToBranchID:   5,
		Type:         constants.TransferTypeSendToCenter,
		Serials:      []string{"POS-1", "POS-2"},
		Waybill:      "WB-2026-001",
	}, 100)
	require.NoError(t, err)

	assert.Equal(t, "WB-2026-001", order.Waybill.String)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, constants.AssetStatusInTransit, env.store.machines["POS-1"].Status)
}

// --- ТЕСТЫ ПРИЁМА ---

func TestReceiveTransferOrder(t *testing.T) {
	const (
		fromBranch = uint64(1)
		toBranch   = uint64(2)
		userID     = uint64(100)
	)

	setup := func(t *testing.T) (*transferEnv, *entities.TransferOrder) {
		t.Helper()
		env := newTransferEnv()
		env.addBranch(fromBranch, entities.BranchTypeOperating, true)
		env.addBranch(toBranch, entities.BranchTypeOperating, true)
		env.addMachine("POS-1", fromBranch, constants.AssetStatusStandby)
		env.addMachine("POS-2", fromBranch, constants.AssetStatusStandby)

		ctx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{fromBranch, toBranch})
		order, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   toBranch,
			Type:         constants.TransferTypeMachine,
			Serials:      []string{"POS-1", "POS-2"},
		}, userID)
		require.NoError(t, err)
		env.publisher.published = nil
		return env, order
	}

	receiverCtx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{toBranch})

	t.Run("частичный приём", func(t *testing.T) {
		env, order := setup(t)

		updated, err := env.service.ReceiveTransferOrder(receiverCtx, order.ID, dto.ReceiveTransferOrderDTO{
			Serials: []string{"POS-1"},
		}, userID)
		require.NoError(t, err)

		assert.Equal(t, constants.TransferStatusPartial, updated.Status)
		assert.Equal(t, constants.AssetStatusStandby, env.store.machines["POS-1"].Status)
		assert.Equal(t, toBranch, env.store.machines["POS-1"].BranchID)
		// Вторая позиция всё ещё в пути.
		assert.Equal(t, constants.AssetStatusInTransit, env.store.machines["POS-2"].Status)
		assert.Equal(t, fromBranch, env.store.machines["POS-2"].BranchID)
	})

	t.Run("полный приём и повторный вызов", func(t *testing.T) {
		env, order := setup(t)

		updated, err := env.service.ReceiveTransferOrder(receiverCtx, order.ID, dto.ReceiveTransferOrderDTO{
			Serials: []string{"POS-1", "POS-2"},
		}, userID)
		require.NoError(t, err)
		assert.Equal(t, constants.TransferStatusReceived, updated.Status)

		// В полностью принятом ордере непринятых позиций нет.
		_, err = env.service.ReceiveTransferOrder(receiverCtx, order.ID, dto.ReceiveTransferOrderDTO{
			Serials: []string{"POS-1"},
		}, userID)
		var notFound *apperrors.NotFoundError
		require.ErrorAs(t, err, &notFound)

		// Повторный вызов ничего не применил.
		assert.Equal(t, constants.TransferStatusReceived, env.store.orders[order.ID].Status)
		assert.Equal(t, constants.AssetStatusStandby, env.store.machines["POS-1"].Status)
	})

	t.Run("отменённый ордер не принимает позиции", func(t *testing.T) {
		env, order := setup(t)

		_, err := env.service.CancelTransferOrder(receiverCtx, order.ID, userID)
		require.Error(t, err) // отмена с чужого филиала запрещена

		senderCtx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{fromBranch})
		_, err = env.service.CancelTransferOrder(senderCtx, order.ID, userID)
		require.NoError(t, err)

		_, err = env.service.ReceiveTransferOrder(receiverCtx, order.ID, dto.ReceiveTransferOrderDTO{
			Serials: []string{"POS-1"},
		}, userID)
		var conflict *apperrors.ConflictError
		assert.ErrorAs(t, err, &conflict)
	})

	t.Run("неизвестный серийник откатывает весь приём", func(t *testing.T) {
		env, order := setup(t)

		_, err := env.service.ReceiveTransferOrder(receiverCtx, order.ID, dto.ReceiveTransferOrderDTO{
			Serials: []string{"POS-1", "POS-UNKNOWN"},
		}, userID)
		var notFound *apperrors.NotFoundError
		require.ErrorAs(t, err, &notFound)

		// POS-1 не применился: транзакция атомарна.
		assert.Equal(t, constants.AssetStatusInTransit, env.store.machines["POS-1"].Status)
		assert.Equal(t, constants.TransferStatusPending, env.store.orders[order.ID].Status)
	})

	t.Run("приём чужого ордера запрещён", func(t *testing.T) {
		env, order := setup(t)
		foreignCtx := ctxWithScope(userID, authz.RoleBranchEmployee, []uint64{99})

		_, err := env.service.ReceiveTransferOrder(foreignCtx, order.ID, dto.ReceiveTransferOrderDTO{
			Serials: []string{"POS-1"},
		}, userID)
		var forbidden *apperrors.ForbiddenError
		assert.ErrorAs(t, err, &forbidden)
	})

	t.Run("сервисный приём ставит RECEIVED_AT_CENTER", func(t *testing.T) {
		env := newTransferEnv()
		const center = uint64(5)
		env.addBranch(fromBranch, entities.BranchTypeOperating, true)
		env.addBranch(center, entities.BranchTypeCenter, true)
		env.addMachine("POS-1", fromBranch, constants.AssetStatusStandby)

		maintenanceRepo := &fakeMaintenanceRepo{store: env.store}
		reqID, err := maintenanceRepo.Create(context.Background(), &entities.MaintenanceRequest{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  fromBranch,
			Status:    constants.MaintenanceStatusOpen,
		})
		require.NoError(t, err)

		senderCtx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{fromBranch, center})
		order, err := env.service.CreateTransferOrder(senderCtx, dto.CreateTransferOrderDTO{
			FromBranchID: fromBranch,
			ToBranchID:   center,
			Type:         constants.TransferTypeSendToCenter,
			Serials:      []string{"POS-1"},
		}, userID)
		require.NoError(t, err)

		centerCtx := ctxWithScope(userID, authz.RoleCenterManager, []uint64{center})
		_, err = env.service.ReceiveTransferOrder(centerCtx, order.ID, dto.ReceiveTransferOrderDTO{
			Serials: []string{"POS-1"},
		}, userID)
		require.NoError(t, err)

		assert.Equal(t, constants.AssetStatusReceivedAtCenter, env.store.machines["POS-1"].Status)
		assert.Equal(t, center, env.store.machines["POS-1"].BranchID)
		assert.Equal(t, constants.MaintenanceStatusAtCenter, env.store.maintenance[reqID].Status)
	})
}

// --- ТЕСТЫ ОТМЕНЫ ---

func TestCancelTransferOrder(t *testing.T) {
	const (
		fromBranch = uint64(1)
		toBranch   = uint64(2)
		userID     = uint64(100)
	)

	env := newTransferEnv()
	env.addBranch(fromBranch, entities.BranchTypeOperating, true)
	env.addBranch(toBranch, entities.BranchTypeOperating, true)
	env.addMachine("POS-1", fromBranch, constants.AssetStatusStandby)
	env.addMachine("POS-2", fromBranch, constants.AssetStatusStandby)

	ctx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{fromBranch, toBranch})
	order, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
		FromBranchID: fromBranch,
		ToBranchID:   toBranch,
		Type:         constants.TransferTypeMachine,
		Serials:      []string{"POS-1", "POS-2"},
	}, userID)
	require.NoError(t, err)

	// Одна позиция уже принята: отмена её не трогает.
	_, err = env.service.ReceiveTransferOrder(ctx, order.ID, dto.ReceiveTransferOrderDTO{
		Serials: []string{"POS-1"},
	}, userID)
	require.NoError(t, err)

	cancelled, err := env.service.CancelTransferOrder(ctx, order.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, constants.TransferStatusCancelled, cancelled.Status)

	assert.Equal(t, constants.AssetStatusStandby, env.store.machines["POS-1"].Status)
	assert.Equal(t, toBranch, env.store.machines["POS-1"].BranchID)
	assert.Equal(t, constants.AssetStatusStandby, env.store.machines["POS-2"].Status)
	assert.Equal(t, fromBranch, env.store.machines["POS-2"].BranchID)

	// Повторная отмена финального ордера — конфликт.
	_, err = env.service.CancelTransferOrder(ctx, order.ID, userID)
	var conflict *apperrors.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestCancelTransferOrderRevertsMaintenance(t *testing.T) {
	const (
		fromBranch = uint64(1)
		center     = uint64(5)
		userID     = uint64(100)
	)

	env := newTransferEnv()
	env.addBranch(fromBranch, entities.BranchTypeOperating, true)
	env.addBranch(center, entities.BranchTypeCenter, true)
	env.addMachine("POS-1", fromBranch, constants.AssetStatusStandby)

	maintenanceRepo := &fakeMaintenanceRepo{store: env.store}
	reqID, err := maintenanceRepo.Create(context.Background(), &entities.MaintenanceRequest{
		Serial:    "POS-1",
		AssetType: constants.AssetTypeMachine,
		BranchID:  fromBranch,
		Status:    constants.MaintenanceStatusOpen,
	})
	require.NoError(t, err)

	ctx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{fromBranch, center})
	order, err := env.service.CreateTransferOrder(ctx, dto.CreateTransferOrderDTO{
		FromBranchID: fromBranch,
		ToBranchID:   center,
		Type:         constants.TransferTypeSendToCenter,
		Serials:      []string{"POS-1"},
	}, userID)
	require.NoError(t, err)
	require.Equal(t, constants.MaintenanceStatusPendingTransfer, env.store.maintenance[reqID].Status)

	// Отмена возвращает и актив, и заявку в исходное состояние.
	_, err = env.service.CancelTransferOrder(ctx, order.ID, userID)
	require.NoError(t, err)

	assert.Equal(t, constants.AssetStatusStandby, env.store.machines["POS-1"].Status)
	assert.Equal(t, fromBranch, env.store.machines["POS-1"].BranchID)
	assert.Equal(t, constants.MaintenanceStatusOpen, env.store.maintenance[reqID].Status)
}

// --- ТЕСТЫ МАШИНЫ СОСТОЯНИЙ ---

func TestLifecycleTransition(t *testing.T) {
	const (
		center = uint64(5)
		userID = uint64(200)
	)

	setup := func(status string) *transferEnv {
		env := newTransferEnv()
		env.addBranch(center, entities.BranchTypeCenter, true)
		env.addMachine("POS-1", center, status)
		return env
	}

	ctx := ctxWithScope(userID, authz.RoleCenterTechnician, []uint64{center})

	t.Run("разрешённый переход пишет журнал", func(t *testing.T) {
		env := setup(constants.AssetStatusReceivedAtCenter)

		asset, err := env.lifecycle.Transition(ctx, "POS-1", constants.AssetTypeMachine, dto.TransitionDTO{
			TargetStatus: constants.AssetStatusUnderInspection,
		}, userID)
		require.NoError(t, err)

		assert.Equal(t, constants.AssetStatusUnderInspection, asset.Status)
		assert.Equal(t, constants.AssetStatusUnderInspection, env.store.machines["POS-1"].Status)
		require.Len(t, env.store.movements, 1)
		assert.Equal(t, constants.MovementActionTransition, env.store.movements[0].Action)
		require.Len(t, env.publisher.published, 1)
	})

	t.Run("запрещённый переход отклоняется без следов", func(t *testing.T) {
		env := setup(constants.AssetStatusReceivedAtCenter)

		_, err := env.lifecycle.Transition(ctx, "POS-1", constants.AssetTypeMachine, dto.TransitionDTO{
			TargetStatus: constants.AssetStatusInProgress,
		}, userID)

		var invalid *apperrors.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, constants.AssetStatusReceivedAtCenter, invalid.From)

		assert.Equal(t, constants.AssetStatusReceivedAtCenter, env.store.machines["POS-1"].Status)
		assert.Empty(t, env.store.movements)
	})

	t.Run("решающее состояние требует исход и закрывает заявку", func(t *testing.T) {
		env := setup(constants.AssetStatusInProgress)
		maintenanceRepo := &fakeMaintenanceRepo{store: env.store}
		reqID, err := maintenanceRepo.Create(context.Background(), &entities.MaintenanceRequest{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  center,
			Status:    constants.MaintenanceStatusAtCenter,
		})
		require.NoError(t, err)

		// Без исхода — отказ.
		_, err = env.lifecycle.Transition(ctx, "POS-1", constants.AssetTypeMachine, dto.TransitionDTO{
			TargetStatus: constants.AssetStatusReadyForReturn,
		}, userID)
		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)

		cost := 12.50
		_, err = env.lifecycle.Transition(ctx, "POS-1", constants.AssetTypeMachine, dto.TransitionDTO{
			TargetStatus: constants.AssetStatusReadyForReturn,
			Resolution:   constants.ResolutionRepaired,
			RepairCost:   &cost,
			PartsUsed:    []string{"аккумулятор", "клавиатура"},
		}, userID)
		require.NoError(t, err)

		closed := env.store.maintenance[reqID]
		assert.Equal(t, constants.MaintenanceStatusClosed, closed.Status)
		assert.Equal(t, constants.ResolutionRepaired, closed.Resolution.String)
		assert.Equal(t, 12.50, closed.RepairCost.Float64)
	})

	t.Run("роли филиала запрещены", func(t *testing.T) {
		env := setup(constants.AssetStatusReceivedAtCenter)
		branchCtx := ctxWithScope(userID, authz.RoleBranchEmployee, []uint64{center})

		_, err := env.lifecycle.Transition(branchCtx, "POS-1", constants.AssetTypeMachine, dto.TransitionDTO{
			TargetStatus: constants.AssetStatusUnderInspection,
		}, userID)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestGetKanbanStats(t *testing.T) {
	const center = uint64(5)

	env := newTransferEnv()
	env.addBranch(center, entities.BranchTypeCenter, true)
	env.addMachine("POS-1", center, constants.AssetStatusUnderInspection)
	env.addMachine("POS-2", center, constants.AssetStatusUnderInspection)
	env.addMachine("POS-3", center, constants.AssetStatusInProgress)
	env.addMachine("POS-4", center, constants.AssetStatusStandby)

	ctx := ctxWithScope(200, authz.RoleCenterManager, []uint64{center})

	branchID := center
	stats, err := env.lifecycle.GetKanbanStats(ctx, &branchID)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), stats.Counts[constants.AssetStatusUnderInspection])
	assert.Equal(t, uint64(1), stats.Counts[constants.AssetStatusInProgress])
	// Пустые колонки присутствуют с нулём.
	assert.Contains(t, stats.Counts, constants.AssetStatusReturning)
	assert.Equal(t, uint64(0), stats.Counts[constants.AssetStatusReturning])
}
