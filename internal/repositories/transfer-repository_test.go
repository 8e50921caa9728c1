package repositories

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asset-transfer-system/internal/entities"
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
)

func createTestOrder(t *testing.T, f *fixture, repo TransferRepositoryInterface, serials ...string) uint64 {
	t.Helper()
	ctx := context.Background()
	txm := NewTxManager(f.pool)

	var orderID uint64
	err := txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		orderID, err = repo.CreateOrderInTx(ctx, tx, &entities.TransferOrder{
			OrderNo:      "TRF-20260828-" + serials[0],
			FromBranchID: f.branchA,
			ToBranchID:   f.branchB,
			Type:         constants.TransferTypeMachine,
			Status:       constants.TransferStatusPending,
			CreatedBy:    f.userID,
		})
		if err != nil {
			return err
		}
		items := make([]entities.TransferOrderItem, 0, len(serials))
		for _, s := range serials {
			items = append(items, entities.TransferOrderItem{Serial: s, ItemType: constants.AssetTypeMachine})
		}
		return repo.CreateItemsInTx(ctx, tx, orderID, items)
	})
	require.NoError(t, err)
	return orderID
}

func TestTransferRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewTransferRepository(f.pool, zap.NewNop())
	txm := NewTxManager(f.pool)

	f.addMachine(t, "POS-1", f.branchA, constants.AssetStatusStandby)
	f.addMachine(t, "POS-2", f.branchA, constants.AssetStatusStandby)

	orderID := createTestOrder(t, f, repo, "POS-1", "POS-2")

	t.Run("ордер читается вместе с позициями", func(t *testing.T) {
		order, err := repo.FindOrderByID(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, constants.TransferStatusPending, order.Status)
		require.Len(t, order.Items, 2)
		for _, item := range order.Items {
			assert.False(t, item.Received)
		}
	})

	t.Run("активный ордер держит серийники занятыми", func(t *testing.T) {
		refs, err := repo.FindActiveRefsBySerials(ctx, []string{"POS-1", "POS-9"}, constants.AssetTypeMachine)
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "POS-1", refs[0].Serial)
		assert.Equal(t, orderID, refs[0].OrderID)
		assert.Equal(t, f.branchA, refs[0].FromBranchID)
		assert.Equal(t, f.branchB, refs[0].ToBranchID)
	})

	t.Run("повторный приём позиции отклоняется", func(t *testing.T) {
		err := txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
			return repo.MarkItemReceivedInTx(ctx, tx, orderID, "POS-1")
		})
		require.NoError(t, err)

		err = txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
			return repo.MarkItemReceivedInTx(ctx, tx, orderID, "POS-1")
		})
		var notFound *apperrors.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("финальный статус освобождает серийники", func(t *testing.T) {
		err := txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
			return repo.UpdateOrderStatusInTx(ctx, tx, orderID, constants.TransferStatusCancelled)
		})
		require.NoError(t, err)

		refs, err := repo.FindActiveRefsBySerials(ctx, []string{"POS-1", "POS-2"}, constants.AssetTypeMachine)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("неизвестный ордер", func(t *testing.T) {
		_, err := repo.FindOrderByID(ctx, 999999)
		var notFound *apperrors.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("видимость списка обеим сторонам", func(t *testing.T) {
		orders, total, err := repo.GetTransferOrders(ctx, testListFilter(), []uint64{f.branchB})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, orders, 1)
		assert.Equal(t, orderID, orders[0].ID)

		_, total, err = repo.GetTransferOrders(ctx, testListFilter(), []uint64{f.centerID})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestMachineRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewMachineRepository(f.pool, zap.NewNop())
	txm := NewTxManager(f.pool)

	f.addMachine(t, "POS-1", f.branchA, constants.AssetStatusStandby)
	f.addMachine(t, "POS-2", f.branchA, constants.AssetStatusUnderInspection)

	t.Run("поиск по серийнику", func(t *testing.T) {
		m, err := repo.FindBySerial(ctx, "POS-1")
		require.NoError(t, err)
		assert.Equal(t, f.branchA, m.BranchID)

		_, err = repo.FindBySerial(ctx, "POS-404")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("блокировка и смена статуса с филиалом", func(t *testing.T) {
		err := txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
			locked, err := repo.LockBySerialsInTx(ctx, tx, []string{"POS-1", "POS-404"})
			if err != nil {
				return err
			}
			// Несуществующий серийник просто отсутствует в выборке.
			require.Len(t, locked, 1)
			return repo.UpdateStatusAndBranchInTx(ctx, tx, "POS-1", constants.AssetStatusStandby, f.branchB)
		})
		require.NoError(t, err)

		m, err := repo.FindBySerial(ctx, "POS-1")
		require.NoError(t, err)
		assert.Equal(t, f.branchB, m.BranchID)
	})

	t.Run("счётчики по состояниям", func(t *testing.T) {
		counts, err := repo.CountByStatuses(ctx, &f.branchA, []string{
			constants.AssetStatusUnderInspection, constants.AssetStatusInProgress,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), counts[constants.AssetStatusUnderInspection])
		assert.Zero(t, counts[constants.AssetStatusInProgress])
	})
}

func TestMaintenanceRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := NewMaintenanceRepository(f.pool)
	txm := NewTxManager(f.pool)

	f.addMachine(t, "POS-1", f.branchA, constants.AssetStatusStandby)

	reqID, err := repo.Create(ctx, &entities.MaintenanceRequest{
		Serial:    "POS-1",
		AssetType: constants.AssetTypeMachine,
		BranchID:  f.branchA,
		Status:    constants.MaintenanceStatusOpen,
	})
	require.NoError(t, err)

	t.Run("вторая активная заявка на серийник запрещена", func(t *testing.T) {
		_, err := repo.Create(ctx, &entities.MaintenanceRequest{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  f.branchA,
			Status:    constants.MaintenanceStatusOpen,
		})
		assert.Error(t, err)
	})

	t.Run("закрытие с исходом освобождает серийник", func(t *testing.T) {
		active, err := repo.FindActiveBySerial(ctx, "POS-1")
		require.NoError(t, err)
		assert.Equal(t, reqID, active.ID)

		cost := 45.00
		err = txm.RunInTransaction(ctx, func(tx pgx.Tx) error {
			return repo.CloseInTx(ctx, tx, reqID, constants.ResolutionRepaired, &cost, "дисплей")
		})
		require.NoError(t, err)

		_, err = repo.FindActiveBySerial(ctx, "POS-1")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		closed, err := repo.FindByID(ctx, reqID)
		require.NoError(t, err)
		assert.Equal(t, constants.MaintenanceStatusClosed, closed.Status)
		assert.Equal(t, constants.ResolutionRepaired, closed.Resolution.String)
		assert.Equal(t, 45.00, closed.RepairCost.Float64)

		// Новая заявка после закрытия прежней допустима.
		_, err = repo.Create(ctx, &entities.MaintenanceRequest{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  f.branchA,
			Status:    constants.MaintenanceStatusOpen,
		})
		assert.NoError(t, err)
	})
}
