package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
)

func newMaintenanceEnv() (*MaintenanceService, *fakeStore) {
	store := newFakeStore()
	svc := NewMaintenanceService(
		&fakeMaintenanceRepo{store: store},
		&fakeMachineRepo{store: store},
		&fakeSimRepo{store: store},
		zap.NewNop(),
	)
	return svc, store
}

func TestCreateMaintenanceRequest(t *testing.T) {
	const (
		branchID = uint64(1)
		userID   = uint64(100)
	)
	ctx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{branchID})

	setup := func() (*MaintenanceService, *fakeStore) {
		svc, store := newMaintenanceEnv()
		store.branches[branchID] = entities.Branch{ID: branchID, Type: entities.BranchTypeOperating, IsActive: true}
		store.machines["POS-1"] = entities.Machine{Serial: "POS-1", BranchID: branchID, Status: constants.AssetStatusStandby}
		return svc, store
	}

	t.Run("заявка открывается со статусом OPEN", func(t *testing.T) {
		svc, store := setup()

		req, err := svc.CreateRequest(ctx, dto.CreateMaintenanceRequestDTO{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  branchID,
			Problem:   "не печатает чеки",
		}, userID)
		require.NoError(t, err)

		assert.Equal(t, constants.MaintenanceStatusOpen, req.Status)
		assert.Equal(t, "не печатает чеки", req.Problem.String)
		assert.Equal(t, constants.MaintenanceStatusOpen, store.maintenance[req.ID].Status)
	})

	t.Run("вторая незакрытая заявка — конфликт", func(t *testing.T) {
		svc, _ := setup()

		data := dto.CreateMaintenanceRequestDTO{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  branchID,
		}
		_, err := svc.CreateRequest(ctx, data, userID)
		require.NoError(t, err)

		_, err = svc.CreateRequest(ctx, data, userID)
		var conflict *apperrors.ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("актив числится за другим филиалом", func(t *testing.T) {
		svc, store := setup()
		store.machines["POS-2"] = entities.Machine{Serial: "POS-2", BranchID: 99, Status: constants.AssetStatusStandby}
		wideCtx := ctxWithScope(userID, authz.RoleAdmin, nil)

		_, err := svc.CreateRequest(wideCtx, dto.CreateMaintenanceRequestDTO{
			Serial:    "POS-2",
			AssetType: constants.AssetTypeMachine,
			BranchID:  branchID,
		}, userID)
		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("чужой филиал запрещён", func(t *testing.T) {
		svc, _ := setup()
		foreignCtx := ctxWithScope(userID, authz.RoleBranchManager, []uint64{50})

		_, err := svc.CreateRequest(foreignCtx, dto.CreateMaintenanceRequestDTO{
			Serial:    "POS-1",
			AssetType: constants.AssetTypeMachine,
			BranchID:  branchID,
		}, userID)
		var forbidden *apperrors.ForbiddenError
		require.ErrorAs(t, err, &forbidden)
	})

	t.Run("неизвестный серийник", func(t *testing.T) {
		svc, _ := setup()

		_, err := svc.CreateRequest(ctx, dto.CreateMaintenanceRequestDTO{
			Serial:    "POS-404",
			AssetType: constants.AssetTypeMachine,
			BranchID:  branchID,
		}, userID)
		var notFound *apperrors.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}
