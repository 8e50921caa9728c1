package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/services"
	"asset-transfer-system/pkg/api"
	"asset-transfer-system/pkg/constants"
	"asset-transfer-system/pkg/utils"
)

type LifecycleController struct {
	lifecycleService services.LifecycleServiceInterface
	logger           *zap.Logger
}

func NewLifecycleController(
	lifecycleService services.LifecycleServiceInterface,
	logger *zap.Logger,
) *LifecycleController {
	return &LifecycleController{
		lifecycleService: lifecycleService,
		logger:           logger,
	}
}

// Transition — POST /assets/:serial/transition?asset_type=MACHINE|SIM
func (c *LifecycleController) Transition(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	serial := ctx.Param("serial")
	if serial == "" {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "серийник не задан"))
	}

	assetType := ctx.QueryParam("asset_type")
	if assetType == "" {
		assetType = constants.AssetTypeMachine
	}

	var body dto.TransitionDTO
	if err := ctx.Bind(&body); err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "некорректное тело запроса"))
	}
	if err := ctx.Validate(&body); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	asset, err := c.lifecycleService.Transition(reqCtx, serial, assetType, body, userID)
	if err != nil {
		c.logger.Warn("переход жизненного цикла отклонён",
			zap.String("serial", serial),
			zap.String("target", body.TargetStatus),
			zap.Error(err),
		)
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, asset)
}

// GetKanbanStats — GET /kanban/stats?branch_id=N
func (c *LifecycleController) GetKanbanStats(ctx echo.Context) error {
	var branchID *uint64
	if raw := ctx.QueryParam("branch_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "неверный branch_id"))
		}
		branchID = &id
	}

	stats, err := c.lifecycleService.GetKanbanStats(ctx.Request().Context(), branchID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, stats)
}
