package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/services"
	"asset-transfer-system/pkg/api"
	"asset-transfer-system/pkg/utils"
)

type MovementController struct {
	movementService services.MovementLogServiceInterface
	logger          *zap.Logger
}

func NewMovementController(movementService services.MovementLogServiceInterface, logger *zap.Logger) *MovementController {
	return &MovementController{movementService: movementService, logger: logger}
}

// GetAssetHistory — вся история движений одного серийника.
func (c *MovementController) GetAssetHistory(ctx echo.Context) error {
	serial := ctx.Param("serial")
	if serial == "" {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "серийник не задан"))
	}

	logs, err := c.movementService.GetAssetHistory(ctx.Request().Context(), serial)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.MovementLogDTO, 0, len(logs))
	for i := range logs {
		list = append(list, dto.FromMovementLog(&logs[i]))
	}
	return api.SuccessOne(ctx, http.StatusOK, list)
}

func (c *MovementController) GetMovements(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	logs, total, err := c.movementService.GetMovements(ctx.Request().Context(), filter.Limit, filter.Offset)
	if err != nil {
		c.logger.Error("ошибка при получении журнала движений", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.MovementLogDTO, 0, len(logs))
	for i := range logs {
		list = append(list, dto.FromMovementLog(&logs[i]))
	}
	return api.SuccessList(ctx, list, total, filter.Page, filter.Limit)
}
