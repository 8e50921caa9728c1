package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/services"
	"asset-transfer-system/pkg/api"
	"asset-transfer-system/pkg/utils"
)

type MaintenanceController struct {
	maintenanceService services.MaintenanceServiceInterface
	logger             *zap.Logger
}

func NewMaintenanceController(
	maintenanceService services.MaintenanceServiceInterface,
	logger *zap.Logger,
) *MaintenanceController {
	return &MaintenanceController{
		maintenanceService: maintenanceService,
		logger:             logger,
	}
}

func (c *MaintenanceController) CreateRequest(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	var body dto.CreateMaintenanceRequestDTO
	if err := ctx.Bind(&body); err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "некорректное тело запроса"))
	}
	if err := ctx.Validate(&body); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	req, err := c.maintenanceService.CreateRequest(reqCtx, body, userID)
	if err != nil {
		c.logger.Warn("не удалось открыть ремонтную заявку", zap.String("serial", body.Serial), zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromMaintenanceRequest(req)
	return api.SuccessOne(ctx, http.StatusCreated, result)
}

func (c *MaintenanceController) FindRequest(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "неверный ID заявки"))
	}

	req, err := c.maintenanceService.GetRequestByID(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromMaintenanceRequest(req)
	return api.SuccessOne(ctx, http.StatusOK, result)
}

func (c *MaintenanceController) GetRequests(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	requests, total, err := c.maintenanceService.GetRequests(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("ошибка при получении списка заявок", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.MaintenanceRequestDTO, 0, len(requests))
	for i := range requests {
		list = append(list, dto.FromMaintenanceRequest(&requests[i]))
	}
	return api.SuccessList(ctx, list, total, filter.Page, filter.Limit)
}
