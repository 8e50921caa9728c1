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

type TransferController struct {
	transferService services.TransferServiceInterface
	logger          *zap.Logger
}

func NewTransferController(
	transferService services.TransferServiceInterface,
	logger *zap.Logger,
) *TransferController {
	return &TransferController{
		transferService: transferService,
		logger:          logger,
	}
}

func (c *TransferController) CreateTransferOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	var body dto.CreateTransferOrderDTO
	if err := ctx.Bind(&body); err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "некорректное тело запроса"))
	}
	if err := ctx.Validate(&body); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	order, err := c.transferService.CreateTransferOrder(reqCtx, body, userID)
	if err != nil {
		c.logger.Warn("не удалось создать ордер переброски", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromTransferOrder(order)
	return api.SuccessOne(ctx, http.StatusCreated, result)
}

func (c *TransferController) CreateBulkTransfer(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	var body dto.CreateBulkTransferDTO
	if err := ctx.Bind(&body); err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "некорректное тело запроса"))
	}
	if err := ctx.Validate(&body); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	order, err := c.transferService.CreateBulkTransfer(reqCtx, body, userID)
	if err != nil {
		c.logger.Warn("не удалось создать пакетный ордер", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromTransferOrder(order)
	return api.SuccessOne(ctx, http.StatusCreated, result)
}

func (c *TransferController) ReceiveTransferOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	orderID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "неверный ID ордера"))
	}

	var body dto.ReceiveTransferOrderDTO
	if err := ctx.Bind(&body); err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "некорректное тело запроса"))
	}
	if err := ctx.Validate(&body); err != nil {
		return api.ErrorResponse(ctx, err)
	}

	order, err := c.transferService.ReceiveTransferOrder(reqCtx, orderID, body, userID)
	if err != nil {
		c.logger.Warn("не удалось принять ордер", zap.Uint64("order_id", orderID), zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromTransferOrder(order)
	return api.SuccessOne(ctx, http.StatusOK, result)
}

func (c *TransferController) CancelTransferOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	orderID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "неверный ID ордера"))
	}

	order, err := c.transferService.CancelTransferOrder(reqCtx, orderID, userID)
	if err != nil {
		c.logger.Warn("не удалось отменить ордер", zap.Uint64("order_id", orderID), zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromTransferOrder(order)
	return api.SuccessOne(ctx, http.StatusOK, result)
}

func (c *TransferController) FindTransferOrder(ctx echo.Context) error {
	orderID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "неверный ID ордера"))
	}

	order, err := c.transferService.GetTransferOrderByID(ctx.Request().Context(), orderID)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromTransferOrder(order)
	return api.SuccessOne(ctx, http.StatusOK, result)
}

func (c *TransferController) GetTransferOrders(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	orders, total, err := c.transferService.GetTransferOrders(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("ошибка при получении списка ордеров", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.TransferOrderDTO, 0, len(orders))
	for i := range orders {
		list = append(list, dto.FromTransferOrder(&orders[i]))
	}
	return api.SuccessList(ctx, list, total, filter.Page, filter.Limit)
}

// GetPendingOrders — очередь приёма: активные ордера в зоне видимости.
func (c *TransferController) GetPendingOrders(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	orders, total, err := c.transferService.GetPendingOrders(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("ошибка при получении очереди приёма", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.TransferOrderDTO, 0, len(orders))
	for i := range orders {
		list = append(list, dto.FromTransferOrder(&orders[i]))
	}
	return api.SuccessList(ctx, list, total, filter.Page, filter.Limit)
}

// GetPendingSerials — занятые серийники для подсветки в реестре.
func (c *TransferController) GetPendingSerials(ctx echo.Context) error {
	serials, err := c.transferService.GetPendingSerials(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	if serials == nil {
		serials = []string{}
	}
	return api.SuccessOne(ctx, http.StatusOK, serials)
}
