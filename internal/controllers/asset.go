package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"asset-transfer-system/internal/dto"
	"asset-transfer-system/internal/services"
	"asset-transfer-system/pkg/api"
	"asset-transfer-system/pkg/constants"
	"asset-transfer-system/pkg/utils"
)

type AssetController struct {
	assetService services.AssetServiceInterface
	logger       *zap.Logger
}

func NewAssetController(assetService services.AssetServiceInterface, logger *zap.Logger) *AssetController {
	return &AssetController{assetService: assetService, logger: logger}
}

func (c *AssetController) GetMachines(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	machines, total, err := c.assetService.GetMachines(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("ошибка при получении реестра терминалов", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.MachineDTO, 0, len(machines))
	for i := range machines {
		list = append(list, dto.FromMachine(&machines[i]))
	}
	return api.SuccessList(ctx, list, total, filter.Page, filter.Limit)
}

func (c *AssetController) GetSimCards(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	sims, total, err := c.assetService.GetSimCards(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("ошибка при получении реестра SIM-карт", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.SimCardDTO, 0, len(sims))
	for i := range sims {
		list = append(list, dto.FromSimCard(&sims[i]))
	}
	return api.SuccessList(ctx, list, total, filter.Page, filter.Limit)
}

func (c *AssetController) FindAsset(ctx echo.Context) error {
	serial := ctx.Param("serial")
	if serial == "" {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "серийник не задан"))
	}

	assetType := ctx.QueryParam("asset_type")
	if assetType == "" {
		assetType = constants.AssetTypeMachine
	}

	asset, err := c.assetService.FindAsset(ctx.Request().Context(), serial, assetType)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	return api.SuccessOne(ctx, http.StatusOK, asset)
}
