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

type BranchController struct {
	branchService services.BranchServiceInterface
	logger        *zap.Logger
}

func NewBranchController(branchService services.BranchServiceInterface, logger *zap.Logger) *BranchController {
	return &BranchController{branchService: branchService, logger: logger}
}

func (c *BranchController) GetBranches(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	branches, total, err := c.branchService.GetBranches(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("ошибка при получении списка филиалов", zap.Error(err))
		return api.ErrorResponse(ctx, err)
	}

	list := make([]dto.BranchDTO, 0, len(branches))
	for i := range branches {
		list = append(list, dto.FromBranch(&branches[i]))
	}
	return api.SuccessList(ctx, list, total, filter.Page, filter.Limit)
}

func (c *BranchController) FindBranch(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return api.ErrorResponse(ctx, echo.NewHTTPError(http.StatusBadRequest, "неверный ID филиала"))
	}

	branch, err := c.branchService.GetBranchByID(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}
	result := dto.FromBranch(branch)
	return api.SuccessOne(ctx, http.StatusOK, result)
}
