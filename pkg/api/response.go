package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "asset-transfer-system/pkg/errors"
)

// Response — документированный конверт успеха: { id, status: "SUCCESS", data }.
type Response[T any] struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Data   T      `json:"data,omitempty"`
}

// ErrorBody — конверт ошибки: { error, details? }.
type ErrorBody struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

type ListBody[T any] struct {
	List       []T             `json:"list"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type PaginationMeta struct {
	TotalCount uint64 `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// SuccessOne — для возврата одного объекта.
func SuccessOne[T any](c echo.Context, code int, data T) error {
	return c.JSON(code, Response[T]{
		ID:     uuid.New().String(),
		Status: "SUCCESS",
		Data:   data,
	})
}

func SuccessList[T any](c echo.Context, list []T, total uint64, page, limit int) error {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + uint64(limit) - 1) / uint64(limit))
	}

	if list == nil {
		list = make([]T, 0)
	}

	body := ListBody[T]{
		List: list,
		Pagination: &PaginationMeta{
			TotalCount: total,
			TotalPages: totalPages,
			Page:       page,
			Limit:      limit,
		},
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		ID:     uuid.New().String(),
		Status: "SUCCESS",
		Data:   body,
	})
}

// ErrorResponse отдаёт пользовательское сообщение и машиночитаемые детали,
// без технических подробностей внутренних ошибок.
func ErrorResponse(c echo.Context, err error) error {
	httpErr := apperrors.ToHttp(err)
	return c.JSON(httpErr.Code, ErrorBody{
		Error:   httpErr.Message,
		Details: httpErr.Details,
	})
}
