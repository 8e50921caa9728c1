package utils

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "asset-transfer-system/pkg/errors"
)

// CustomValidator адаптирует go-playground/validator к echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator(v *validator.Validate) *CustomValidator {
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		details := make(map[string]string)
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				details[fe.Field()] = fe.Tag()
			}
		}
		return apperrors.NewHttpError(http.StatusBadRequest, "ошибка валидации запроса", err, details)
	}
	return nil
}
