package errors

import (
	"fmt"
	"net/http"
	"strings"
)

var (
	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")
	ErrForbidden  = fmt.Errorf("доступ запрещён")

	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrEmptyAuthHeader      = fmt.Errorf("пустой заголовок Authorization")
	ErrInvalidAuthHeader    = fmt.Errorf("неверный формат заголовка Authorization")
	ErrTokenIsNotAccess     = fmt.Errorf("ожидался access токен")

	// Контекст
	ErrUserNotFoundInContext = fmt.Errorf("пользователь не найден в контексте запроса")
)

// Коды причин для нарушений валидации. Машиночитаемы, локализация — забота фронтенда.
const (
	ReasonEmptySerialList   = "EMPTY_SERIAL_LIST"
	ReasonAssetNotFound     = "ASSET_NOT_FOUND"
	ReasonAssetStatusFrozen = "ASSET_STATUS_BLOCKED"
	ReasonDuplicateTransfer = "DUPLICATE_TRANSFER"
	ReasonSameBranch        = "SAME_BRANCH"
	ReasonBranchNotFound    = "BRANCH_NOT_FOUND"
	ReasonBranchInactive    = "BRANCH_INACTIVE"
	ReasonNotCenterBranch   = "NOT_MAINTENANCE_CENTER"
	ReasonBranchForbidden   = "BRANCH_FORBIDDEN"
)

// Violation — одно нарушение при проверке переброски.
// Несёт всё, что нужно фронтенду для точного сообщения:
// серийник, код причины, текущий статус актива и реквизиты конфликтующего ордера.
type Violation struct {
	Serial             string `json:"serial,omitempty"`
	Reason             string `json:"reason"`
	AssetStatus        string `json:"asset_status,omitempty"`
	ConflictingOrderNo string `json:"conflicting_order_no,omitempty"`
	ConflictFromBranch uint64 `json:"conflict_from_branch,omitempty"`
	ConflictToBranch   uint64 `json:"conflict_to_branch,omitempty"`
	BranchID           uint64 `json:"branch_id,omitempty"`
}

func (v Violation) String() string {
	if v.Serial != "" {
		return fmt.Sprintf("%s: %s", v.Serial, v.Reason)
	}
	return v.Reason
}

// ValidationError агрегирует ВСЕ нарушения, никогда не обрезается до первого.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

func NewValidationError(violations []Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}

// ConflictError — актив уже занят другим активным ордером переброски.
// Семантически это подмножество ValidationError, но вызывающей стороне
// важно различать конфликт и обычную ошибку ввода.
type ConflictError struct {
	Violations []Violation
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s занят ордером %s", v.Serial, v.ConflictingOrderNo))
	}
	return "конфликт переброски: " + strings.Join(parts, "; ")
}

func NewConflictError(violations []Violation) *ConflictError {
	return &ConflictError{Violations: violations}
}

// NotFoundError — неизвестный ордер/актив/филиал.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s не найден: %s", e.Entity, e.Key)
}

func NewNotFoundError(entity, keyFormat string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf(keyFormat, args...)}
}

// ForbiddenError — филиал вне авторизованного набора пользователя.
type ForbiddenError struct {
	UserID   uint64
	BranchID uint64
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("пользователю %d запрещён доступ к филиалу %d", e.UserID, e.BranchID)
}

// InvalidTransitionError — запрещённый переход жизненного цикла.
type InvalidTransitionError struct {
	Serial string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход %s -> %s для актива %s", e.From, e.To, e.Serial)
}

// HttpError — адаптер доменной ошибки для слоя ответа.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

// ToHttp отображает доменную ошибку в HTTP-код и структурированные детали.
func ToHttp(err error) *HttpError {
	switch e := err.(type) {
	case *HttpError:
		return e
	case *ValidationError:
		return NewHttpError(http.StatusUnprocessableEntity, e.Error(), e, e.Violations)
	case *ConflictError:
		return NewHttpError(http.StatusConflict, e.Error(), e, e.Violations)
	case *NotFoundError:
		return NewHttpError(http.StatusNotFound, e.Error(), e, nil)
	case *ForbiddenError:
		return NewHttpError(http.StatusForbidden, e.Error(), e, nil)
	case *InvalidTransitionError:
		return NewHttpError(http.StatusConflict, e.Error(), e, e)
	}
	switch err {
	case ErrNotFound:
		return NewHttpError(http.StatusNotFound, err.Error(), err, nil)
	case ErrForbidden:
		return NewHttpError(http.StatusForbidden, err.Error(), err, nil)
	case ErrBadRequest:
		return NewHttpError(http.StatusBadRequest, err.Error(), err, nil)
	case ErrInvalidSigningMethod, ErrInvalidToken, ErrTokenExpired,
		ErrEmptyAuthHeader, ErrInvalidAuthHeader, ErrTokenIsNotAccess,
		ErrUserNotFoundInContext:
		return NewHttpError(http.StatusUnauthorized, err.Error(), err, nil)
	}
	return NewHttpError(http.StatusInternalServerError, "внутренняя ошибка сервера", err, nil)
}
