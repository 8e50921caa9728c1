package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/pkg/api"
	"asset-transfer-system/pkg/contextkeys"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/service"
)

// ScopeBuilder собирает авторизованный набор филиалов пользователя.
type ScopeBuilder interface {
	BuildScope(ctx context.Context, userID uint64, role authz.Role) (*authz.BranchScope, error)
}

type AuthMiddleware struct {
	jwtService   service.JWTService
	scopeBuilder ScopeBuilder
	logger       *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, scopeBuilder ScopeBuilder, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:   jwtSvc,
		scopeBuilder: scopeBuilder,
		logger:       logger,
	}
}

// Auth - это основная функция middleware.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// 1. Извлекаем токен из заголовка
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			m.logger.Warn("AuthMiddleware: Пустой заголовок Authorization")
			return api.ErrorResponse(c, apperrors.ErrEmptyAuthHeader)
		}

		// 2. Проверяем формат заголовка "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("AuthMiddleware: Неверный формат заголовка Authorization")
			return api.ErrorResponse(c, apperrors.ErrInvalidAuthHeader)
		}

		tokenString := parts[1]

		// 3. Валидируем токен
		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.logger.Warn("AuthMiddleware: Ошибка валидации токена", zap.Error(err))
			return api.ErrorResponse(c, err)
		}

		// 4. Убеждаемся, что это не refresh токен
		if claims.IsRefreshToken {
			m.logger.Warn("AuthMiddleware: Попытка доступа с refresh токеном")
			return api.ErrorResponse(c, apperrors.ErrTokenIsNotAccess)
		}

		role, ok := authz.ParseRole(claims.Role)
		if !ok {
			m.logger.Warn("AuthMiddleware: Неизвестная роль в токене", zap.String("role", claims.Role))
			return api.ErrorResponse(c, apperrors.ErrInvalidToken)
		}

		// 5. Собираем авторизованный набор филиалов один раз на запрос
		ctx := c.Request().Context()
		scope, err := m.scopeBuilder.BuildScope(ctx, claims.UserID, role)
		if err != nil {
			m.logger.Error("AuthMiddleware: Не удалось собрать набор филиалов", zap.Error(err))
			return api.ErrorResponse(c, err)
		}

		// 6. Записываем UserID, роль и набор в контекст запроса
		newCtx := context.WithValue(ctx, contextkeys.UserIDKey, claims.UserID)
		newCtx = context.WithValue(newCtx, contextkeys.UserRoleKey, claims.Role)
		newCtx = authz.WithScope(newCtx, scope)
		c.SetRequest(c.Request().WithContext(newCtx))

		return next(c)
	}
}
