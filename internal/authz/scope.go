package authz

import (
	"context"

	"asset-transfer-system/pkg/contextkeys"
)

// BranchScope — предвычисленный набор id филиалов, доступных пользователю.
// Собирается один раз на запрос (сам филиал + все потомки) и кладётся
// в контекст, вместо повторного обхода иерархии в каждой проверке.
type BranchScope struct {
	Role     Role
	IDs      map[uint64]struct{}
	isGlobal bool
}

func NewBranchScope(role Role, branchIDs []uint64) *BranchScope {
	ids := make(map[uint64]struct{}, len(branchIDs))
	for _, id := range branchIDs {
		ids[id] = struct{}{}
	}
	return &BranchScope{Role: role, IDs: ids, isGlobal: IsGlobalRole(role)}
}

// Allows проверяет, входит ли филиал в авторизованный набор.
// Глобальные роли видят всё.
func (s *BranchScope) Allows(branchID uint64) bool {
	if s.isGlobal {
		return true
	}
	_, ok := s.IDs[branchID]
	return ok
}

// IsGlobal — true для ролей с обходом фильтрации по филиалам.
func (s *BranchScope) IsGlobal() bool {
	return s.isGlobal
}

// BranchIDs возвращает набор для SQL-фильтра (IN (...)). Для глобальной
// роли возвращает nil: фильтр не нужен.
func (s *BranchScope) BranchIDs() []uint64 {
	if s.isGlobal {
		return nil
	}
	out := make([]uint64, 0, len(s.IDs))
	for id := range s.IDs {
		out = append(out, id)
	}
	return out
}

// ScopeFromContext извлекает предвычисленный набор из контекста запроса.
func ScopeFromContext(ctx context.Context) (*BranchScope, bool) {
	scope, ok := ctx.Value(contextkeys.AuthorizedBranchesKey).(*BranchScope)
	return scope, ok && scope != nil
}

// WithScope кладёт набор в контекст. Вызывается middleware.
func WithScope(ctx context.Context, scope *BranchScope) context.Context {
	return context.WithValue(ctx, contextkeys.AuthorizedBranchesKey, scope)
}
