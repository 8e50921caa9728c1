package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/repositories"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/types"
)

// ResolveDescendants — чистый обход иерархии: сам филиал плюс все активные
// потомки. Посещённые вершины помечаются, поэтому цикл в данных не зацикливает
// обход, а просто ограничивает его.
func ResolveDescendants(links []repositories.BranchLink, rootID uint64) []uint64 {
	children := make(map[uint64][]uint64, len(links))
	active := make(map[uint64]bool, len(links))
	for _, l := range links {
		active[l.ID] = l.IsActive
		if l.ParentID != nil {
			children[*l.ParentID] = append(children[*l.ParentID], l.ID)
		}
	}

	visited := map[uint64]struct{}{rootID: {}}
	result := []uint64{rootID}
	queue := []uint64{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			if !active[child] {
				continue
			}
			result = append(result, child)
			queue = append(queue, child)
		}
	}
	return result
}

type BranchServiceInterface interface {
	GetBranches(ctx context.Context, filter types.Filter) ([]entities.Branch, uint64, error)
	GetBranchByID(ctx context.Context, id uint64) (*entities.Branch, error)
	GetAuthorizedBranchIDs(ctx context.Context, userID uint64) ([]uint64, error)
	BuildScope(ctx context.Context, userID uint64, role authz.Role) (*authz.BranchScope, error)
	InvalidateUserScope(ctx context.Context, userID uint64) error
}

// BranchService — справочник филиалов и вычисление авторизованного набора.
// Набор потомков кешируется в Redis: иерархия меняется редко, а читается
// на каждом запросе.
type BranchService struct {
	branchRepo repositories.BranchRepositoryInterface
	userRepo   repositories.UserRepositoryInterface
	cache      repositories.CacheRepositoryInterface
	cacheTTL   time.Duration
	logger     *zap.Logger
}

func NewBranchService(
	branchRepo repositories.BranchRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *BranchService {
	return &BranchService{
		branchRepo: branchRepo,
		userRepo:   userRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func scopeCacheKey(userID uint64) string {
	return fmt.Sprintf("authz:branches:%d", userID)
}

func (s *BranchService) GetBranches(ctx context.Context, filter types.Filter) ([]entities.Branch, uint64, error) {
	return s.branchRepo.GetBranches(ctx, filter)
}

func (s *BranchService) GetBranchByID(ctx context.Context, id uint64) (*entities.Branch, error) {
	branch, err := s.branchRepo.FindBranch(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("филиал", "id=%d", id)
	}
	return branch, err
}

// GetAuthorizedBranchIDs возвращает набор «свой филиал + потомки».
// Сначала кеш, при промахе — обход иерархии и запись в кеш.
func (s *BranchService) GetAuthorizedBranchIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	key := scopeCacheKey(userID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		if ids, err := parseIDList(cached); err == nil {
			return ids, nil
		}
		// Нечитаемое значение в кеше перезаписываем свежим.
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.BranchID.Valid {
		return []uint64{}, nil
	}

	links, err := s.branchRepo.GetHierarchyLinks(ctx)
	if err != nil {
		return nil, err
	}
	ids := ResolveDescendants(links, user.BranchID.Uint64)

	if err := s.cache.Set(ctx, key, formatIDList(ids), s.cacheTTL); err != nil {
		// Промах кеша не фатален.
		s.logger.Warn("не удалось записать набор филиалов в кеш",
			zap.Uint64("user_id", userID), zap.Error(err))
	}
	return ids, nil
}

// BuildScope собирает предвычисленный набор для контекста запроса.
// Глобальным ролям обход иерархии не нужен.
func (s *BranchService) BuildScope(ctx context.Context, userID uint64, role authz.Role) (*authz.BranchScope, error) {
	if authz.IsGlobalRole(role) {
		return authz.NewBranchScope(role, nil), nil
	}
	ids, err := s.GetAuthorizedBranchIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return authz.NewBranchScope(role, ids), nil
}

// InvalidateUserScope сбрасывает кеш после перевода пользователя в другой филиал.
func (s *BranchService) InvalidateUserScope(ctx context.Context, userID uint64) error {
	return s.cache.Del(ctx, scopeCacheKey(userID))
}

func formatIDList(ids []uint64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatUint(id, 10))
	}
	return strings.Join(parts, ",")
}

func parseIDList(s string) ([]uint64, error) {
	if s == "" {
		return []uint64{}, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
