package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asset-transfer-system/internal/authz"
	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/repositories"
	apperrors "asset-transfer-system/pkg/errors"
)

func link(id uint64, parent *uint64, active bool) repositories.BranchLink {
	return repositories.BranchLink{ID: id, ParentID: parent, IsActive: active}
}

func ptr(v uint64) *uint64 { return &v }

func TestResolveDescendants(t *testing.T) {
	// Иерархия: 1 -> {2, 3}, 2 -> {4}, 3 -> {5 (неактивный) -> 6}.
	links := []repositories.BranchLink{
		link(1, nil, true),
		link(2, ptr(1), true),
		link(3, ptr(1), true),
		link(4, ptr(2), true),
		link(5, ptr(3), false),
		link(6, ptr(5), true),
	}

	t.Run("корень с потомками", func(t *testing.T) {
		ids := ResolveDescendants(links, 1)
		// Неактивный 5 отсекает и своё поддерево (6).
		assert.ElementsMatch(t, []uint64{1, 2, 3, 4}, ids)
	})

	t.Run("лист", func(t *testing.T) {
		assert.Equal(t, []uint64{4}, ResolveDescendants(links, 4))
	})

	t.Run("корень без записи в иерархии", func(t *testing.T) {
		assert.Equal(t, []uint64{99}, ResolveDescendants(links, 99))
	})

	t.Run("цикл в данных не зацикливает обход", func(t *testing.T) {
		cyclic := []repositories.BranchLink{
			link(10, ptr(11), true),
			link(11, ptr(10), true),
		}
		ids := ResolveDescendants(cyclic, 10)
		assert.ElementsMatch(t, []uint64{10, 11}, ids)
	})
}

// --- ФЕЙКИ ДЛЯ КЕША И ПОЛЬЗОВАТЕЛЕЙ ---

type memCache struct {
	values map[string]string
	sets   int
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.values[key] = fmt.Sprint(value)
	c.sets++
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return "", apperrors.ErrNotFound
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

type stubUserRepo struct {
	users map[uint64]entities.User
	calls int
}

func (r *stubUserRepo) FindUserByID(_ context.Context, id uint64) (*entities.User, error) {
	r.calls++
	if u, ok := r.users[id]; ok {
		return &u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *stubUserRepo) FindByLogin(_ context.Context, login string) (*entities.User, error) {
	for _, u := range r.users {
		if u.Login == login {
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func newBranchEnv() (*BranchService, *fakeStore, *stubUserRepo, *memCache) {
	store := newFakeStore()
	users := &stubUserRepo{users: make(map[uint64]entities.User)}
	cache := newMemCache()
	svc := NewBranchService(
		&fakeBranchRepo{store: store}, users, cache, 5*time.Minute, zap.NewNop(),
	)
	return svc, store, users, cache
}

func addUserAt(users *stubUserRepo, id uint64, branchID uint64) {
	u := entities.User{ID: id, Login: fmt.Sprintf("user%d", id), IsActive: true}
	u.BranchID.SetValid(branchID)
	users.users[id] = u
}

func TestGetAuthorizedBranchIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("обход иерархии и кеширование", func(t *testing.T) {
		svc, store, users, cache := newBranchEnv()
		store.branches[1] = entities.Branch{ID: 1, Type: entities.BranchTypeOperating, IsActive: true}
		store.branches[2] = entities.Branch{ID: 2, ParentID: ptr(1), Type: entities.BranchTypeOperating, IsActive: true}
		addUserAt(users, 100, 1)

		ids, err := svc.GetAuthorizedBranchIDs(ctx, 100)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint64{1, 2}, ids)
		assert.Equal(t, 1, cache.sets)

		// Повторный вызов — из кеша, без похода за пользователем.
		users.calls = 0
		again, err := svc.GetAuthorizedBranchIDs(ctx, 100)
		require.NoError(t, err)
		assert.ElementsMatch(t, ids, again)
		assert.Zero(t, users.calls)
	})

	t.Run("пользователь без филиала", func(t *testing.T) {
		svc, _, users, _ := newBranchEnv()
		users.users[100] = entities.User{ID: 100, Login: "user100", IsActive: true}

		ids, err := svc.GetAuthorizedBranchIDs(ctx, 100)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("мусор в кеше перезаписывается", func(t *testing.T) {
		svc, store, users, cache := newBranchEnv()
		store.branches[1] = entities.Branch{ID: 1, Type: entities.BranchTypeOperating, IsActive: true}
		addUserAt(users, 100, 1)
		cache.values[scopeCacheKey(100)] = "not-a-number"

		ids, err := svc.GetAuthorizedBranchIDs(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, ids)
		assert.Equal(t, "1", cache.values[scopeCacheKey(100)])
	})

	t.Run("неизвестный пользователь", func(t *testing.T) {
		svc, _, _, _ := newBranchEnv()
		_, err := svc.GetAuthorizedBranchIDs(ctx, 404)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestBuildScope(t *testing.T) {
	ctx := context.Background()

	t.Run("глобальная роль без обхода иерархии", func(t *testing.T) {
		svc, _, users, _ := newBranchEnv()

		scope, err := svc.BuildScope(ctx, 100, authz.RoleAdmin)
		require.NoError(t, err)
		assert.True(t, scope.IsGlobal())
		assert.Nil(t, scope.BranchIDs())
		assert.Zero(t, users.calls)
	})

	t.Run("филиальная роль получает свой набор", func(t *testing.T) {
		svc, store, users, _ := newBranchEnv()
		store.branches[1] = entities.Branch{ID: 1, Type: entities.BranchTypeOperating, IsActive: true}
		addUserAt(users, 100, 1)

		scope, err := svc.BuildScope(ctx, 100, authz.RoleBranchManager)
		require.NoError(t, err)
		assert.False(t, scope.IsGlobal())
		assert.True(t, scope.Allows(1))
		assert.False(t, scope.Allows(2))
	})
}

func TestInvalidateUserScope(t *testing.T) {
	ctx := context.Background()
	svc, store, users, cache := newBranchEnv()
	store.branches[1] = entities.Branch{ID: 1, Type: entities.BranchTypeOperating, IsActive: true}
	addUserAt(users, 100, 1)

	_, err := svc.GetAuthorizedBranchIDs(ctx, 100)
	require.NoError(t, err)
	require.Contains(t, cache.values, scopeCacheKey(100))

	require.NoError(t, svc.InvalidateUserScope(ctx, 100))
	assert.NotContains(t, cache.values, scopeCacheKey(100))
}
