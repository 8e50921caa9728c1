package repositories

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"asset-transfer-system/pkg/types"
)

// Интеграционные тесты ходят в живой PostgreSQL. Без TEST_DATABASE_URL
// весь пакет пропускается.
var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("подключение к тестовой БД: %v", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			log.Fatalf("goose: %v", err)
		}
		if err := goose.Up(db, "../../migrations"); err != nil {
			log.Fatalf("миграции тестовой БД: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Fatalf("закрытие миграционного соединения: %v", err)
		}

		testPool, err = pgxpool.New(context.Background(), dsn)
		if err != nil {
			log.Fatalf("пул тестовой БД: %v", err)
		}
	}

	code := m.Run()
	if testPool != nil {
		testPool.Close()
	}
	os.Exit(code)
}

func requireDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL не задан, интеграционные тесты пропущены")
	}
	return testPool
}

// fixture очищает таблицы и сажает минимальный набор: два филиала,
// сервисный центр и пользователь.
type fixture struct {
	pool     *pgxpool.Pool
	branchA  uint64
	branchB  uint64
	centerID uint64
	userID   uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool := requireDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		TRUNCATE system_logs, movement_logs, maintenance_requests,
		         transfer_order_items, transfer_orders,
		         machines, sim_cards, users, branches
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	f := &fixture{pool: pool}
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO branches (name, type) VALUES ('Филиал А', 'OPERATING') RETURNING id`,
	).Scan(&f.branchA))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO branches (name, type) VALUES ('Филиал Б', 'OPERATING') RETURNING id`,
	).Scan(&f.branchB))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO branches (name, type) VALUES ('Сервисный центр', 'MAINTENANCE_CENTER') RETURNING id`,
	).Scan(&f.centerID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (fio, login, password_hash, role, branch_id)
		 VALUES ('Тестовый Пользователь', 'tester', 'x', 'BRANCH_MANAGER', $1) RETURNING id`,
		f.branchA,
	).Scan(&f.userID))
	return f
}

func testListFilter() types.Filter {
	return types.Filter{Limit: 20, WithPagination: true}
}

func (f *fixture) addMachine(t *testing.T, serial string, branchID uint64, status string) {
	t.Helper()
	_, err := f.pool.Exec(context.Background(),
		`INSERT INTO machines (serial, branch_id, status) VALUES ($1, $2, $3)`,
		serial, branchID, status)
	require.NoError(t, err)
}
