package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"asset-transfer-system/internal/entities"
	"asset-transfer-system/internal/infrastructure/bd"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/types"
)

const machineTable = "machines"
const machineFields = "m.id, m.serial, m.model, m.branch_id, m.status, m.customer_id, m.technician_id, m.notes, m.created_at, m.updated_at"

var machineMap = map[string]string{
	"id":         "m.id",
	"serial":     "m.serial",
	"model":      "m.model",
	"branch_id":  "m.branch_id",
	"status":     "m.status",
	"created_at": "m.created_at",
	"updated_at": "m.updated_at",
}

type MachineRepositoryInterface interface {
	GetMachines(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.Machine, uint64, error)
	FindBySerial(ctx context.Context, serial string) (*entities.Machine, error)
	FindBySerials(ctx context.Context, serials []string) (map[string]entities.Machine, error)
	LockBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string) (map[string]entities.Machine, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, serial string, status string) error
	UpdateStatusAndBranchInTx(ctx context.Context, tx pgx.Tx, serial string, status string, branchID uint64) error
	CountByStatuses(ctx context.Context, branchID *uint64, statuses []string) (map[string]uint64, error)
}

type MachineRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewMachineRepository(storage *pgxpool.Pool, logger *zap.Logger) MachineRepositoryInterface {
	return &MachineRepository{storage: storage, logger: logger}
}

func scanMachine(row pgx.Row) (*entities.Machine, error) {
	var m entities.Machine
	err := row.Scan(
		&m.ID, &m.Serial, &m.Model, &m.BranchID, &m.Status,
		&m.CustomerID, &m.TechnicianID, &m.Notes,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования machine: %w", err)
	}
	return &m, nil
}

func (r *MachineRepository) GetMachines(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.Machine, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applyScope := func(b sq.SelectBuilder) sq.SelectBuilder {
		// branchIDs == nil — глобальная роль, фильтр не нужен.
		if branchIDs != nil {
			b = b.Where(sq.Eq{"m.branch_id": branchIDs})
		}
		if filter.Search != "" {
			pat := "%" + filter.Search + "%"
			b = b.Where(sq.Or{
				sq.ILike{"m.serial": pat},
				sq.ILike{"m.model": pat},
			})
		}
		return b
	}

	countBuilder := applyScope(psql.Select("COUNT(m.id)").From(machineTable + " AS m"))
	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = bd.ApplyListParams(countBuilder, countFilter, machineMap)

	var total uint64
	sqlCount, argsCount, _ := countBuilder.ToSql()
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Machine{}, 0, nil
	}

	baseBuilder := applyScope(psql.Select(machineFields, "b.id", "b.name").
		From(machineTable + " AS m").
		LeftJoin("branches AS b ON b.id = m.branch_id"))
	baseBuilder = bd.ApplyListParams(baseBuilder, filter, machineMap)

	sqlQuery, args, err := baseBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	machines := make([]entities.Machine, 0)
	for rows.Next() {
		var m entities.Machine
		var branchID *uint64
		var branchName *string
		if err := rows.Scan(
			&m.ID, &m.Serial, &m.Model, &m.BranchID, &m.Status,
			&m.CustomerID, &m.TechnicianID, &m.Notes,
			&m.CreatedAt, &m.UpdatedAt,
			&branchID, &branchName,
		); err != nil {
			return nil, 0, err
		}
		if branchID != nil && branchName != nil {
			m.Branch = &entities.Branch{ID: *branchID, Name: *branchName}
		}
		machines = append(machines, m)
	}
	return machines, total, rows.Err()
}

func (r *MachineRepository) FindBySerial(ctx context.Context, serial string) (*entities.Machine, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s m WHERE m.serial = $1`, machineFields, machineTable)
	return scanMachine(r.storage.QueryRow(ctx, query, serial))
}

func (r *MachineRepository) FindBySerials(ctx context.Context, serials []string) (map[string]entities.Machine, error) {
	return r.findBySerials(ctx, r.storage, serials, false)
}

// LockBySerialsInTx читает строки под FOR UPDATE в порядке серийников,
// чтобы конкурирующие переброски сериализовались на одних и тех же строках
// без взаимных блокировок.
func (r *MachineRepository) LockBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string) (map[string]entities.Machine, error) {
	return r.findBySerials(ctx, tx, serials, true)
}

func (r *MachineRepository) findBySerials(ctx context.Context, q querier, serials []string, forUpdate bool) (map[string]entities.Machine, error) {
	if len(serials) == 0 {
		return map[string]entities.Machine{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s m WHERE m.serial = ANY($1) ORDER BY m.serial`, machineFields, machineTable)
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := q.Query(ctx, query, serials)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]entities.Machine, len(serials))
	for rows.Next() {
		var m entities.Machine
		if err := rows.Scan(
			&m.ID, &m.Serial, &m.Model, &m.BranchID, &m.Status,
			&m.CustomerID, &m.TechnicianID, &m.Notes,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[m.Serial] = m
	}
	return result, rows.Err()
}

func (r *MachineRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, serial string, status string) error {
	result, err := tx.Exec(ctx,
		`UPDATE machines SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE serial = $2`,
		status, serial,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *MachineRepository) UpdateStatusAndBranchInTx(ctx context.Context, tx pgx.Tx, serial string, status string, branchID uint64) error {
	result, err := tx.Exec(ctx,
		`UPDATE machines SET status = $1, branch_id = $2, updated_at = CURRENT_TIMESTAMP WHERE serial = $3`,
		status, branchID, serial,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *MachineRepository) CountByStatuses(ctx context.Context, branchID *uint64, statuses []string) (map[string]uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select("m.status", "COUNT(m.id)").
		From(machineTable + " AS m").
		Where(sq.Eq{"m.status": statuses}).
		GroupBy("m.status")
	if branchID != nil {
		builder = builder.Where(sq.Eq{"m.branch_id": *branchID})
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var status string
		var count uint64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
