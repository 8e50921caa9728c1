package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"asset-transfer-system/internal/entities"
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/types"
)

const maintenanceTable = "maintenance_requests"
const maintenanceFields = "r.id, r.serial, r.asset_type, r.branch_id, r.status, r.problem, r.technician_id, r.resolution, r.repair_cost, r.parts_used, r.created_at, r.updated_at"

type MaintenanceRepositoryInterface interface {
	Create(ctx context.Context, req *entities.MaintenanceRequest) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.MaintenanceRequest, error)
	FindActiveBySerial(ctx context.Context, serial string) (*entities.MaintenanceRequest, error)
	FindActiveBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string) (map[string]entities.MaintenanceRequest, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id uint64, status string) error
	CloseInTx(ctx context.Context, tx pgx.Tx, id uint64, resolution string, repairCost *float64, partsUsed string) error
	GetRequests(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.MaintenanceRequest, uint64, error)
}

type MaintenanceRepository struct {
	storage *pgxpool.Pool
}

func NewMaintenanceRepository(storage *pgxpool.Pool) MaintenanceRepositoryInterface {
	return &MaintenanceRepository{storage: storage}
}

func scanMaintenance(row pgx.Row) (*entities.MaintenanceRequest, error) {
	var m entities.MaintenanceRequest
	err := row.Scan(
		&m.ID, &m.Serial, &m.AssetType, &m.BranchID, &m.Status, &m.Problem,
		&m.TechnicianID, &m.Resolution, &m.RepairCost, &m.PartsUsed,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования maintenance_request: %w", err)
	}
	return &m, nil
}

func (r *MaintenanceRepository) Create(ctx context.Context, req *entities.MaintenanceRequest) (uint64, error) {
	var id uint64
	err := r.storage.QueryRow(ctx, `
		INSERT INTO maintenance_requests (serial, asset_type, branch_id, status, problem)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		req.Serial, req.AssetType, req.BranchID, req.Status, req.Problem,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки maintenance_request: %w", err)
	}
	return id, nil
}

func (r *MaintenanceRepository) FindByID(ctx context.Context, id uint64) (*entities.MaintenanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s r WHERE r.id = $1`, maintenanceFields, maintenanceTable)
	return scanMaintenance(r.storage.QueryRow(ctx, query, id))
}

// FindActiveBySerial — незакрытая заявка по серийнику; открытой может быть максимум одна.
func (r *MaintenanceRepository) FindActiveBySerial(ctx context.Context, serial string) (*entities.MaintenanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s r WHERE r.serial = $1 AND r.status <> $2 ORDER BY r.id DESC LIMIT 1`,
		maintenanceFields, maintenanceTable)
	return scanMaintenance(r.storage.QueryRow(ctx, query, serial, constants.MaintenanceStatusClosed))
}

func (r *MaintenanceRepository) FindActiveBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string) (map[string]entities.MaintenanceRequest, error) {
	if len(serials) == 0 {
		return map[string]entities.MaintenanceRequest{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s r WHERE r.serial = ANY($1) AND r.status <> $2`,
		maintenanceFields, maintenanceTable)
	rows, err := tx.Query(ctx, query, serials, constants.MaintenanceStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]entities.MaintenanceRequest)
	for rows.Next() {
		var m entities.MaintenanceRequest
		if err := rows.Scan(
			&m.ID, &m.Serial, &m.AssetType, &m.BranchID, &m.Status, &m.Problem,
			&m.TechnicianID, &m.Resolution, &m.RepairCost, &m.PartsUsed,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[m.Serial] = m
	}
	return result, rows.Err()
}

func (r *MaintenanceRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id uint64, status string) error {
	result, err := tx.Exec(ctx,
		`UPDATE maintenance_requests SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("ремонтная заявка", "id=%d", id)
	}
	return nil
}

// CloseInTx закрывает заявку с исходом и платёжными реквизитами ремонта.
func (r *MaintenanceRepository) CloseInTx(ctx context.Context, tx pgx.Tx, id uint64, resolution string, repairCost *float64, partsUsed string) error {
	var parts interface{}
	if partsUsed != "" {
		parts = partsUsed
	}
	result, err := tx.Exec(ctx, `
		UPDATE maintenance_requests
		SET status = $1, resolution = $2, repair_cost = $3, parts_used = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5`,
		constants.MaintenanceStatusClosed, resolution, repairCost, parts, id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("ремонтная заявка", "id=%d", id)
	}
	return nil
}

func (r *MaintenanceRepository) GetRequests(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.MaintenanceRequest, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	maintenanceMap := map[string]string{
		"serial":     "r.serial",
		"asset_type": "r.asset_type",
		"branch_id":  "r.branch_id",
		"status":     "r.status",
		"created_at": "r.created_at",
	}

	applyScope := func(b sq.SelectBuilder) sq.SelectBuilder {
		if branchIDs != nil {
			b = b.Where(sq.Eq{"r.branch_id": branchIDs})
		}
		return b
	}

	countBuilder := applyScope(psql.Select("COUNT(r.id)").From(maintenanceTable + " AS r"))
	for jsonField, val := range filter.Filter {
		if dbCol, ok := maintenanceMap[jsonField]; ok {
			countBuilder = countBuilder.Where(sq.Eq{dbCol: val})
		}
	}

	var total uint64
	sqlCount, argsCount, _ := countBuilder.ToSql()
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.MaintenanceRequest{}, 0, nil
	}

	builder := applyScope(psql.Select(maintenanceFields).From(maintenanceTable + " AS r").OrderBy("r.created_at DESC"))
	for jsonField, val := range filter.Filter {
		if dbCol, ok := maintenanceMap[jsonField]; ok {
			builder = builder.Where(sq.Eq{dbCol: val})
		}
	}
	if filter.WithPagination && filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]entities.MaintenanceRequest, 0)
	for rows.Next() {
		var m entities.MaintenanceRequest
		if err := rows.Scan(
			&m.ID, &m.Serial, &m.AssetType, &m.BranchID, &m.Status, &m.Problem,
			&m.TechnicianID, &m.Resolution, &m.RepairCost, &m.PartsUsed,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		requests = append(requests, m)
	}
	return requests, total, rows.Err()
}
