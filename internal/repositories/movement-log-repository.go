package repositories

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"asset-transfer-system/internal/entities"
)

// MovementLogRepositoryInterface — запись только внутри транзакции мутации.
// Методов UPDATE/DELETE нет намеренно: журнал append-only.
type MovementLogRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.MovementLog) error
	CreateSystemInTx(ctx context.Context, tx pgx.Tx, entry *entities.SystemLog) error
	FindBySerial(ctx context.Context, serial string) ([]entities.MovementLog, error)
	GetMovements(ctx context.Context, branchIDs []uint64, limit, offset int) ([]entities.MovementLog, uint64, error)
}

type MovementLogRepository struct {
	storage *pgxpool.Pool
}

func NewMovementLogRepository(storage *pgxpool.Pool) MovementLogRepositoryInterface {
	return &MovementLogRepository{storage: storage}
}

func (r *MovementLogRepository) CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.MovementLog) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO movement_logs (serial, asset_type, action, from_branch_id, to_branch_id, performed_by, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.Serial, entry.AssetType, entry.Action,
		entry.FromBranchID, entry.ToBranchID, entry.PerformedBy, entry.Detail,
	)
	return err
}

func (r *MovementLogRepository) CreateSystemInTx(ctx context.Context, tx pgx.Tx, entry *entities.SystemLog) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO system_logs (entity_type, entity_id, action, performed_by, branch_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.EntityType, entry.EntityID, entry.Action,
		entry.PerformedBy, entry.BranchID, entry.Detail,
	)
	return err
}

func (r *MovementLogRepository) FindBySerial(ctx context.Context, serial string) ([]entities.MovementLog, error) {
	rows, err := r.storage.Query(ctx, `
		SELECT id, serial, asset_type, action, from_branch_id, to_branch_id, performed_by, detail, created_at
		FROM movement_logs
		WHERE serial = $1
		ORDER BY created_at ASC, id ASC`,
		serial,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMovements(rows)
}

func (r *MovementLogRepository) GetMovements(ctx context.Context, branchIDs []uint64, limit, offset int) ([]entities.MovementLog, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applyScope := func(b sq.SelectBuilder) sq.SelectBuilder {
		if branchIDs != nil {
			b = b.Where(sq.Or{
				sq.Eq{"l.from_branch_id": branchIDs},
				sq.Eq{"l.to_branch_id": branchIDs},
			})
		}
		return b
	}

	var total uint64
	sqlCount, argsCount, _ := applyScope(psql.Select("COUNT(l.id)").From("movement_logs AS l")).ToSql()
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.MovementLog{}, 0, nil
	}

	builder := applyScope(psql.Select(
		"l.id", "l.serial", "l.asset_type", "l.action",
		"l.from_branch_id", "l.to_branch_id", "l.performed_by", "l.detail", "l.created_at").
		From("movement_logs AS l").
		OrderBy("l.created_at DESC", "l.id DESC"))
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
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

	logs, err := scanMovements(rows)
	return logs, total, err
}

func scanMovements(rows pgx.Rows) ([]entities.MovementLog, error) {
	logs := make([]entities.MovementLog, 0)
	for rows.Next() {
		var l entities.MovementLog
		if err := rows.Scan(
			&l.ID, &l.Serial, &l.AssetType, &l.Action,
			&l.FromBranchID, &l.ToBranchID, &l.PerformedBy, &l.Detail, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// NewMovementEntry — заготовка записи о движении по ордеру переброски.
func NewMovementEntry(serial, assetType, action string, fromBranch, toBranch uint64, performedBy uint64, detail string) *entities.MovementLog {
	entry := &entities.MovementLog{
		Serial:      serial,
		AssetType:   assetType,
		Action:      action,
		PerformedBy: performedBy,
	}
	entry.FromBranchID.SetValid(fromBranch)
	entry.ToBranchID.SetValid(toBranch)
	if detail != "" {
		entry.Detail.SetValid(detail)
	}
	return entry
}
