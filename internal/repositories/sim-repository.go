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

const simTable = "sim_cards"
const simFields = "s.id, s.serial, s.operator, s.branch_id, s.status, s.customer_id, s.technician_id, s.notes, s.created_at, s.updated_at"

var simMap = map[string]string{
	"id":         "s.id",
	"serial":     "s.serial",
	"operator":   "s.operator",
	"branch_id":  "s.branch_id",
	"status":     "s.status",
	"created_at": "s.created_at",
	"updated_at": "s.updated_at",
}

type SimRepositoryInterface interface {
	GetSimCards(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.SimCard, uint64, error)
	FindBySerial(ctx context.Context, serial string) (*entities.SimCard, error)
	FindBySerials(ctx context.Context, serials []string) (map[string]entities.SimCard, error)
	LockBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string) (map[string]entities.SimCard, error)
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, serial string, status string) error
	UpdateStatusAndBranchInTx(ctx context.Context, tx pgx.Tx, serial string, status string, branchID uint64) error
}

type SimRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewSimRepository(storage *pgxpool.Pool, logger *zap.Logger) SimRepositoryInterface {
	return &SimRepository{storage: storage, logger: logger}
}

func (r *SimRepository) GetSimCards(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.SimCard, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applyScope := func(b sq.SelectBuilder) sq.SelectBuilder {
		if branchIDs != nil {
			b = b.Where(sq.Eq{"s.branch_id": branchIDs})
		}
		if filter.Search != "" {
			b = b.Where(sq.ILike{"s.serial": "%" + filter.Search + "%"})
		}
		return b
	}

	countBuilder := applyScope(psql.Select("COUNT(s.id)").From(simTable + " AS s"))
	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = bd.ApplyListParams(countBuilder, countFilter, simMap)

	var total uint64
	sqlCount, argsCount, _ := countBuilder.ToSql()
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.SimCard{}, 0, nil
	}

	baseBuilder := applyScope(psql.Select(simFields).From(simTable + " AS s"))
	baseBuilder = bd.ApplyListParams(baseBuilder, filter, simMap)

	sqlQuery, args, err := baseBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sims := make([]entities.SimCard, 0)
	for rows.Next() {
		var s entities.SimCard
		if err := rows.Scan(
			&s.ID, &s.Serial, &s.Operator, &s.BranchID, &s.Status,
			&s.CustomerID, &s.TechnicianID, &s.Notes,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		sims = append(sims, s)
	}
	return sims, total, rows.Err()
}

func (r *SimRepository) FindBySerial(ctx context.Context, serial string) (*entities.SimCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s s WHERE s.serial = $1`, simFields, simTable)

	var s entities.SimCard
	err := r.storage.QueryRow(ctx, query, serial).Scan(
		&s.ID, &s.Serial, &s.Operator, &s.BranchID, &s.Status,
		&s.CustomerID, &s.TechnicianID, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования sim_card: %w", err)
	}
	return &s, nil
}

func (r *SimRepository) FindBySerials(ctx context.Context, serials []string) (map[string]entities.SimCard, error) {
	return r.findBySerials(ctx, r.storage, serials, false)
}

// Порядок блокировки тот же, что и у терминалов: по серийнику.
func (r *SimRepository) LockBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string) (map[string]entities.SimCard, error) {
	return r.findBySerials(ctx, tx, serials, true)
}

func (r *SimRepository) findBySerials(ctx context.Context, q querier, serials []string, forUpdate bool) (map[string]entities.SimCard, error) {
	if len(serials) == 0 {
		return map[string]entities.SimCard{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s s WHERE s.serial = ANY($1) ORDER BY s.serial`, simFields, simTable)
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := q.Query(ctx, query, serials)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]entities.SimCard, len(serials))
	for rows.Next() {
		var s entities.SimCard
		if err := rows.Scan(
			&s.ID, &s.Serial, &s.Operator, &s.BranchID, &s.Status,
			&s.CustomerID, &s.TechnicianID, &s.Notes,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[s.Serial] = s
	}
	return result, rows.Err()
}

func (r *SimRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, serial string, status string) error {
	result, err := tx.Exec(ctx,
		`UPDATE sim_cards SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE serial = $2`,
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

func (r *SimRepository) UpdateStatusAndBranchInTx(ctx context.Context, tx pgx.Tx, serial string, status string, branchID uint64) error {
	result, err := tx.Exec(ctx,
		`UPDATE sim_cards SET status = $1, branch_id = $2, updated_at = CURRENT_TIMESTAMP WHERE serial = $3`,
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
