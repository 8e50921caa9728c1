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

const branchTable = "branches"
const branchFields = "b.id, b.name, b.short_name, b.type, b.parent_id, b.is_active, b.created_at, b.updated_at"

var branchMap = map[string]string{
	"id":         "b.id",
	"name":       "b.name",
	"short_name": "b.short_name",
	"type":       "b.type",
	"parent_id":  "b.parent_id",
	"is_active":  "b.is_active",
	"created_at": "b.created_at",
	"updated_at": "b.updated_at",
}

// BranchLink — минимальная пара для обхода иерархии без загрузки сущностей.
type BranchLink struct {
	ID       uint64
	ParentID *uint64
	IsActive bool
}

type BranchRepositoryInterface interface {
	GetBranches(ctx context.Context, filter types.Filter) ([]entities.Branch, uint64, error)
	FindBranch(ctx context.Context, id uint64) (*entities.Branch, error)
	FindBranches(ctx context.Context, ids []uint64) (map[uint64]entities.Branch, error)
	GetHierarchyLinks(ctx context.Context) ([]BranchLink, error)
}

type BranchRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewBranchRepository(storage *pgxpool.Pool, logger *zap.Logger) BranchRepositoryInterface {
	return &BranchRepository{storage: storage, logger: logger}
}

func scanBranch(row pgx.Row) (*entities.Branch, error) {
	var b entities.Branch
	err := row.Scan(
		&b.ID, &b.Name, &b.ShortName, &b.Type, &b.ParentID,
		&b.IsActive, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования branch: %w", err)
	}
	return &b, nil
}

func (r *BranchRepository) GetBranches(ctx context.Context, filter types.Filter) ([]entities.Branch, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applySearch := func(b sq.SelectBuilder) sq.SelectBuilder {
		if filter.Search != "" {
			pat := "%" + filter.Search + "%"
			return b.Where(sq.Or{
				sq.ILike{"b.name": pat},
				sq.ILike{"b.short_name": pat},
			})
		}
		return b
	}

	countBuilder := applySearch(psql.Select("COUNT(b.id)").From(branchTable + " AS b"))
	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = bd.ApplyListParams(countBuilder, countFilter, branchMap)

	var total uint64
	sqlCount, argsCount, _ := countBuilder.ToSql()
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Branch{}, 0, nil
	}

	baseBuilder := applySearch(psql.Select(branchFields).From(branchTable + " AS b"))
	baseBuilder = bd.ApplyListParams(baseBuilder, filter, branchMap)

	sqlQuery, args, err := baseBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	branches := make([]entities.Branch, 0)
	for rows.Next() {
		var b entities.Branch
		if err := rows.Scan(
			&b.ID, &b.Name, &b.ShortName, &b.Type, &b.ParentID,
			&b.IsActive, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		branches = append(branches, b)
	}
	return branches, total, rows.Err()
}

func (r *BranchRepository) FindBranch(ctx context.Context, id uint64) (*entities.Branch, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s b WHERE b.id = $1`, branchFields, branchTable)
	return scanBranch(r.storage.QueryRow(ctx, query, id))
}

func (r *BranchRepository) FindBranches(ctx context.Context, ids []uint64) (map[uint64]entities.Branch, error) {
	if len(ids) == 0 {
		return map[uint64]entities.Branch{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s b WHERE b.id = ANY($1)`, branchFields, branchTable)
	rows, err := r.storage.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uint64]entities.Branch, len(ids))
	for rows.Next() {
		var b entities.Branch
		if err := rows.Scan(
			&b.ID, &b.Name, &b.ShortName, &b.Type, &b.ParentID,
			&b.IsActive, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[b.ID] = b
	}
	return result, rows.Err()
}

// GetHierarchyLinks отдаёт весь лес одним запросом; обход делает сервис.
func (r *BranchRepository) GetHierarchyLinks(ctx context.Context) ([]BranchLink, error) {
	rows, err := r.storage.Query(ctx, `SELECT id, parent_id, is_active FROM branches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]BranchLink, 0)
	for rows.Next() {
		var l BranchLink
		if err := rows.Scan(&l.ID, &l.ParentID, &l.IsActive); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
