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
	"asset-transfer-system/pkg/constants"
	apperrors "asset-transfer-system/pkg/errors"
	"asset-transfer-system/pkg/types"
)

const transferTable = "transfer_orders"
const transferItemTable = "transfer_order_items"
const transferFields = "t.id, t.order_no, t.from_branch_id, t.to_branch_id, t.type, t.status, t.created_by, t.waybill, t.notes, t.created_at, t.updated_at"

var transferMap = map[string]string{
	"id":             "t.id",
	"order_no":       "t.order_no",
	"from_branch_id": "t.from_branch_id",
	"to_branch_id":   "t.to_branch_id",
	"type":           "t.type",
	"status":         "t.status",
	"created_by":     "t.created_by",
	"created_at":     "t.created_at",
}

// ActiveOrderRef — ссылка «серийник занят ордером». Несёт номер и филиалы
// конфликтующего ордера, чтобы ошибка была точной без повторных запросов.
type ActiveOrderRef struct {
	Serial       string
	OrderID      uint64
	OrderNo      string
	FromBranchID uint64
	ToBranchID   uint64
}

type TransferRepositoryInterface interface {
	CreateOrderInTx(ctx context.Context, tx pgx.Tx, order *entities.TransferOrder) (uint64, error)
	CreateItemsInTx(ctx context.Context, tx pgx.Tx, orderID uint64, items []entities.TransferOrderItem) error
	FindActiveRefsBySerials(ctx context.Context, serials []string, itemType string) ([]ActiveOrderRef, error)
	FindActiveRefsBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string, itemType string) ([]ActiveOrderRef, error)
	FindOrderByID(ctx context.Context, id uint64) (*entities.TransferOrder, error)
	LockOrderInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.TransferOrder, error)
	MarkItemReceivedInTx(ctx context.Context, tx pgx.Tx, orderID uint64, serial string) error
	UpdateOrderStatusInTx(ctx context.Context, tx pgx.Tx, orderID uint64, status string) error
	GetTransferOrders(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.TransferOrder, uint64, error)
	GetPendingSerials(ctx context.Context, branchIDs []uint64) ([]string, error)
}

type TransferRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewTransferRepository(storage *pgxpool.Pool, logger *zap.Logger) TransferRepositoryInterface {
	return &TransferRepository{storage: storage, logger: logger}
}

func (r *TransferRepository) CreateOrderInTx(ctx context.Context, tx pgx.Tx, order *entities.TransferOrder) (uint64, error) {
	var id uint64
	err := tx.QueryRow(ctx, `
		INSERT INTO transfer_orders (order_no, from_branch_id, to_branch_id, type, status, created_by, waybill, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		order.OrderNo, order.FromBranchID, order.ToBranchID, order.Type,
		order.Status, order.CreatedBy, order.Waybill, order.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки transfer_order: %w", err)
	}
	return id, nil
}

func (r *TransferRepository) CreateItemsInTx(ctx context.Context, tx pgx.Tx, orderID uint64, items []entities.TransferOrderItem) error {
	for _, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO transfer_order_items (order_id, serial, item_type, received)
			VALUES ($1, $2, $3, FALSE)`,
			orderID, item.Serial, item.ItemType,
		)
		if err != nil {
			return fmt.Errorf("ошибка вставки позиции %s: %w", item.Serial, err)
		}
	}
	return nil
}

func (r *TransferRepository) FindActiveRefsBySerials(ctx context.Context, serials []string, itemType string) ([]ActiveOrderRef, error) {
	return r.findActiveRefs(ctx, r.storage, serials, itemType)
}

func (r *TransferRepository) FindActiveRefsBySerialsInTx(ctx context.Context, tx pgx.Tx, serials []string, itemType string) ([]ActiveOrderRef, error) {
	return r.findActiveRefs(ctx, tx, serials, itemType)
}

// findActiveRefs ищет занятость по ВСЕМ филиалам: серийник, висящий
// в PENDING/PARTIAL ордере где угодно, занят для любой новой переброски.
func (r *TransferRepository) findActiveRefs(ctx context.Context, q querier, serials []string, itemType string) ([]ActiveOrderRef, error) {
	if len(serials) == 0 {
		return nil, nil
	}

	rows, err := q.Query(ctx, `
		SELECT i.serial, t.id, t.order_no, t.from_branch_id, t.to_branch_id
		FROM transfer_order_items i
		JOIN transfer_orders t ON t.id = i.order_id
		WHERE i.serial = ANY($1)
		  AND i.item_type = $2
		  AND t.status = ANY($3)`,
		serials, itemType, constants.ActiveTransferStatuses,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]ActiveOrderRef, 0)
	for rows.Next() {
		var ref ActiveOrderRef
		if err := rows.Scan(&ref.Serial, &ref.OrderID, &ref.OrderNo, &ref.FromBranchID, &ref.ToBranchID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *TransferRepository) FindOrderByID(ctx context.Context, id uint64) (*entities.TransferOrder, error) {
	return r.findOrder(ctx, r.storage, id, false)
}

// LockOrderInTx берёт строку ордера под FOR UPDATE: два конкурирующих
// приёма одного ордера сериализуются.
func (r *TransferRepository) LockOrderInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.TransferOrder, error) {
	return r.findOrder(ctx, tx, id, true)
}

func (r *TransferRepository) findOrder(ctx context.Context, q querier, id uint64, forUpdate bool) (*entities.TransferOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s t WHERE t.id = $1`, transferFields, transferTable)
	if forUpdate {
		query += " FOR UPDATE"
	}

	var o entities.TransferOrder
	err := q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.OrderNo, &o.FromBranchID, &o.ToBranchID, &o.Type,
		&o.Status, &o.CreatedBy, &o.Waybill, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("ордер переброски", "id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования transfer_order: %w", err)
	}

	items, err := r.findItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *TransferRepository) findItems(ctx context.Context, q querier, orderID uint64) ([]entities.TransferOrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, serial, item_type, received, received_at
		FROM transfer_order_items
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]entities.TransferOrderItem, 0)
	for rows.Next() {
		var it entities.TransferOrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Serial, &it.ItemType, &it.Received, &it.ReceivedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *TransferRepository) MarkItemReceivedInTx(ctx context.Context, tx pgx.Tx, orderID uint64, serial string) error {
	// received = FALSE в условии защищает от двойного применения.
	result, err := tx.Exec(ctx, `
		UPDATE transfer_order_items
		SET received = TRUE, received_at = CURRENT_TIMESTAMP
		WHERE order_id = $1 AND serial = $2 AND received = FALSE`,
		orderID, serial,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("позиция ордера", "order_id=%d serial=%s", orderID, serial)
	}
	return nil
}

func (r *TransferRepository) UpdateOrderStatusInTx(ctx context.Context, tx pgx.Tx, orderID uint64, status string) error {
	result, err := tx.Exec(ctx,
		`UPDATE transfer_orders SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, orderID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("ордер переброски", "id=%d", orderID)
	}
	return nil
}

func (r *TransferRepository) GetTransferOrders(ctx context.Context, filter types.Filter, branchIDs []uint64) ([]entities.TransferOrder, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	applyScope := func(b sq.SelectBuilder) sq.SelectBuilder {
		// Видимость ордера: источник ИЛИ назначение в авторизованном наборе.
		if branchIDs != nil {
			b = b.Where(sq.Or{
				sq.Eq{"t.from_branch_id": branchIDs},
				sq.Eq{"t.to_branch_id": branchIDs},
			})
		}
		if filter.Search != "" {
			b = b.Where(sq.ILike{"t.order_no": "%" + filter.Search + "%"})
		}
		return b
	}

	countBuilder := applyScope(psql.Select("COUNT(t.id)").From(transferTable + " AS t"))
	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = bd.ApplyListParams(countBuilder, countFilter, transferMap)

	var total uint64
	sqlCount, argsCount, _ := countBuilder.ToSql()
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.TransferOrder{}, 0, nil
	}

	baseBuilder := applyScope(psql.Select(transferFields, "fb.name", "tb.name").
		From(transferTable + " AS t").
		LeftJoin("branches AS fb ON fb.id = t.from_branch_id").
		LeftJoin("branches AS tb ON tb.id = t.to_branch_id"))
	baseBuilder = bd.ApplyListParams(baseBuilder, filter, transferMap)

	sqlQuery, args, err := baseBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]entities.TransferOrder, 0)
	for rows.Next() {
		var o entities.TransferOrder
		var fromName, toName *string
		if err := rows.Scan(
			&o.ID, &o.OrderNo, &o.FromBranchID, &o.ToBranchID, &o.Type,
			&o.Status, &o.CreatedBy, &o.Waybill, &o.Notes,
			&o.CreatedAt, &o.UpdatedAt,
			&fromName, &toName,
		); err != nil {
			return nil, 0, err
		}
		if fromName != nil {
			o.FromBranch = &entities.Branch{ID: o.FromBranchID, Name: *fromName}
		}
		if toName != nil {
			o.ToBranch = &entities.Branch{ID: o.ToBranchID, Name: *toName}
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// GetPendingSerials — серийники, занятые активными ордерами, в зоне видимости.
func (r *TransferRepository) GetPendingSerials(ctx context.Context, branchIDs []uint64) ([]string, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	builder := psql.Select("DISTINCT i.serial").
		From(transferItemTable + " AS i").
		Join(transferTable + " AS t ON t.id = i.order_id").
		Where(sq.Eq{"t.status": constants.ActiveTransferStatuses}).
		Where(sq.Eq{"i.received": false})
	if branchIDs != nil {
		builder = builder.Where(sq.Or{
			sq.Eq{"t.from_branch_id": branchIDs},
			sq.Eq{"t.to_branch_id": branchIDs},
		})
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

	serials := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		serials = append(serials, s)
	}
	return serials, rows.Err()
}
