package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/xerrors"
)

// RFQRepository - интерфейс для работы с запросами котировок.
type RFQRepository interface {
	CreateRFQ(ctx context.Context, rfq *models.RFQ) (*models.RFQ, error)
	GetRFQ(ctx context.Context, rfqId string) (*models.RFQ, error)
	ListRFQs(ctx context.Context, filter models.RFQFilter) ([]models.RFQ, int, error)
	GetBuyerRFQs(ctx context.Context, buyerId string) ([]models.RFQ, error)
	UpdateRFQ(ctx context.Context, rfq *models.RFQ) (*models.RFQ, error)
	DeleteRFQ(ctx context.Context, rfqId string) error
}

// PostgresRFQRepository - реализация RFQRepository для базы данных.
type PostgresRFQRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresRFQRepository создает новый экземпляр PostgresRFQRepository.
func NewPostgresRFQRepository(db *pgxpool.Pool) *PostgresRFQRepository {
	return &PostgresRFQRepository{DB: db}
}

const rfqColumns = `r.id, r.buyer_id, r.title, r.description, r.category, r.quantity, r.specs, r.deadline,
	r.status, r.allow_negotiation, r.location_preference, r.attachments, r.created_at, r.updated_at`

func scanRFQ(row pgx.Row, withBuyer bool) (*models.RFQ, error) {
	var rfq models.RFQ
	dest := []any{
		&rfq.ID,
		&rfq.BuyerID,
		&rfq.Title,
		&rfq.Description,
		&rfq.Category,
		&rfq.Quantity,
		&rfq.Specs,
		&rfq.Deadline,
		&rfq.Status,
		&rfq.AllowNegotiation,
		&rfq.LocationPreference,
		&rfq.Attachments,
		&rfq.CreatedAt,
		&rfq.UpdatedAt,
	}
	var buyer models.UserSummary
	if withBuyer {
		dest = append(dest, &buyer.ID, &buyer.Name, &buyer.Role)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if withBuyer {
		rfq.Buyer = &buyer
	}
	return &rfq, nil
}

// CreateRFQ создает новый запрос котировок со статусом active.
func (r *PostgresRFQRepository) CreateRFQ(ctx context.Context, rfq *models.RFQ) (*models.RFQ, error) {
	now := time.Now().UTC()
	newRFQ := *rfq
	newRFQ.ID = uuid.New().String()
	newRFQ.Status = models.ActiveRFQ
	newRFQ.CreatedAt = now
	newRFQ.UpdatedAt = now
	if newRFQ.Attachments == nil {
		newRFQ.Attachments = []string{}
	}

	insertQuery := `INSERT INTO rfq (id, buyer_id, title, description, category, quantity, specs, deadline, status,
	                                 allow_negotiation, location_preference, attachments, created_at, updated_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		newRFQ.ID,
		newRFQ.BuyerID,
		newRFQ.Title,
		newRFQ.Description,
		newRFQ.Category,
		newRFQ.Quantity,
		newRFQ.Specs,
		newRFQ.Deadline,
		newRFQ.Status,
		newRFQ.AllowNegotiation,
		newRFQ.LocationPreference,
		newRFQ.Attachments,
		newRFQ.CreatedAt,
		newRFQ.UpdatedAt)
	if err != nil {
		return nil, xerrors.Errorf("insert rfq: %w", translate(err))
	}
	return &newRFQ, nil
}

// GetRFQ возвращает RFQ вместе с краткими сведениями о покупателе.
func (r *PostgresRFQRepository) GetRFQ(ctx context.Context, rfqId string) (*models.RFQ, error) {
	query := `SELECT ` + rfqColumns + `, u.id, u.name, u.role
	          FROM rfq r
	          JOIN users u ON u.id = r.buyer_id
	          WHERE r.id = $1`
	rfq, err := scanRFQ(r.DB.QueryRow(ctx, query, rfqId), true)
	if err != nil {
		return nil, xerrors.Errorf("get rfq %s: %w", rfqId, translate(err))
	}
	return rfq, nil
}

// likePattern экранирует спецсимволы LIKE и оборачивает строку для поиска подстроки.
func likePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(s) + "%"
}

// buildRFQWhere собирает условие WHERE и аргументы для фильтра.
func buildRFQWhere(filter models.RFQFilter) (string, []any) {
	var conditions []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Query != "" {
		args = append(args, likePattern(filter.Query))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(r.title ILIKE $%d OR r.description ILIKE $%d)", n, n))
	}
	if filter.Category != "" {
		add("r.category = $%d", filter.Category)
	}
	if filter.Status != "" {
		add("r.status = $%d", filter.Status)
	}
	if filter.MinQty != nil {
		add("r.quantity >= $%d", *filter.MinQty)
	}
	if filter.MaxQty != nil {
		add("r.quantity <= $%d", *filter.MaxQty)
	}
	if filter.DeadlineBefore != nil {
		add("r.deadline <= $%d", *filter.DeadlineBefore)
	}
	if filter.DeadlineAfter != nil {
		add("r.deadline >= $%d", *filter.DeadlineAfter)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func rfqOrderBy(sort models.RFQSort) string {
	switch sort {
	case models.SortOldest:
		return "r.created_at ASC, r.id"
	case models.SortQtyAsc:
		return "r.quantity ASC, r.created_at DESC, r.id"
	case models.SortQtyDesc:
		return "r.quantity DESC, r.created_at DESC, r.id"
	default:
		return "r.created_at DESC, r.id"
	}
}

// ListRFQs возвращает страницу RFQ по фильтру и общее число подходящих записей.
func (r *PostgresRFQRepository) ListRFQs(ctx context.Context, filter models.RFQFilter) ([]models.RFQ, int, error) {
	where, args := buildRFQWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM rfq r` + where
	if err := r.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, xerrors.Errorf("count rfqs: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s, u.id, u.name, u.role
		FROM rfq r
		JOIN users u ON u.id = r.buyer_id%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`, rfqColumns, where, rfqOrderBy(filter.Sort), len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, xerrors.Errorf("list rfqs: %w", err)
	}
	defer rows.Close()

	rfqs := []models.RFQ{}
	for rows.Next() {
		rfq, err := scanRFQ(rows, true)
		if err != nil {
			return nil, 0, xerrors.Errorf("scan rfq: %w", err)
		}
		rfqs = append(rfqs, *rfq)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, xerrors.Errorf("iterate rfqs: %w", err)
	}
	return rfqs, total, nil
}

// GetBuyerRFQs возвращает RFQ покупателя, новые первыми.
func (r *PostgresRFQRepository) GetBuyerRFQs(ctx context.Context, buyerId string) ([]models.RFQ, error) {
	query := `SELECT ` + rfqColumns + `
	          FROM rfq r
	          WHERE r.buyer_id = $1
	          ORDER BY r.created_at DESC`
	rows, err := r.DB.Query(ctx, query, buyerId)
	if err != nil {
		return nil, xerrors.Errorf("list buyer rfqs: %w", translate(err))
	}
	defer rows.Close()

	rfqs := []models.RFQ{}
	for rows.Next() {
		rfq, err := scanRFQ(rows, false)
		if err != nil {
			return nil, xerrors.Errorf("scan rfq: %w", err)
		}
		rfqs = append(rfqs, *rfq)
	}
	return rfqs, rows.Err()
}

// UpdateRFQ сохраняет изменяемые поля RFQ. Закрытый RFQ не изменяется.
func (r *PostgresRFQRepository) UpdateRFQ(ctx context.Context, rfq *models.RFQ) (*models.RFQ, error) {
	if rfq.Attachments == nil {
		rfq.Attachments = []string{}
	}
	updateQuery := `UPDATE rfq r
		SET title = $2, description = $3, category = $4, quantity = $5, specs = $6, deadline = $7,
		    allow_negotiation = $8, location_preference = $9, attachments = $10, updated_at = $11
		WHERE r.id = $1 AND r.status = 'active'
		RETURNING ` + rfqColumns
	updated, err := scanRFQ(r.DB.QueryRow(
		ctx,
		updateQuery,
		rfq.ID,
		rfq.Title,
		rfq.Description,
		rfq.Category,
		rfq.Quantity,
		rfq.Specs,
		rfq.Deadline,
		rfq.AllowNegotiation,
		rfq.LocationPreference,
		rfq.Attachments,
		time.Now().UTC()), false)
	if err == nil {
		return updated, nil
	}
	if err = translate(err); !errors.Is(err, ErrNotFound) {
		return nil, xerrors.Errorf("update rfq %s: %w", rfq.ID, err)
	}

	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rfq WHERE id = $1)`, rfq.ID).Scan(&exists); err != nil {
		return nil, xerrors.Errorf("check rfq %s: %w", rfq.ID, err)
	}
	if exists {
		return nil, ErrRFQNotActive
	}
	return nil, ErrNotFound
}

// DeleteRFQ удаляет RFQ вместе со всеми предложениями в одной транзакции.
func (r *PostgresRFQRepository) DeleteRFQ(ctx context.Context, rfqId string) error {
	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM bid WHERE rfq_id = $1`, rfqId); err != nil {
			return xerrors.Errorf("delete bids of rfq %s: %w", rfqId, translate(err))
		}
		tag, err := tx.Exec(ctx, `DELETE FROM rfq WHERE id = $1`, rfqId)
		if err != nil {
			return xerrors.Errorf("delete rfq %s: %w", rfqId, translate(err))
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	return err
}
