package repository

import (
	"context"
	"errors"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/xerrors"
)

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	UpsertBid(ctx context.Context, bid *models.Bid) (*models.Bid, bool, error)
	GetBid(ctx context.Context, bidId string) (*models.Bid, error)
	GetRFQBids(ctx context.Context, rfqId string) ([]models.Bid, error)
	GetProviderBids(ctx context.Context, providerId string) ([]models.Bid, error)
	EditBid(ctx context.Context, bid *models.Bid) (*models.Bid, error)
	AcceptBid(ctx context.Context, bidId string) (*models.Bid, bool, error)
	RejectBid(ctx context.Context, bidId, reason string) (*models.Bid, bool, error)
	DeleteBid(ctx context.Context, bidId string) error
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `b.id, b.rfq_id, b.provider_id, b.amount, b.message, b.eta_days, b.status,
	b.rejection_reason, b.attachments, b.created_at, b.updated_at`

func bidDest(bid *models.Bid) []any {
	return []any{
		&bid.ID,
		&bid.RFQID,
		&bid.ProviderID,
		&bid.Amount,
		&bid.Message,
		&bid.EtaDays,
		&bid.Status,
		&bid.RejectionReason,
		&bid.Attachments,
		&bid.CreatedAt,
		&bid.UpdatedAt,
	}
}

func scanBid(row pgx.Row) (*models.Bid, error) {
	var bid models.Bid
	if err := row.Scan(bidDest(&bid)...); err != nil {
		return nil, err
	}
	return &bid, nil
}

// UpsertBid создает предложение или перезаписывает существующее предложение того же
// исполнителя по тому же RFQ, возвращая его в статус pending. Выполняется одним
// оператором: уникальный ключ (rfq_id, provider_id) исключает дубликаты при гонке,
// а условие на статус RFQ не дает подать предложение на закрытый запрос.
// Второе возвращаемое значение равно true, если запись была создана.
func (r *PostgresBidRepository) UpsertBid(ctx context.Context, bid *models.Bid) (*models.Bid, bool, error) {
	attachments := bid.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	now := time.Now().UTC()

	upsertQuery := `INSERT INTO bid AS b (id, rfq_id, provider_id, amount, message, eta_days, status,
	                                     rejection_reason, attachments, created_at, updated_at)
		SELECT $1::uuid, r.id, $3::uuid, $4::numeric, $5::text, $6::int, 'pending', '', $7::text[], $8::timestamptz, $8::timestamptz
		FROM rfq r
		WHERE r.id = $2 AND r.status = 'active'
		ON CONFLICT (rfq_id, provider_id) DO UPDATE
		SET amount = EXCLUDED.amount,
		    message = EXCLUDED.message,
		    eta_days = COALESCE(EXCLUDED.eta_days, b.eta_days),
		    attachments = CASE WHEN cardinality(EXCLUDED.attachments) > 0 THEN EXCLUDED.attachments ELSE b.attachments END,
		    status = 'pending',
		    rejection_reason = '',
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + bidColumns + `, (xmax = 0) AS inserted`

	var saved models.Bid
	var inserted bool
	err := r.DB.QueryRow(
		ctx,
		upsertQuery,
		uuid.New().String(),
		bid.RFQID,
		bid.ProviderID,
		bid.Amount,
		bid.Message,
		bid.EtaDays,
		attachments,
		now).Scan(append(bidDest(&saved), &inserted)...)
	if err != nil {
		if err = translate(err); errors.Is(err, ErrNotFound) {
			return nil, false, ErrRFQNotActive
		}
		return nil, false, xerrors.Errorf("upsert bid on rfq %s: %w", bid.RFQID, err)
	}
	return &saved, inserted, nil
}

// GetBid возвращает предложение по ID.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bid b WHERE b.id = $1`
	bid, err := scanBid(r.DB.QueryRow(ctx, query, bidId))
	if err != nil {
		return nil, xerrors.Errorf("get bid %s: %w", bidId, translate(err))
	}
	return bid, nil
}

// GetRFQBids возвращает все предложения по RFQ, самые дешевые первыми, со сведениями об исполнителях.
func (r *PostgresBidRepository) GetRFQBids(ctx context.Context, rfqId string) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + `, u.id, u.name, u.role
		FROM bid b
		JOIN users u ON u.id = b.provider_id
		WHERE b.rfq_id = $1
		ORDER BY b.amount ASC, b.created_at ASC`
	rows, err := r.DB.Query(ctx, query, rfqId)
	if err != nil {
		return nil, xerrors.Errorf("list bids of rfq %s: %w", rfqId, translate(err))
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var bid models.Bid
		var provider models.UserSummary
		if err := rows.Scan(append(bidDest(&bid), &provider.ID, &provider.Name, &provider.Role)...); err != nil {
			return nil, xerrors.Errorf("scan bid: %w", err)
		}
		bid.Provider = &provider
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// GetProviderBids возвращает предложения исполнителя вместе с RFQ, новые первыми.
func (r *PostgresBidRepository) GetProviderBids(ctx context.Context, providerId string) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + `, ` + rfqColumns + `
		FROM bid b
		JOIN rfq r ON r.id = b.rfq_id
		WHERE b.provider_id = $1
		ORDER BY b.created_at DESC`
	rows, err := r.DB.Query(ctx, query, providerId)
	if err != nil {
		return nil, xerrors.Errorf("list bids of provider %s: %w", providerId, translate(err))
	}
	defer rows.Close()

	bids := []models.Bid{}
	for rows.Next() {
		var bid models.Bid
		var rfq models.RFQ
		dest := append(bidDest(&bid),
			&rfq.ID, &rfq.BuyerID, &rfq.Title, &rfq.Description, &rfq.Category, &rfq.Quantity, &rfq.Specs,
			&rfq.Deadline, &rfq.Status, &rfq.AllowNegotiation, &rfq.LocationPreference, &rfq.Attachments,
			&rfq.CreatedAt, &rfq.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, xerrors.Errorf("scan bid: %w", err)
		}
		bid.RFQ = &rfq
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// bidStateError различает отсутствующее и уже рассмотренное предложение.
func bidStateError(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, bidId string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bid WHERE id = $1)`, bidId).Scan(&exists); err != nil {
		return xerrors.Errorf("check bid %s: %w", bidId, translate(err))
	}
	if exists {
		return ErrBidNotPending
	}
	return ErrNotFound
}

// EditBid сохраняет изменения исполнителя. Меняется только предложение в статусе pending.
func (r *PostgresBidRepository) EditBid(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	attachments := bid.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	updateQuery := `UPDATE bid b
		SET amount = $2, message = $3, eta_days = $4, attachments = $5, updated_at = $6
		WHERE b.id = $1 AND b.status = 'pending'
		RETURNING ` + bidColumns
	updated, err := scanBid(r.DB.QueryRow(ctx, updateQuery,
		bid.ID, bid.Amount, bid.Message, bid.EtaDays, attachments, time.Now().UTC()))
	if err == nil {
		return updated, nil
	}
	if err = translate(err); !errors.Is(err, ErrNotFound) {
		return nil, xerrors.Errorf("update bid %s: %w", bid.ID, err)
	}
	return nil, bidStateError(ctx, r.DB, bid.ID)
}

// AcceptBid принимает предложение и закрывает его RFQ в одной транзакции.
// Строки RFQ и предложения блокируются, поэтому принятия по одному RFQ выполняются по очереди.
// Повторное принятие уже принятого предложения ничего не меняет и возвращает false.
func (r *PostgresBidRepository) AcceptBid(ctx context.Context, bidId string) (*models.Bid, bool, error) {
	var accepted *models.Bid
	var changed bool

	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		var bidStatus models.BidStatus
		var rfqId string
		var rfqStatus models.RFQStatus
		lockQuery := `SELECT b.status, r.id, r.status
			FROM bid b
			JOIN rfq r ON r.id = b.rfq_id
			WHERE b.id = $1
			FOR UPDATE OF b, r`
		if err := tx.QueryRow(ctx, lockQuery, bidId).Scan(&bidStatus, &rfqId, &rfqStatus); err != nil {
			return xerrors.Errorf("lock bid %s: %w", bidId, translate(err))
		}

		switch {
		case bidStatus == models.AcceptedBid:
			// повтор: убеждаемся, что RFQ закрыт
			if _, err := tx.Exec(ctx, `UPDATE rfq SET status = 'closed', updated_at = $2 WHERE id = $1 AND status = 'active'`,
				rfqId, time.Now().UTC()); err != nil {
				return xerrors.Errorf("close rfq %s: %w", rfqId, err)
			}
		case bidStatus != models.PendingBid:
			return ErrBidNotPending
		case rfqStatus != models.ActiveRFQ:
			return ErrRFQNotActive
		default:
			now := time.Now().UTC()
			if _, err := tx.Exec(ctx, `UPDATE bid SET status = 'accepted', rejection_reason = '', updated_at = $2 WHERE id = $1`,
				bidId, now); err != nil {
				return xerrors.Errorf("accept bid %s: %w", bidId, err)
			}
			if _, err := tx.Exec(ctx, `UPDATE rfq SET status = 'closed', updated_at = $2 WHERE id = $1`,
				rfqId, now); err != nil {
				return xerrors.Errorf("close rfq %s: %w", rfqId, err)
			}
			changed = true
		}

		bid, err := scanBid(tx.QueryRow(ctx, `SELECT `+bidColumns+` FROM bid b WHERE b.id = $1`, bidId))
		if err != nil {
			return xerrors.Errorf("reload bid %s: %w", bidId, err)
		}
		accepted = bid
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return accepted, changed, nil
}

// RejectBid отклоняет предложение в статусе pending и сохраняет причину.
// Повторное отклонение ничего не меняет и возвращает false.
func (r *PostgresBidRepository) RejectBid(ctx context.Context, bidId, reason string) (*models.Bid, bool, error) {
	updateQuery := `UPDATE bid b
		SET status = 'rejected', rejection_reason = $2, updated_at = $3
		WHERE b.id = $1 AND b.status = 'pending'
		RETURNING ` + bidColumns
	rejected, err := scanBid(r.DB.QueryRow(ctx, updateQuery, bidId, reason, time.Now().UTC()))
	if err == nil {
		return rejected, true, nil
	}
	if err = translate(err); !errors.Is(err, ErrNotFound) {
		return nil, false, xerrors.Errorf("reject bid %s: %w", bidId, err)
	}

	current, err := r.GetBid(ctx, bidId)
	if err != nil {
		return nil, false, err
	}
	if current.Status == models.RejectedBid {
		return current, false, nil
	}
	return nil, false, ErrBidNotPending
}

// DeleteBid удаляет предложение.
func (r *PostgresBidRepository) DeleteBid(ctx context.Context, bidId string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM bid WHERE id = $1`, bidId)
	if err != nil {
		return xerrors.Errorf("delete bid %s: %w", bidId, translate(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
