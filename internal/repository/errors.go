package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrUnknownReference = errors.New("referenced record does not exist")
	ErrRFQNotActive     = errors.New("rfq is not active")
	ErrBidNotPending    = errors.New("bid is not pending")
	ErrValueOutOfRange  = errors.New("value violates column constraints")
)

// translate приводит ошибки драйвера к ошибкам репозитория.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ForeignKeyViolation:
			return ErrUnknownReference
		case pgerrcode.CheckViolation, pgerrcode.NumericValueOutOfRange:
			return ErrValueOutOfRange
		case pgerrcode.InvalidTextRepresentation:
			// некорректный uuid в запросе
			return ErrNotFound
		}
	}
	return err
}
