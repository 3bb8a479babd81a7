package repository

import (
	"context"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/xerrors"
)

// UserRepository - чтение пользователей, которыми владеет сервис идентификации.
type UserRepository interface {
	GetUserSummary(ctx context.Context, userId string) (*models.UserSummary, error)
}

// PostgresUserRepository - реализация UserRepository для базы данных.
type PostgresUserRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresUserRepository создает новый экземпляр PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// GetUserSummary возвращает краткие сведения о пользователе.
func (r *PostgresUserRepository) GetUserSummary(ctx context.Context, userId string) (*models.UserSummary, error) {
	var u models.UserSummary
	query := `SELECT id, name, role FROM users WHERE id = $1`
	if err := r.DB.QueryRow(ctx, query, userId).Scan(&u.ID, &u.Name, &u.Role); err != nil {
		return nil, xerrors.Errorf("get user %s: %w", userId, translate(err))
	}
	return &u, nil
}
