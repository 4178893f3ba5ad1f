// Пакет repository — хранилище заявок на регистрацию в PostgreSQL.
// Запросы пишутся SQL-ом через pgx.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound — заявки с таким идентификатором или email нет.
	ErrNotFound = errors.New("заявка не найдена")
	// ErrConflict — email уже занят или заявка уже не в ожидаемом статусе.
	ErrConflict = errors.New("конфликт состояния заявки")
)

// DBTX — *pgxpool.Pool или pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Коды SQLSTATE, которые различает репозиторий.
const (
	sqlStateUniqueViolation = "23505"
	sqlStateCheckViolation  = "23514"
)

// Имя уникального индекса по email (migrations/000001).
const emailUniqueIndex = "registrations_google_email_key"

// pgError возвращает ошибку PostgreSQL с указанным кодом или nil.
func pgError(err error, code string) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr
	}
	return nil
}

// isDuplicateEmail — нарушен уникальный индекс по google_email.
func isDuplicateEmail(err error) bool {
	pgErr := pgError(err, sqlStateUniqueViolation)
	return pgErr != nil && (pgErr.ConstraintName == "" || pgErr.ConstraintName == emailUniqueIndex)
}

// isStateViolation — строка не прошла CHECK по статусу или principal.
func isStateViolation(err error) bool {
	return pgError(err, sqlStateCheckViolation) != nil
}
