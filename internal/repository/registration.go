package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/regportal/internal/domain/model"
)

// RegistrationRepository — интерфейс доступа к таблице registrations.
type RegistrationRepository interface {
	// Create добавляет заявку со статусом pending.
	// Возвращает ErrConflict, если email уже зарегистрирован.
	Create(ctx context.Context, reg *model.Registration) error
	// GetByID возвращает заявку по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.Registration, error)
	// GetByEmail возвращает заявку по email.
	GetByEmail(ctx context.Context, email string) (*model.Registration, error)
	// List возвращает заявки, новые первыми. status == nil — все статусы.
	List(ctx context.Context, status *model.RegistrationStatus) ([]*model.Registration, error)
	// CountByStatus возвращает количество заявок по каждому статусу.
	CountByStatus(ctx context.Context) (map[model.RegistrationStatus]int, error)
	// MarkRegistered переводит заявку pending → registered и сохраняет UPN.
	// ErrNotFound — заявки нет, ErrConflict — заявка уже не pending.
	MarkRegistered(ctx context.Context, id int64, principalName string) (*model.Registration, error)
	// Touch обновляет updated_at.
	Touch(ctx context.Context, id int64) error
	// Delete удаляет заявку.
	Delete(ctx context.Context, id int64) error
}

type registrationRepo struct {
	db DBTX
}

// NewRegistrationRepository создаёт репозиторий заявок.
func NewRegistrationRepository(db DBTX) RegistrationRepository {
	return &registrationRepo{db: db}
}

const regColumns = `id, google_email, ad_user_principal_name, status, created_at, updated_at`

// scanRegistration читает строку в порядке regColumns.
func scanRegistration(row pgx.Row) (*model.Registration, error) {
	reg := &model.Registration{}
	var status string
	if err := row.Scan(
		&reg.ID, &reg.GoogleEmail, &reg.UserPrincipalName,
		&status, &reg.CreatedAt, &reg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatus(status)
	return reg, nil
}

func (r *registrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	query := `
		INSERT INTO registrations (google_email, status)
		VALUES ($1, $2)
		RETURNING id, created_at`

	reg.Status = model.StatusPending
	reg.UserPrincipalName = nil
	reg.UpdatedAt = nil

	err := r.db.QueryRow(ctx, query, reg.GoogleEmail, string(reg.Status)).
		Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		if isDuplicateEmail(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return nil
}

func (r *registrationRepo) GetByID(ctx context.Context, id int64) (*model.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1`, regColumns)

	reg, err := scanRegistration(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}
	return reg, nil
}

func (r *registrationRepo) GetByEmail(ctx context.Context, email string) (*model.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE google_email = $1`, regColumns)

	reg, err := scanRegistration(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки по email: %w", err)
	}
	return reg, nil
}

func (r *registrationRepo) List(ctx context.Context, status *model.RegistrationStatus) ([]*model.Registration, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM registrations
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id DESC`, regColumns)

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.db.Query(ctx, query, statusArg)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	var result []*model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, reg)
	}
	return result, rows.Err()
}

func (r *registrationRepo) CountByStatus(ctx context.Context) (map[model.RegistrationStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM registrations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта заявок: %w", err)
	}
	defer rows.Close()

	counts := map[model.RegistrationStatus]int{
		model.StatusPending:    0,
		model.StatusRegistered: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования счётчика: %w", err)
		}
		counts[model.RegistrationStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *registrationRepo) MarkRegistered(ctx context.Context, id int64, principalName string) (*model.Registration, error) {
	// Условие по статусу защищает от параллельной регистрации одной заявки
	query := fmt.Sprintf(`
		UPDATE registrations
		SET ad_user_principal_name = $2, status = 'registered', updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING %s`, regColumns)

	reg, err := scanRegistration(r.db.QueryRow(ctx, query, id, principalName))
	if err == nil {
		return reg, nil
	}
	if isStateViolation(err) {
		return nil, ErrConflict
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка регистрации заявки: %w", err)
	}

	// Строка не обновлена: либо заявки нет, либо она уже registered
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrConflict
}

func (r *registrationRepo) Touch(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE registrations SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registrationRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
