// registrations.go — сервис заявок на регистрацию: приём от расширения,
// привязка к учётной записи каталога, управление группами и паролем.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/repository"
)

// Максимальная длина email и UPN (размер столбцов registrations).
const maxFieldLength = 256

// RegistrationService — операции над заявками.
// Изменения в каталоге выполняются синхронно в рамках запроса.
type RegistrationService struct {
	repo   repository.RegistrationRepository
	dir    Directory
	logger *slog.Logger
}

// NewRegistrationService создаёт сервис заявок.
func NewRegistrationService(repo repository.RegistrationRepository, dir Directory, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{
		repo:   repo,
		dir:    dir,
		logger: logger.With(slog.String("component", "registration_service")),
	}
}

// NormalizeEmail приводит адрес к нижнему регистру и проверяет формат.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email обязателен", ErrValidation)
	}
	if len(email) > maxFieldLength {
		return "", fmt.Errorf("%w: email длиннее %d символов", ErrValidation, maxFieldLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: некорректный email %q", ErrValidation, email)
	}
	return email, nil
}

// Create принимает заявку от расширения. ErrConflict, если email уже есть.
func (s *RegistrationService) Create(ctx context.Context, email string) (*model.Registration, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	reg := &model.Registration{GoogleEmail: email}
	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: заявка для %s уже существует", ErrConflict, email)
		}
		return nil, fmt.Errorf("создание заявки: %w", err)
	}

	s.logger.Info("Заявка на регистрацию принята",
		slog.Int64("registration_id", reg.ID),
		slog.String("email", email),
	)
	return reg, nil
}

// get читает заявку, переводя repository.ErrNotFound в ErrNotFound.
func (s *RegistrationService) get(ctx context.Context, id int64) (*model.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: заявка %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение заявки %d: %w", id, err)
	}
	return reg, nil
}

// Register привязывает pending-заявку к учётной записи каталога
// и добавляет её в группы в указанном порядке.
// При сбое на группе обработка прекращается: уже добавленные группы
// остаются, заявка остаётся pending, возвращается *GroupOperationError.
func (s *RegistrationService) Register(ctx context.Context, id int64, principalName string, groupDNs []string) (*model.Registration, error) {
	principalName = strings.TrimSpace(principalName)
	if principalName == "" {
		return nil, fmt.Errorf("%w: UPN обязателен", ErrValidation)
	}
	if len(principalName) > maxFieldLength {
		return nil, fmt.Errorf("%w: UPN длиннее %d символов", ErrValidation, maxFieldLength)
	}

	reg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status == model.StatusRegistered {
		return nil, fmt.Errorf("%w: заявка %d уже зарегистрирована", ErrConflict, id)
	}

	acc, err := s.dir.GetUser(ctx, principalName)
	if err != nil {
		return nil, fmt.Errorf("поиск учётной записи %s: %w", principalName, directoryError(err))
	}
	if acc.UserPrincipalName != "" {
		principalName = acc.UserPrincipalName
	}

	groupDNs = dedupeDNs(groupDNs)
	if err := s.applyGroups(ctx, principalName, groupDNs, nil); err != nil {
		s.logger.Warn("Регистрация прервана на добавлении в группу",
			slog.Int64("registration_id", id),
			slog.String("upn", principalName),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	updated, err := s.repo.MarkRegistered(ctx, id, principalName)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: заявка %d", ErrNotFound, id)
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: заявка %d уже зарегистрирована", ErrConflict, id)
		}
		return nil, fmt.Errorf("сохранение регистрации %d: %w", id, err)
	}

	s.logger.Info("Заявка зарегистрирована",
		slog.Int64("registration_id", id),
		slog.String("upn", principalName),
		slog.Int("groups", len(groupDNs)),
	)
	return updated, nil
}

// RegisterSelected — Register с группами, выбранными в форме.
// Группы вне контейнера групп отбрасываются.
func (s *RegistrationService) RegisterSelected(ctx context.Context, id int64, principalName string, selected []string) (*model.Registration, error) {
	available, err := s.ListAvailableGroups(ctx)
	if err != nil {
		return nil, err
	}
	return s.Register(ctx, id, principalName, restrictToGroups(selected, available))
}

// UpdateGroups изменяет членство зарегистрированной учётной записи:
// сначала все добавления, затем все удаления, до первого сбоя.
// ErrPrecondition, если заявка не зарегистрирована.
func (s *RegistrationService) UpdateGroups(ctx context.Context, id int64, add, remove []string) error {
	reg, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !reg.IsRegistered() {
		return fmt.Errorf("%w: заявка %d не зарегистрирована", ErrPrecondition, id)
	}
	principalName := reg.PrincipalName()

	add, remove = dedupeDNs(add), dedupeDNs(remove)
	if err := s.applyGroups(ctx, principalName, add, remove); err != nil {
		return err
	}

	if err := s.repo.Touch(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: заявка %d", ErrNotFound, id)
		}
		return fmt.Errorf("обновление заявки %d: %w", id, err)
	}

	s.logger.Info("Группы учётной записи обновлены",
		slog.Int64("registration_id", id),
		slog.String("upn", principalName),
		slog.Int("added", len(add)),
		slog.Int("removed", len(remove)),
	)
	return nil
}

// SaveGroupSelection приводит членство к набору, отмеченному в форме.
// Сравнение ведётся только по группам из контейнера групп.
func (s *RegistrationService) SaveGroupSelection(ctx context.Context, id int64, selected []string) error {
	reg, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !reg.IsRegistered() {
		return fmt.Errorf("%w: заявка %d не зарегистрирована", ErrPrecondition, id)
	}

	available, err := s.ListAvailableGroups(ctx)
	if err != nil {
		return err
	}
	current, err := s.dir.GetUserGroups(ctx, reg.PrincipalName())
	if err != nil {
		return fmt.Errorf("чтение групп %s: %w", reg.PrincipalName(), directoryError(err))
	}

	add, remove := DiffGroups(available, current, selected)
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	return s.UpdateGroups(ctx, id, add, remove)
}

// applyGroups выполняет добавления и удаления по порядку, останавливаясь на первом сбое.
func (s *RegistrationService) applyGroups(ctx context.Context, principalName string, add, remove []string) error {
	applied := make([]string, 0, len(add)+len(remove))
	for _, dn := range add {
		if err := s.dir.AddUserToGroup(ctx, principalName, dn); err != nil {
			return &GroupOperationError{Op: "add", GroupDN: dn, Applied: applied, Err: directoryError(err)}
		}
		applied = append(applied, dn)
	}
	for _, dn := range remove {
		if err := s.dir.RemoveUserFromGroup(ctx, principalName, dn); err != nil {
			return &GroupOperationError{Op: "remove", GroupDN: dn, Applied: applied, Err: directoryError(err)}
		}
		applied = append(applied, dn)
	}
	return nil
}

// ResetPassword устанавливает новый пароль зарегистрированной учётной записи
// и возвращает его. Для незарегистрированной заявки каталог не вызывается.
func (s *RegistrationService) ResetPassword(ctx context.Context, id int64) (string, error) {
	reg, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	if !reg.IsRegistered() {
		return "", fmt.Errorf("%w: заявка %d не зарегистрирована", ErrPrecondition, id)
	}

	password, err := s.dir.ResetPassword(ctx, reg.PrincipalName())
	if err != nil {
		return "", fmt.Errorf("сброс пароля %s: %w", reg.PrincipalName(), directoryError(err))
	}

	s.logger.Info("Пароль сброшен администратором",
		slog.Int64("registration_id", id),
		slog.String("upn", reg.PrincipalName()),
	)
	return password, nil
}

// Delete удаляет заявку. Учётная запись в каталоге не затрагивается.
func (s *RegistrationService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: заявка %d", ErrNotFound, id)
		}
		return fmt.Errorf("удаление заявки %d: %w", id, err)
	}
	s.logger.Info("Заявка удалена", slog.Int64("registration_id", id))
	return nil
}

// List возвращает все заявки, новые первыми.
func (s *RegistrationService) List(ctx context.Context) ([]*model.Registration, error) {
	regs, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("получение списка заявок: %w", err)
	}
	return regs, nil
}

// ListByStatus возвращает заявки с указанным статусом.
func (s *RegistrationService) ListByStatus(ctx context.Context, status model.RegistrationStatus) ([]*model.Registration, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, status)
	}
	regs, err := s.repo.List(ctx, &status)
	if err != nil {
		return nil, fmt.Errorf("получение списка заявок (%s): %w", status, err)
	}
	return regs, nil
}

// Counts возвращает количество заявок по статусам.
func (s *RegistrationService) Counts(ctx context.Context) (map[model.RegistrationStatus]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт заявок: %w", err)
	}
	return counts, nil
}

// GetDetail возвращает заявку с учётной записью и группами из каталога.
// Недоступность каталога не считается ошибкой: выставляется DirectoryUnavailable.
func (s *RegistrationService) GetDetail(ctx context.Context, id int64) (*model.RegistrationDetail, error) {
	reg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &model.RegistrationDetail{Registration: reg}
	if !reg.IsRegistered() {
		return detail, nil
	}

	acc, err := s.dir.GetUser(ctx, reg.PrincipalName())
	if err != nil {
		return s.degradeDetail(ctx, detail, err)
	}
	detail.Account = acc

	groups, err := s.dir.GetUserGroups(ctx, reg.PrincipalName())
	if err != nil {
		return s.degradeDetail(ctx, detail, err)
	}
	detail.Groups = groups
	return detail, nil
}

func (s *RegistrationService) degradeDetail(ctx context.Context, detail *model.RegistrationDetail, err error) (*model.RegistrationDetail, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	mapped := directoryError(err)
	switch {
	case errors.Is(mapped, ErrDirectoryUnavailable):
		detail.DirectoryUnavailable = true
	case errors.Is(mapped, ErrNotFound):
		s.logger.Warn("Учётная запись зарегистрированной заявки не найдена в каталоге",
			slog.Int64("registration_id", detail.Registration.ID),
			slog.String("upn", detail.Registration.PrincipalName()),
		)
		detail.Account = nil
	default:
		return nil, fmt.Errorf("чтение учётной записи %s: %w", detail.Registration.PrincipalName(), mapped)
	}
	return detail, nil
}

// ListAvailableGroups возвращает группы, доступные для назначения.
func (s *RegistrationService) ListAvailableGroups(ctx context.Context) ([]model.DirectoryGroup, error) {
	groups, err := s.dir.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка групп: %w", directoryError(err))
	}
	return groups, nil
}

// DiffGroups вычисляет изменения членства: add — отмеченные, но отсутствующие,
// remove — текущие, но не отмеченные. Учитываются только группы из available.
func DiffGroups(available, current []model.DirectoryGroup, selected []string) (add, remove []string) {
	isSelected := func(dn string) bool {
		for _, s := range selected {
			if model.EqualDN(s, dn) {
				return true
			}
		}
		return false
	}
	isCurrent := func(dn string) bool {
		for _, g := range current {
			if model.EqualDN(g.DistinguishedName, dn) {
				return true
			}
		}
		return false
	}

	for _, g := range available {
		dn := g.DistinguishedName
		switch sel, cur := isSelected(dn), isCurrent(dn); {
		case sel && !cur:
			add = append(add, dn)
		case !sel && cur:
			remove = append(remove, dn)
		}
	}
	return add, remove
}

// restrictToGroups оставляет из selected только DN из available, в порядке selected.
func restrictToGroups(selected []string, available []model.DirectoryGroup) []string {
	out := make([]string, 0, len(selected))
	for _, dn := range selected {
		for _, g := range available {
			if model.EqualDN(dn, g.DistinguishedName) {
				out = append(out, g.DistinguishedName)
				break
			}
		}
	}
	return dedupeDNs(out)
}

// dedupeDNs убирает пустые и повторяющиеся DN, сохраняя порядок.
func dedupeDNs(dns []string) []string {
	out := make([]string, 0, len(dns))
	for _, dn := range dns {
		dn = strings.TrimSpace(dn)
		if dn == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if model.EqualDN(seen, dn) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, dn)
		}
	}
	return out
}
