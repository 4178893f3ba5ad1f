// Пакет service — бизнес-логика портала регистрации.
// auth.go — вход администратора через bind к каталогу.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/regportal/internal/domain/model"
)

// AuthService — аутентификация администраторов портала.
type AuthService struct {
	dir           Directory
	defaultDomain string
	adminGroup    string
	logger        *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
// defaultDomain дописывается к имени без "@", adminGroup — cn группы администраторов.
func NewAuthService(dir Directory, defaultDomain, adminGroup string, logger *slog.Logger) *AuthService {
	return &AuthService{
		dir:           dir,
		defaultDomain: defaultDomain,
		adminGroup:    adminGroup,
		logger:        logger.With(slog.String("component", "auth_service")),
	}
}

// QualifyUsername приводит имя входа к виду user@domain.
func (s *AuthService) QualifyUsername(username string) string {
	username = strings.TrimSpace(username)
	if strings.Contains(username, "@") {
		return username
	}
	return username + "@" + s.defaultDomain
}

// Login проверяет учётные данные и членство в группе администраторов.
// ErrUnauthorized — неверные учётные данные, ErrForbidden — не администратор,
// ErrDirectoryUnavailable — каталог не ответил.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrUnauthorized
	}
	principalName := s.QualifyUsername(username)

	ok, err := s.dir.ValidateCredentials(ctx, principalName, password)
	if err != nil {
		return nil, fmt.Errorf("проверка учётных данных: %w", directoryError(err))
	}
	if !ok {
		s.logger.Info("Неудачная попытка входа", slog.String("username", principalName))
		return nil, ErrUnauthorized
	}

	isAdmin, err := s.dir.IsMember(ctx, principalName, s.adminGroup)
	if err != nil {
		return nil, fmt.Errorf("проверка членства в %s: %w", s.adminGroup, directoryError(err))
	}
	if !isAdmin {
		s.logger.Warn("Вход без членства в группе администраторов",
			slog.String("username", principalName),
			slog.String("admin_group", s.adminGroup),
		)
		return nil, ErrForbidden
	}

	displayName := username
	acc, err := s.dir.GetUser(ctx, principalName)
	switch {
	case err == nil && acc.DisplayName != "":
		displayName = acc.DisplayName
	case err != nil && !errors.Is(directoryError(err), ErrNotFound):
		s.logger.Warn("Не удалось получить отображаемое имя",
			slog.String("username", principalName),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Администратор вошёл в портал", slog.String("username", principalName))
	return &model.Principal{
		Username:    principalName,
		DisplayName: displayName,
		IsAdmin:     true,
	}, nil
}
