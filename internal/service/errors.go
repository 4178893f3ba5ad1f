// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bigkaa/regportal/internal/directory"
)

var (
	// ErrNotFound — заявка или объект каталога не найдены.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — заявка уже существует или уже зарегистрирована.
	ErrConflict = errors.New("конфликт: ресурс уже существует")
	// ErrUnauthorized — неверное имя пользователя или пароль.
	ErrUnauthorized = errors.New("неверное имя пользователя или пароль")
	// ErrForbidden — пользователь не входит в группу администраторов.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrPrecondition — операция недоступна в текущем статусе заявки.
	ErrPrecondition = errors.New("операция недоступна в текущем статусе заявки")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrDirectoryOperation — каталог отклонил операцию.
	ErrDirectoryOperation = errors.New("ошибка операции в каталоге")
	// ErrDirectoryUnavailable — каталог недоступен.
	ErrDirectoryUnavailable = errors.New("каталог недоступен")
)

// GroupOperationError — сбой изменения членства в группе внутри пакета операций.
// Пакет не транзакционный: изменения из Applied остаются в каталоге.
type GroupOperationError struct {
	// Op — "add" или "remove"
	Op string
	// GroupDN — группа, на которой произошёл сбой
	GroupDN string
	// Applied — группы, изменения по которым уже применены
	Applied []string
	// Err — причина (ошибка сервисного слоя)
	Err error
}

func (e *GroupOperationError) Error() string {
	msg := fmt.Sprintf("ошибка изменения группы %s (%s): %v", e.GroupDN, e.Op, e.Err)
	if len(e.Applied) > 0 {
		msg += "; уже применено: " + strings.Join(e.Applied, "; ")
	}
	return msg
}

// Unwrap позволяет errors.Is находить и ErrDirectoryOperation, и исходную причину.
func (e *GroupOperationError) Unwrap() []error {
	return []error{ErrDirectoryOperation, e.Err}
}

// directoryError переводит ошибки клиента каталога в ошибки сервисного слоя.
func directoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, directory.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	case errors.Is(err, directory.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, directory.ErrAlreadyExists):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrDirectoryOperation, err)
	}
}
