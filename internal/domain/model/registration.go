// Пакет model — доменные модели портала регистрации.
package model

import "time"

// RegistrationStatus — статус заявки на регистрацию.
type RegistrationStatus string

const (
	// StatusPending — заявка ожидает привязки к учётной записи каталога.
	StatusPending RegistrationStatus = "pending"
	// StatusRegistered — заявка привязана к учётной записи каталога.
	StatusRegistered RegistrationStatus = "registered"
)

// Valid проверяет, что статус входит в допустимый набор.
func (s RegistrationStatus) Valid() bool {
	return s == StatusPending || s == StatusRegistered
}

// ParseRegistrationStatus разбирает статус из строки (query, форма).
// Пустая строка и неизвестные значения возвращают false.
func ParseRegistrationStatus(s string) (RegistrationStatus, bool) {
	st := RegistrationStatus(s)
	return st, st.Valid()
}

// Registration — заявка на регистрацию, поступившая от браузерного расширения.
// Хранится в таблице registrations.
type Registration struct {
	// ID — идентификатор, назначается хранилищем
	ID int64
	// GoogleEmail — адрес Google-аккаунта (уникальный, в нижнем регистре)
	GoogleEmail string
	// UserPrincipalName — UPN привязанной учётной записи (nil пока pending)
	UserPrincipalName *string
	// Status — pending или registered
	Status RegistrationStatus
	// CreatedAt — дата поступления заявки
	CreatedAt time.Time
	// UpdatedAt — дата последнего изменения (nil если не менялась)
	UpdatedAt *time.Time
}

// IsRegistered возвращает true, если заявка привязана к учётной записи каталога.
func (r *Registration) IsRegistered() bool {
	return r.Status == StatusRegistered && r.UserPrincipalName != nil && *r.UserPrincipalName != ""
}

// PrincipalName возвращает UPN или пустую строку.
func (r *Registration) PrincipalName() string {
	if r.UserPrincipalName == nil {
		return ""
	}
	return *r.UserPrincipalName
}
