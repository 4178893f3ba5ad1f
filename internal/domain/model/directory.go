package model

// DirectoryAccount — учётная запись в каталоге (Active Directory).
// Не хранится в БД — читается через клиент каталога.
type DirectoryAccount struct {
	// UserPrincipalName — UPN (user@domain)
	UserPrincipalName string
	// SAMAccountName — короткое имя входа
	SAMAccountName string
	// DisplayName — отображаемое имя
	DisplayName string
	// Email — атрибут mail (может быть пустым)
	Email string
	// DistinguishedName — DN объекта
	DistinguishedName string
	// Enabled — бит ACCOUNTDISABLE (0x2) в userAccountControl сброшен
	Enabled bool
	// MemberOf — DN групп из атрибута memberOf
	MemberOf []string
}

// DirectoryGroup — группа безопасности каталога.
type DirectoryGroup struct {
	// DistinguishedName — DN группы (уникальный)
	DistinguishedName string
	// Name — короткое имя (cn)
	Name string
	// Description — описание (может быть пустым)
	Description string
}

// RegistrationDetail — заявка вместе с актуальным состоянием в каталоге.
type RegistrationDetail struct {
	Registration *Registration
	// Account — учётная запись каталога (nil для pending или если не найдена)
	Account *DirectoryAccount
	// Groups — текущие группы учётной записи
	Groups []DirectoryGroup
	// DirectoryUnavailable — каталог не ответил, Groups не заполнены
	DirectoryUnavailable bool
}

// IsMemberOf проверяет членство по DN без учёта регистра.
func (d *RegistrationDetail) IsMemberOf(groupDN string) bool {
	for _, g := range d.Groups {
		if EqualDN(g.DistinguishedName, groupDN) {
			return true
		}
	}
	return false
}
