package model

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EqualDN сравнивает DN по RFC 4514: значения атрибутов после снятия
// экранирования (\, и \2C равны), без учёта регистра.
// Если хотя бы один DN не разбирается, строки сравниваются без учёта регистра.
func EqualDN(a, b string) bool {
	da, errA := ldap.ParseDN(a)
	db, errB := ldap.ParseDN(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return da.EqualFold(db)
}
