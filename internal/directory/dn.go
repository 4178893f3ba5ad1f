package directory

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// groupNameFromDN возвращает значение первого RDN вида CN=...,
// или исходную строку, если DN не разбирается или начинается не с CN.
func groupNameFromDN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 {
		return dn
	}
	for _, attr := range parsed.RDNs[0].Attributes {
		if strings.EqualFold(attr.Type, "CN") && attr.Value != "" {
			return attr.Value
		}
	}
	return dn
}
