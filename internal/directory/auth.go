package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// OID правила LDAP_MATCHING_RULE_IN_CHAIN — членство с учётом вложенных групп.
const matchingRuleInChain = "1.2.840.113556.1.4.1941"

// ValidateCredentials проверяет логин и пароль bind-ом от имени пользователя.
// Неверные учётные данные — (false, nil); недоступность каталога — ErrUnavailable.
func (c *Client) ValidateCredentials(ctx context.Context, username, password string) (bool, error) {
	// Пустой пароль дал бы unauthenticated bind, который сервер принимает
	if username == "" || password == "" {
		return false, nil
	}

	start := time.Now()
	err := c.session(ctx, username, password, func(conn) error { return nil })
	observe("validate_credentials", err, start)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, err
	}

	if code, ok := resultCode(err); !ok || code != ldap.LDAPResultInvalidCredentials {
		c.logger.Debug("Bind пользователя отклонён",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}
	return false, nil
}

// IsMember проверяет, состоит ли пользователь (включая вложенные группы)
// в группе с указанным cn. Отсутствие пользователя или группы — false.
func (c *Client) IsMember(ctx context.Context, principalName, groupName string) (bool, error) {
	member := false
	err := c.serviceSession(ctx, "is_member", func(cn conn) error {
		groupReq := ldap.NewSearchRequest(
			c.cfg.BaseDN,
			ldap.ScopeWholeSubtree,
			ldap.NeverDerefAliases,
			1, 0, false,
			fmt.Sprintf("(&(objectClass=group)(cn=%s))", ldap.EscapeFilter(groupName)),
			[]string{"distinguishedName"},
			nil,
		)
		groups, err := cn.Search(groupReq)
		if err != nil {
			return classify(err)
		}
		if len(groups.Entries) == 0 {
			return nil
		}

		userReq := ldap.NewSearchRequest(
			c.cfg.BaseDN,
			ldap.ScopeWholeSubtree,
			ldap.NeverDerefAliases,
			1, 0, false,
			fmt.Sprintf("(&(objectClass=user)(userPrincipalName=%s)(memberOf:%s:=%s))",
				ldap.EscapeFilter(principalName), matchingRuleInChain, ldap.EscapeFilter(groups.Entries[0].DN)),
			[]string{"distinguishedName"},
			nil,
		)
		users, err := cn.Search(userReq)
		if err != nil {
			return classify(err)
		}
		member = len(users.Entries) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return member, nil
}

// CheckReady проверяет доступность каталога bind-ом сервисной учётной записи.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *Client) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.serviceSession(ctx, "ping", func(conn) error { return nil }); err != nil {
		return "fail", fmt.Sprintf("каталог недоступен: %v", err)
	}
	return "ok", "bind выполнен"
}
