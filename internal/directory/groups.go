package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/bigkaa/regportal/internal/domain/model"
)

var groupAttributes = []string{"cn", "distinguishedName", "description"}

// Размер страницы при перечислении групп (лимит AD — 1000 записей на ответ).
const groupsPageSize = 500

func entryToGroup(e *ldap.Entry) model.DirectoryGroup {
	g := model.DirectoryGroup{
		DistinguishedName: e.DN,
		Name:              e.GetAttributeValue("cn"),
		Description:       e.GetAttributeValue("description"),
	}
	if dn := e.GetAttributeValue("distinguishedName"); dn != "" {
		g.DistinguishedName = dn
	}
	if g.Name == "" {
		g.Name = groupNameFromDN(g.DistinguishedName)
	}
	return g
}

func sortGroups(groups []model.DirectoryGroup) {
	sort.Slice(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})
}

// ListGroups возвращает группы из контейнера GroupsOU, отсортированные по имени.
func (c *Client) ListGroups(ctx context.Context) ([]model.DirectoryGroup, error) {
	var groups []model.DirectoryGroup
	err := c.serviceSession(ctx, "list_groups", func(cn conn) error {
		req := ldap.NewSearchRequest(
			c.cfg.GroupsOU,
			ldap.ScopeWholeSubtree,
			ldap.NeverDerefAliases,
			0, 0, false,
			"(objectClass=group)",
			groupAttributes,
			nil,
		)
		res, err := cn.SearchWithPaging(req, groupsPageSize)
		if err != nil {
			return classify(err)
		}
		groups = make([]model.DirectoryGroup, 0, len(res.Entries))
		for _, e := range res.Entries {
			groups = append(groups, entryToGroup(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortGroups(groups)
	return groups, nil
}

// findGroup читает группу по DN (поиск с областью base).
func (c *Client) findGroup(cn conn, groupDN string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		groupDN,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 0, false,
		"(objectClass=group)",
		groupAttributes,
		nil,
	)
	res, err := cn.Search(req)
	if err != nil {
		return nil, classify(err)
	}
	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("%w: группа %s", ErrNotFound, groupDN)
	}
	return res.Entries[0], nil
}

// isDirectMember проверяет прямое членство по memberOf учётной записи.
func isDirectMember(user *ldap.Entry, groupDN string) bool {
	for _, dn := range user.GetAttributeValues("memberOf") {
		if model.EqualDN(dn, groupDN) {
			return true
		}
	}
	return false
}

// AddUserToGroup добавляет учётную запись в группу.
// Если пользователь уже состоит в группе — ничего не делает.
func (c *Client) AddUserToGroup(ctx context.Context, principalName, groupDN string) error {
	return c.changeMembership(ctx, "add_to_group", principalName, groupDN, true)
}

// RemoveUserFromGroup удаляет учётную запись из группы.
// Если пользователь не состоит в группе — ничего не делает.
func (c *Client) RemoveUserFromGroup(ctx context.Context, principalName, groupDN string) error {
	return c.changeMembership(ctx, "remove_from_group", principalName, groupDN, false)
}

func (c *Client) changeMembership(ctx context.Context, op, principalName, groupDN string, add bool) error {
	changed := false
	err := c.serviceSession(ctx, op, func(cn conn) error {
		user, err := c.findUser(cn, principalName)
		if err != nil {
			return err
		}
		group, err := c.findGroup(cn, groupDN)
		if err != nil {
			return err
		}

		if isDirectMember(user, group.DN) == add {
			return nil
		}

		req := ldap.NewModifyRequest(group.DN, nil)
		if add {
			req.Add("member", []string{user.DN})
		} else {
			req.Delete("member", []string{user.DN})
		}

		if err := cn.Modify(req); err != nil {
			if membershipAlreadyApplied(err, add) {
				return nil
			}
			return classify(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		c.logger.Info("Членство в группе изменено",
			slog.String("upn", principalName),
			slog.String("group_dn", groupDN),
			slog.Bool("added", add),
		)
	}
	return nil
}

// membershipAlreadyApplied распознаёт ответы AD при гонке с другим изменением:
// повторное добавление (68, 20) и удаление отсутствующего участника (53, 16).
func membershipAlreadyApplied(err error, add bool) bool {
	code, ok := resultCode(err)
	if !ok {
		return false
	}
	if add {
		return code == ldap.LDAPResultEntryAlreadyExists || code == ldap.LDAPResultAttributeOrValueExists
	}
	return code == ldap.LDAPResultUnwillingToPerform || code == ldap.LDAPResultNoSuchAttribute
}
