package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-ldap/ldap/v3"
)

const (
	testBaseDN   = "DC=kaushalya,DC=local"
	testUsersOU  = "OU=Users,DC=kaushalya,DC=local"
	testGroupsOU = "OU=SecurityGroups,DC=kaushalya,DC=local"
	testBindUser = "svc-portal@kaushalya.local"
	testBindPass = "svc-secret"
)

// fakeDirectory — in-memory каталог, понимающий фильтры, которые строит Client.
type fakeDirectory struct {
	mu        sync.Mutex
	entries   map[string]map[string][]string // lower(DN) → атрибуты
	dns       map[string]string              // lower(DN) → DN
	passwords map[string]string              // bind name → пароль

	dialErr   error
	modifyErr map[string]error // lower(DN) → ошибка Modify

	dials    int
	closes   int
	modifies []*ldap.ModifyRequest
	adds     []*ldap.AddRequest
}

func newFakeDirectory() *fakeDirectory {
	d := &fakeDirectory{
		entries:   make(map[string]map[string][]string),
		dns:       make(map[string]string),
		passwords: map[string]string{testBindUser: testBindPass},
		modifyErr: make(map[string]error),
	}
	return d
}

func (d *fakeDirectory) addUser(upn, displayName string, uac string, memberOf ...string) string {
	dn := "CN=" + displayName + "," + testUsersOU
	d.put(dn, map[string][]string{
		"objectClass":        {"top", "person", "organizationalPerson", "user"},
		"userPrincipalName":  {upn},
		"sAMAccountName":     {strings.SplitN(upn, "@", 2)[0]},
		"displayName":        {displayName},
		"mail":               {upn},
		"distinguishedName":  {dn},
		"userAccountControl": {uac},
		"memberOf":           memberOf,
	})
	for _, g := range memberOf {
		if attrs, ok := d.entries[strings.ToLower(g)]; ok {
			attrs["member"] = append(attrs["member"], dn)
		}
	}
	return dn
}

func (d *fakeDirectory) addGroup(dn, description string) {
	d.put(dn, map[string][]string{
		"objectClass":       {"top", "group"},
		"cn":                {groupNameFromDN(dn)},
		"distinguishedName": {dn},
		"description":       {description},
	})
}

func (d *fakeDirectory) put(dn string, attrs map[string][]string) {
	d.entries[strings.ToLower(dn)] = attrs
	d.dns[strings.ToLower(dn)] = dn
}

func (d *fakeDirectory) isClass(attrs map[string][]string, class string) bool {
	for _, v := range attrs["objectClass"] {
		if strings.EqualFold(v, class) {
			return true
		}
	}
	return false
}

func (d *fakeDirectory) entry(key string) *ldap.Entry {
	attrs := make(map[string][]string, len(d.entries[key]))
	for k, v := range d.entries[key] {
		attrs[k] = append([]string(nil), v...)
	}
	return ldap.NewEntry(d.dns[key], attrs)
}

func (d *fakeDirectory) modifyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.modifies)
}

// fakeConn — соединение с fakeDirectory.
type fakeConn struct {
	dir *fakeDirectory
}

var (
	reUserByUPN   = regexp.MustCompile(`^\(&\(objectClass=user\)\(userPrincipalName=([^)]*)\)\)$`)
	reUserInGroup = regexp.MustCompile(`^\(&\(objectClass=user\)\(userPrincipalName=([^)]*)\)\(memberOf:1\.2\.840\.113556\.1\.4\.1941:=([^)]*)\)\)$`)
	reGroupByCN   = regexp.MustCompile(`^\(&\(objectClass=group\)\(cn=([^)]*)\)\)$`)
)

func (c *fakeConn) Bind(username, password string) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	if want, ok := c.dir.passwords[username]; ok && want == password {
		return nil
	}
	return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	res := &ldap.SearchResult{}
	base := strings.ToLower(req.BaseDN)

	if req.Scope == ldap.ScopeBaseObject {
		attrs, ok := c.dir.entries[base]
		if !ok {
			return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
		}
		if req.Filter == "(objectClass=group)" && !c.dir.isClass(attrs, "group") {
			return res, nil
		}
		res.Entries = append(res.Entries, c.dir.entry(base))
		return res, nil
	}

	for key, attrs := range c.dir.entries {
		if !strings.HasSuffix(key, base) {
			continue
		}
		if c.matches(req.Filter, attrs) {
			res.Entries = append(res.Entries, c.dir.entry(key))
		}
	}
	return res, nil
}

func (c *fakeConn) matches(filter string, attrs map[string][]string) bool {
	hasValue := func(attr, want string) bool {
		for _, v := range attrs[attr] {
			if strings.EqualFold(v, want) {
				return true
			}
		}
		return false
	}

	switch {
	case filter == "(objectClass=group)":
		return c.dir.isClass(attrs, "group")
	case reUserInGroup.MatchString(filter):
		m := reUserInGroup.FindStringSubmatch(filter)
		return c.dir.isClass(attrs, "user") && hasValue("userPrincipalName", m[1]) && hasValue("memberOf", m[2])
	case reUserByUPN.MatchString(filter):
		m := reUserByUPN.FindStringSubmatch(filter)
		return c.dir.isClass(attrs, "user") && hasValue("userPrincipalName", m[1])
	case reGroupByCN.MatchString(filter):
		m := reGroupByCN.FindStringSubmatch(filter)
		return c.dir.isClass(attrs, "group") && hasValue("cn", m[1])
	default:
		return false
	}
}

func (c *fakeConn) SearchWithPaging(req *ldap.SearchRequest, _ uint32) (*ldap.SearchResult, error) {
	return c.Search(req)
}

func (c *fakeConn) Modify(req *ldap.ModifyRequest) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	key := strings.ToLower(req.DN)
	c.dir.modifies = append(c.dir.modifies, req)
	if err, ok := c.dir.modifyErr[key]; ok {
		return err
	}
	attrs, ok := c.dir.entries[key]
	if !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
	}

	for _, ch := range req.Changes {
		typ := ch.Modification.Type
		switch ch.Operation {
		case ldap.AddAttribute:
			attrs[typ] = append(attrs[typ], ch.Modification.Vals...)
			if typ == "member" {
				c.syncMemberOf(ch.Modification.Vals, req.DN, true)
			}
		case ldap.DeleteAttribute:
			attrs[typ] = removeValues(attrs[typ], ch.Modification.Vals)
			if typ == "member" {
				c.syncMemberOf(ch.Modification.Vals, req.DN, false)
			}
		case ldap.ReplaceAttribute:
			attrs[typ] = append([]string(nil), ch.Modification.Vals...)
		}
	}
	return nil
}

func (c *fakeConn) syncMemberOf(userDNs []string, groupDN string, add bool) {
	for _, u := range userDNs {
		attrs, ok := c.dir.entries[strings.ToLower(u)]
		if !ok {
			continue
		}
		if add {
			attrs["memberOf"] = append(attrs["memberOf"], groupDN)
		} else {
			attrs["memberOf"] = removeValues(attrs["memberOf"], []string{groupDN})
		}
	}
}

func removeValues(values, remove []string) []string {
	out := values[:0]
	for _, v := range values {
		keep := true
		for _, r := range remove {
			if strings.EqualFold(v, r) {
				keep = false
			}
		}
		if keep {
			out = append(out, v)
		}
	}
	return out
}

func (c *fakeConn) Add(req *ldap.AddRequest) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	c.dir.adds = append(c.dir.adds, req)
	key := strings.ToLower(req.DN)
	if _, exists := c.dir.entries[key]; exists {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("entry already exists"))
	}
	attrs := map[string][]string{"distinguishedName": {req.DN}}
	for _, a := range req.Attributes {
		attrs[a.Type] = append([]string(nil), a.Vals...)
	}
	c.dir.entries[key] = attrs
	c.dir.dns[key] = req.DN
	return nil
}

func (c *fakeConn) Close() {
	c.dir.mu.Lock()
	c.dir.closes++
	c.dir.mu.Unlock()
}

// newTestClient создаёт Client, подключающийся к fakeDirectory.
func newTestClient(t *testing.T, dir *fakeDirectory) *Client {
	t.Helper()

	c := New(Config{
		URL:          "ldap://fake:389",
		BindUser:     testBindUser,
		BindPassword: testBindPass,
		BaseDN:       testBaseDN,
		UsersOU:      testUsersOU,
		GroupsOU:     testGroupsOU,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	c.dial = func(ctx context.Context) (conn, error) {
		dir.mu.Lock()
		defer dir.mu.Unlock()
		dir.dials++
		if dir.dialErr != nil {
			return nil, dir.dialErr
		}
		return &fakeConn{dir: dir}, nil
	}
	return c
}
