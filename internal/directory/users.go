package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/bigkaa/regportal/internal/domain/model"
)

// Флаги userAccountControl.
const (
	uacAccountDisable = 0x0002
	uacNormalAccount  = 0x0200
)

// Максимальная длина sAMAccountName в Active Directory.
const maxSAMAccountNameLen = 20

var userAttributes = []string{
	"userPrincipalName", "sAMAccountName", "displayName", "mail",
	"distinguishedName", "userAccountControl", "memberOf",
}

// findUser ищет учётную запись по UPN в поддереве BaseDN.
func (c *Client) findUser(cn conn, principalName string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		c.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, 0, false,
		fmt.Sprintf("(&(objectClass=user)(userPrincipalName=%s))", ldap.EscapeFilter(principalName)),
		userAttributes,
		nil,
	)

	res, err := cn.Search(req)
	if err != nil {
		return nil, classify(err)
	}
	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("%w: пользователь %s", ErrNotFound, principalName)
	}
	return res.Entries[0], nil
}

// entryToAccount преобразует LDAP-запись в DirectoryAccount.
func entryToAccount(e *ldap.Entry) *model.DirectoryAccount {
	acc := &model.DirectoryAccount{
		UserPrincipalName: e.GetAttributeValue("userPrincipalName"),
		SAMAccountName:    e.GetAttributeValue("sAMAccountName"),
		DisplayName:       e.GetAttributeValue("displayName"),
		Email:             e.GetAttributeValue("mail"),
		DistinguishedName: e.DN,
		MemberOf:          e.GetAttributeValues("memberOf"),
	}
	if dn := e.GetAttributeValue("distinguishedName"); dn != "" {
		acc.DistinguishedName = dn
	}

	// Отсутствующий или некорректный атрибут трактуется как включённая запись
	uac, err := strconv.ParseInt(e.GetAttributeValue("userAccountControl"), 10, 64)
	acc.Enabled = err != nil || uac&uacAccountDisable == 0
	return acc
}

// GetUser возвращает учётную запись по UPN. ErrNotFound, если её нет.
func (c *Client) GetUser(ctx context.Context, principalName string) (*model.DirectoryAccount, error) {
	var acc *model.DirectoryAccount
	err := c.serviceSession(ctx, "get_user", func(cn conn) error {
		e, err := c.findUser(cn, principalName)
		if err != nil {
			return err
		}
		acc = entryToAccount(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetUserGroups возвращает группы из атрибута memberOf учётной записи.
// Короткое имя группы берётся из первого компонента CN= её DN.
func (c *Client) GetUserGroups(ctx context.Context, principalName string) ([]model.DirectoryGroup, error) {
	acc, err := c.GetUser(ctx, principalName)
	if err != nil {
		return nil, err
	}

	groups := make([]model.DirectoryGroup, 0, len(acc.MemberOf))
	for _, dn := range acc.MemberOf {
		groups = append(groups, model.DirectoryGroup{
			DistinguishedName: dn,
			Name:              groupNameFromDN(dn),
		})
	}
	sortGroups(groups)
	return groups, nil
}

// ResetPassword генерирует новый пароль и устанавливает его учётной записи.
// Пароль возвращается вызывающему и нигде не сохраняется.
func (c *Client) ResetPassword(ctx context.Context, principalName string) (string, error) {
	password, err := GeneratePassword()
	if err != nil {
		return "", err
	}
	encoded, err := encodePassword(password)
	if err != nil {
		return "", err
	}

	err = c.serviceSession(ctx, "reset_password", func(cn conn) error {
		e, err := c.findUser(cn, principalName)
		if err != nil {
			return err
		}

		req := ldap.NewModifyRequest(e.DN, nil)
		req.Replace("unicodePwd", []string{encoded})
		if err := cn.Modify(req); err != nil {
			return fmt.Errorf("ошибка смены пароля %s: %w", principalName, classify(err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Пароль учётной записи сброшен", slog.String("upn", principalName))
	return password, nil
}

// CreateUser создаёт включённую учётную запись в контейнере UsersOU
// и возвращает её вместе с начальным паролем.
// sAMAccountName — часть UPN до "@", не длиннее 20 символов.
func (c *Client) CreateUser(ctx context.Context, principalName, displayName, email string) (*model.DirectoryAccount, string, error) {
	principalName = strings.TrimSpace(principalName)
	at := strings.LastIndex(principalName, "@")
	if at <= 0 || at == len(principalName)-1 {
		return nil, "", fmt.Errorf("некорректный UPN %q, ожидается user@domain", principalName)
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = principalName[:at]
	}

	sam := principalName[:at]
	if len(sam) > maxSAMAccountNameLen {
		sam = sam[:maxSAMAccountNameLen]
	}

	password, err := GeneratePassword()
	if err != nil {
		return nil, "", err
	}
	encoded, err := encodePassword(password)
	if err != nil {
		return nil, "", err
	}

	userDN := fmt.Sprintf("CN=%s,%s", ldap.EscapeDN(displayName), c.cfg.UsersOU)

	var acc *model.DirectoryAccount
	err = c.serviceSession(ctx, "create_user", func(cn conn) error {
		if _, err := c.findUser(cn, principalName); err == nil {
			return fmt.Errorf("%w: пользователь %s", ErrAlreadyExists, principalName)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		// Учётная запись создаётся отключённой, включается после установки пароля
		add := ldap.NewAddRequest(userDN, nil)
		add.Attribute("objectClass", []string{"top", "person", "organizationalPerson", "user"})
		add.Attribute("cn", []string{displayName})
		add.Attribute("displayName", []string{displayName})
		add.Attribute("sAMAccountName", []string{sam})
		add.Attribute("userPrincipalName", []string{principalName})
		add.Attribute("userAccountControl", []string{strconv.Itoa(uacNormalAccount | uacAccountDisable)})
		if email != "" {
			add.Attribute("mail", []string{email})
		}
		if err := cn.Add(add); err != nil {
			if code, ok := resultCode(err); ok && code == ldap.LDAPResultEntryAlreadyExists {
				return fmt.Errorf("%w: %s", ErrAlreadyExists, userDN)
			}
			return fmt.Errorf("ошибка создания учётной записи %s: %w", principalName, classify(err))
		}

		mod := ldap.NewModifyRequest(userDN, nil)
		mod.Replace("unicodePwd", []string{encoded})
		mod.Replace("userAccountControl", []string{strconv.Itoa(uacNormalAccount)})
		if err := cn.Modify(mod); err != nil {
			return fmt.Errorf("ошибка активации учётной записи %s: %w", principalName, classify(err))
		}

		e, err := c.findUser(cn, principalName)
		if err != nil {
			return err
		}
		acc = entryToAccount(e)
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	c.logger.Info("Учётная запись создана",
		slog.String("upn", principalName),
		slog.String("dn", acc.DistinguishedName),
	)
	return acc, password, nil
}
