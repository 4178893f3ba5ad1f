// Пакет directory — клиент каталога (Active Directory) поверх LDAP.
// Все операции — синхронные запросы к каталогу: соединение на вызов,
// bind сервисной учётной записи, без кэширования.
package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Ошибки клиента каталога.
var (
	// ErrNotFound — пользователь или группа не найдены в каталоге.
	ErrNotFound = errors.New("объект каталога не найден")
	// ErrAlreadyExists — учётная запись с таким UPN уже существует.
	ErrAlreadyExists = errors.New("объект каталога уже существует")
	// ErrUnavailable — каталог недоступен (сеть, таймаут, сервер занят).
	ErrUnavailable = errors.New("каталог недоступен")
)

// Config — параметры подключения к каталогу.
type Config struct {
	// URL — ldap://host:389 или ldaps://host:636
	URL string
	// BindUser, BindPassword — сервисная учётная запись
	BindUser     string
	BindPassword string
	// BaseDN — корень поиска пользователей и групп
	BaseDN string
	// UsersOU — контейнер для создания учётных записей
	UsersOU string
	// GroupsOU — контейнер групп, доступных для назначения
	GroupsOU string
	// StartTLS — выполнить StartTLS после подключения по ldap://
	StartTLS bool
	// TLSConfig — TLS для ldaps:// и StartTLS (nil — системные настройки)
	TLSConfig *tls.Config
	// Timeout — таймаут подключения и каждой операции
	Timeout time.Duration
}

// conn — операции LDAP-соединения, которые использует клиент.
// Реализуется *ldap.Conn (через ldapConn) и fake-соединением в тестах.
type conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
	Modify(req *ldap.ModifyRequest) error
	Add(req *ldap.AddRequest) error
	Close()
}

// dialFunc открывает новое соединение с каталогом.
type dialFunc func(ctx context.Context) (conn, error)

// Client — клиент каталога.
type Client struct {
	cfg    Config
	dial   dialFunc
	logger *slog.Logger
}

// New создаёт клиент каталога. Подключение выполняется при каждом вызове.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "directory_client")),
	}
	c.dial = c.dialLDAP
	return c
}

// ldapConn адаптирует *ldap.Conn к интерфейсу conn.
type ldapConn struct {
	*ldap.Conn
}

func (c *ldapConn) Close() {
	c.Conn.Close()
}

// dialLDAP подключается к серверу каталога, при необходимости выполняет StartTLS.
func (c *Client) dialLDAP(ctx context.Context) (conn, error) {
	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: c.cfg.Timeout}),
	}
	if c.cfg.TLSConfig != nil {
		opts = append(opts, ldap.DialWithTLSConfig(c.cfg.TLSConfig))
	}

	l, err := ldap.DialURL(c.cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: подключение к %s: %v", ErrUnavailable, c.cfg.URL, err)
	}
	l.SetTimeout(c.cfg.Timeout)

	if c.cfg.StartTLS {
		tlsCfg := c.cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		if err := l.StartTLS(tlsCfg); err != nil {
			l.Close()
			return nil, fmt.Errorf("%w: StartTLS: %v", ErrUnavailable, err)
		}
	}

	return &ldapConn{Conn: l}, nil
}

// session открывает соединение, выполняет bind и вызывает fn.
// Отмена ctx закрывает соединение, прерывая текущую операцию.
func (c *Client) session(ctx context.Context, bindUser, bindPassword string, fn func(conn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, cn.Close)
	defer func() {
		if stop() {
			cn.Close()
		}
	}()

	if err := cn.Bind(bindUser, bindPassword); err != nil {
		return classify(err)
	}
	return fn(cn)
}

// serviceSession — session под сервисной учётной записью с учётом метрик.
func (c *Client) serviceSession(ctx context.Context, op string, fn func(conn) error) error {
	start := time.Now()
	err := c.session(ctx, c.cfg.BindUser, c.cfg.BindPassword, fn)
	observe(op, err, start)
	if err != nil && errors.Is(err, ErrUnavailable) {
		c.logger.Warn("Каталог недоступен",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// resultCode извлекает код результата LDAP из цепочки ошибок.
func resultCode(err error) (uint16, bool) {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return ldapErr.ResultCode, true
	}
	return 0, false
}

// classify сопоставляет ошибки LDAP с ошибками пакета.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code, ok := resultCode(err)
	if !ok {
		return err
	}
	switch code {
	case ldap.ErrorNetwork, ldap.LDAPResultBusy, ldap.LDAPResultUnavailable,
		ldap.LDAPResultTimeLimitExceeded:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case ldap.LDAPResultNoSuchObject:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
