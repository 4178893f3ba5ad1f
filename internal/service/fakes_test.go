package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/regportal/internal/directory"
	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRepo — in-memory реализация RegistrationRepository.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Registration
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]*model.Registration)}
}

func clone(r *model.Registration) *model.Registration {
	c := *r
	return &c
}

func (m *memRepo) Create(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.GoogleEmail == reg.GoogleEmail {
			return repository.ErrConflict
		}
	}
	m.nextID++
	reg.ID = m.nextID
	reg.Status = model.StatusPending
	reg.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Millisecond)
	m.rows[reg.ID] = clone(reg)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r), nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.GoogleEmail == email {
			return clone(r), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) List(_ context.Context, status *model.RegistrationStatus) ([]*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Registration
	for _, r := range m.rows {
		if status == nil || r.Status == *status {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memRepo) CountByStatus(_ context.Context) (map[model.RegistrationStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[model.RegistrationStatus]int{model.StatusPending: 0, model.StatusRegistered: 0}
	for _, r := range m.rows {
		counts[r.Status]++
	}
	return counts, nil
}

func (m *memRepo) MarkRegistered(_ context.Context, id int64, principalName string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != model.StatusPending {
		return nil, repository.ErrConflict
	}
	now := time.Now()
	r.Status = model.StatusRegistered
	r.UserPrincipalName = &principalName
	r.UpdatedAt = &now
	return clone(r), nil
}

func (m *memRepo) Touch(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	r.UpdatedAt = &now
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// fakeDir — реализация Directory с журналом вызовов и внедрением ошибок.
type fakeDir struct {
	mu        sync.Mutex
	passwords map[string]string
	admins    map[string]bool
	accounts  map[string]*model.DirectoryAccount
	groups    []model.DirectoryGroup
	// failGroup — ошибка операций членства по DN группы
	failGroup map[string]error
	// unavailable — все операции возвращают directory.ErrUnavailable
	unavailable bool

	calls []string
}

func newFakeDir() *fakeDir {
	return &fakeDir{
		passwords: make(map[string]string),
		admins:    make(map[string]bool),
		accounts:  make(map[string]*model.DirectoryAccount),
		failGroup: make(map[string]error),
	}
}

func (f *fakeDir) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	if f.unavailable {
		return fmt.Errorf("%w: connection refused", directory.ErrUnavailable)
	}
	return nil
}

func (f *fakeDir) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDir) addAccount(upn, displayName string, memberOf ...string) {
	f.accounts[upn] = &model.DirectoryAccount{
		UserPrincipalName: upn,
		DisplayName:       displayName,
		Enabled:           true,
		MemberOf:          memberOf,
	}
}

func (f *fakeDir) ValidateCredentials(_ context.Context, username, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("validate %s", username); err != nil {
		return false, err
	}
	want, ok := f.passwords[username]
	return ok && want == password, nil
}

func (f *fakeDir) IsMember(_ context.Context, principalName, groupName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("is_member %s %s", principalName, groupName); err != nil {
		return false, err
	}
	return f.admins[principalName], nil
}

func (f *fakeDir) GetUser(_ context.Context, principalName string) (*model.DirectoryAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get_user %s", principalName); err != nil {
		return nil, err
	}
	acc, ok := f.accounts[principalName]
	if !ok {
		return nil, fmt.Errorf("%w: пользователь %s", directory.ErrNotFound, principalName)
	}
	c := *acc
	c.MemberOf = append([]string(nil), acc.MemberOf...)
	return &c, nil
}

func (f *fakeDir) ListGroups(_ context.Context) ([]model.DirectoryGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list_groups"); err != nil {
		return nil, err
	}
	return append([]model.DirectoryGroup(nil), f.groups...), nil
}

func (f *fakeDir) GetUserGroups(_ context.Context, principalName string) ([]model.DirectoryGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get_user_groups %s", principalName); err != nil {
		return nil, err
	}
	acc, ok := f.accounts[principalName]
	if !ok {
		return nil, fmt.Errorf("%w: пользователь %s", directory.ErrNotFound, principalName)
	}
	groups := make([]model.DirectoryGroup, 0, len(acc.MemberOf))
	for _, dn := range acc.MemberOf {
		groups = append(groups, model.DirectoryGroup{DistinguishedName: dn})
	}
	return groups, nil
}

func (f *fakeDir) AddUserToGroup(_ context.Context, principalName, groupDN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("add %s %s", principalName, groupDN); err != nil {
		return err
	}
	if err := f.failGroup[groupDN]; err != nil {
		return err
	}
	acc, ok := f.accounts[principalName]
	if !ok {
		return directory.ErrNotFound
	}
	for _, dn := range acc.MemberOf {
		if model.EqualDN(dn, groupDN) {
			return nil
		}
	}
	acc.MemberOf = append(acc.MemberOf, groupDN)
	return nil
}

func (f *fakeDir) RemoveUserFromGroup(_ context.Context, principalName, groupDN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove %s %s", principalName, groupDN); err != nil {
		return err
	}
	if err := f.failGroup[groupDN]; err != nil {
		return err
	}
	acc, ok := f.accounts[principalName]
	if !ok {
		return directory.ErrNotFound
	}
	kept := acc.MemberOf[:0]
	for _, dn := range acc.MemberOf {
		if !model.EqualDN(dn, groupDN) {
			kept = append(kept, dn)
		}
	}
	acc.MemberOf = kept
	return nil
}

func (f *fakeDir) ResetPassword(_ context.Context, principalName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("reset_password %s", principalName); err != nil {
		return "", err
	}
	if _, ok := f.accounts[principalName]; !ok {
		return "", directory.ErrNotFound
	}
	return "Xy7!abcdefgh", nil
}
