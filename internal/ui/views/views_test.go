package views

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	g "maragu.dev/gomponents"

	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/ui/auth"
	"github.com/bigkaa/regportal/internal/ui/i18n"
)

func TestMain(m *testing.M) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func render(t *testing.T, n g.Node) string {
	t.Helper()
	var sb strings.Builder
	if err := n.Render(&sb); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	return sb.String()
}

func strPtr(s string) *string { return &s }

var (
	devs   = model.DirectoryGroup{DistinguishedName: "CN=Devs,OU=SecurityGroups,DC=kaushalya,DC=local", Name: "Devs", Description: "Разработчики"}
	vpn    = model.DirectoryGroup{DistinguishedName: "CN=VPN,OU=SecurityGroups,DC=kaushalya,DC=local", Name: "VPN"}
	chrome = Chrome{User: "Admin", CSRFToken: "tok123"}
)

func TestLoginPage_RendersErrorAndCSRF(t *testing.T) {
	out := render(t, LoginPage(context.Background(), LoginData{
		Chrome:   Chrome{CSRFToken: "tok123"},
		Username: "alice",
		Error:    "Invalid username or password",
	}))

	assertContains(t, strings.ToLower(out), "<!doctype html>")
	assertContains(t, out, `action="/admin/login"`)
	assertContains(t, out, `name="csrf_token" value="tok123"`)
	assertContains(t, out, `value="alice"`)
	assertContains(t, out, "Invalid username or password")
	assertNotContains(t, out, "/admin/logout")
}

func TestLoginPage_Russian(t *testing.T) {
	ctx := i18n.WithLang(context.Background(), "ru")
	out := render(t, LoginPage(ctx, LoginData{}))

	assertContains(t, out, `lang="ru"`)
	assertContains(t, out, "Войти")
}

func TestDashboardPage_ListsRegistrations(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	out := render(t, DashboardPage(context.Background(), DashboardData{
		Chrome: chrome,
		Registrations: []*model.Registration{
			{ID: 7, GoogleEmail: "a@gmail.com", Status: model.StatusPending, CreatedAt: created},
			{ID: 8, GoogleEmail: "b@gmail.com", Status: model.StatusRegistered, UserPrincipalName: strPtr("b@kaushalya.local"), CreatedAt: created},
		},
		Counts: map[model.RegistrationStatus]int{model.StatusPending: 1, model.StatusRegistered: 1},
	}))

	assertContains(t, out, "a@gmail.com")
	assertContains(t, out, "b@kaushalya.local")
	assertContains(t, out, `href="/admin/registrations/7"`)
	assertContains(t, out, "2026-03-01 10:30")
	assertContains(t, out, "All (2)")
	assertContains(t, out, "Pending (1)")
	assertContains(t, out, "Signed in as Admin")
	assertContains(t, out, `action="/admin/logout"`)
}

func TestDashboardPage_EmptyAndFlash(t *testing.T) {
	ch := chrome
	ch.Flash = &auth.Flash{Kind: auth.FlashSuccess, Message: "User deleted successfully"}
	out := render(t, DashboardPage(context.Background(), DashboardData{Chrome: ch, Filter: model.StatusPending}))

	assertContains(t, out, "No registrations yet")
	assertContains(t, out, "flash flash-success")
	assertContains(t, out, "User deleted successfully")
	assertContains(t, out, `class="active"`)
}

func TestDetailPage_PendingShowsRegisterForm(t *testing.T) {
	out := render(t, DetailPage(context.Background(), DetailData{
		Chrome: chrome,
		Detail: &model.RegistrationDetail{Registration: &model.Registration{
			ID: 5, GoogleEmail: "new@gmail.com", Status: model.StatusPending,
		}},
		Groups: []model.DirectoryGroup{devs, vpn},
	}))

	assertContains(t, out, `action="/admin/registrations/5/register"`)
	assertContains(t, out, `name="principalName"`)
	assertContains(t, out, `value="new@gmail.com"`)
	assertContains(t, out, `placeholder="user@kaushalya.local"`)
	assertContains(t, out, `value="`+devs.DistinguishedName+`"`)
	assertNotContains(t, out, "checked")
	assertNotContains(t, out, "reset-password")
	assertContains(t, out, `action="/admin/registrations/5/delete"`)
}

func TestDetailPage_GroupCheckboxIDsUnique(t *testing.T) {
	devsA := model.DirectoryGroup{DistinguishedName: "CN=Dev Team,OU=A,DC=kaushalya,DC=local", Name: "Dev Team"}
	devsB := model.DirectoryGroup{DistinguishedName: "CN=Dev Team,OU=B,DC=kaushalya,DC=local", Name: "Dev Team"}
	out := render(t, DetailPage(context.Background(), DetailData{
		Chrome: chrome,
		Detail: &model.RegistrationDetail{Registration: &model.Registration{
			ID: 9, GoogleEmail: "new@gmail.com", Status: model.StatusPending,
		}},
		Groups: []model.DirectoryGroup{devsA, devsB},
	}))

	assertContains(t, out, `id="group-0"`)
	assertContains(t, out, `id="group-1"`)
	assertContains(t, out, `for="group-1"`)
	assertNotContains(t, out, `id="group-Dev Team"`)
}

func TestDetailPage_RegisteredMarksMembership(t *testing.T) {
	out := render(t, DetailPage(context.Background(), DetailData{
		Chrome: chrome,
		Detail: &model.RegistrationDetail{
			Registration: &model.Registration{
				ID: 6, GoogleEmail: "b@gmail.com", Status: model.StatusRegistered,
				UserPrincipalName: strPtr("b@kaushalya.local"),
			},
			Account: &model.DirectoryAccount{
				UserPrincipalName: "b@kaushalya.local", SAMAccountName: "b",
				DisplayName: "Bob", DistinguishedName: "CN=Bob,OU=Users,DC=kaushalya,DC=local", Enabled: true,
			},
			Groups: []model.DirectoryGroup{devs},
		},
		Groups: []model.DirectoryGroup{devs, vpn},
	}))

	assertContains(t, out, `action="/admin/registrations/6/groups"`)
	assertContains(t, out, `action="/admin/registrations/6/reset-password"`)
	if v := strings.Count(out, "checked"); v != 1 {
		t.Fatalf("получено %v, ожидалось %v", v, 1)
	}
	assertContains(t, out, "badge badge-member")
	assertContains(t, out, "Bob")
	assertContains(t, out, "Enabled")
	assertNotContains(t, out, "/register\"")
}

func TestDetailPage_DirectoryUnavailableHidesGroupForm(t *testing.T) {
	out := render(t, DetailPage(context.Background(), DetailData{
		Chrome: chrome,
		Detail: &model.RegistrationDetail{
			Registration: &model.Registration{
				ID: 6, GoogleEmail: "b@gmail.com", Status: model.StatusRegistered,
				UserPrincipalName: strPtr("b@kaushalya.local"),
			},
			DirectoryUnavailable: true,
		},
		GroupsUnavailable: true,
	}))

	assertContains(t, out, "The directory service is unavailable")
	assertNotContains(t, out, `action="/admin/registrations/6/groups"`)
}

func TestPasswordPage_ShowsPassword(t *testing.T) {
	out := render(t, PasswordPage(context.Background(), PasswordData{
		Chrome:       chrome,
		Registration: &model.Registration{ID: 6, UserPrincipalName: strPtr("b@kaushalya.local")},
		Password:     "Ab1!xyzXYZ12",
	}))

	assertContains(t, out, "Ab1!xyzXYZ12")
	assertContains(t, out, "New password for b@kaushalya.local")
}

func TestErrorPage(t *testing.T) {
	out := render(t, ErrorPage(context.Background(), Chrome{}, "The requested page was not found"))
	assertContains(t, out, "The requested page was not found")
	assertContains(t, out, `href="/admin/"`)
}

func TestRegistrationPath(t *testing.T) {
	if v := RegistrationPath(3, ""); v != "/admin/registrations/3" {
		t.Fatalf("получено %v, ожидалось %v", v, "/admin/registrations/3")
	}
	if v := RegistrationPath(3, "delete"); v != "/admin/registrations/3/delete" {
		t.Fatalf("получено %v, ожидалось %v", v, "/admin/registrations/3/delete")
	}
}

func assertContains(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("ожидалась подстрока %q", sub)
	}
}

func assertNotContains(t *testing.T, s, sub string) {
	t.Helper()
	if strings.Contains(s, sub) {
		t.Fatalf("неожиданная подстрока %q", sub)
	}
}
