package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestSessionEncryptDecryptRoundTrip проверяет шифрование и дешифрование SessionData.
func TestSessionEncryptDecryptRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("", false, time.Hour)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	original := sm.NewSession("admin@kaushalya.local", "Администратор", true)

	encrypted, err := sm.Encrypt(original)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	if encrypted == "" {
		t.Fatal("Зашифрованная строка пустая")
	}

	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Ошибка дешифрования: %v", err)
	}

	if *decrypted != *original {
		t.Errorf("Сессия после round trip: want %+v, got %+v", original, decrypted)
	}
}

// TestNewSessionExpiresAfterTTL проверяет, что срок действия отсчитывается от TTL.
func TestNewSessionExpiresAfterTTL(t *testing.T) {
	sm, err := NewSessionManager("key", false, 2*time.Hour)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	s := sm.NewSession("u", "U", true)
	want := time.Now().Add(2 * time.Hour).Unix()
	if s.ExpiresAt < want-5 || s.ExpiresAt > want+5 {
		t.Errorf("ExpiresAt: want ~%d, got %d", want, s.ExpiresAt)
	}
	if s.IsExpired() {
		t.Error("Новая сессия не должна быть истёкшей")
	}
}

// TestSessionManagerDefaultTTL проверяет TTL по умолчанию при нулевом значении.
func TestSessionManagerDefaultTTL(t *testing.T) {
	sm, err := NewSessionManager("key", false, 0)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}
	if sm.ttl != DefaultSessionTTL {
		t.Errorf("ttl: want %v, got %v", DefaultSessionTTL, sm.ttl)
	}
}

// TestSessionDecryptWithWrongKey проверяет, что дешифрование чужим ключом не работает.
func TestSessionDecryptWithWrongKey(t *testing.T) {
	sm1, _ := NewSessionManager("key-one", false, time.Hour)
	sm2, _ := NewSessionManager("key-two", false, time.Hour)

	encrypted, err := sm1.Encrypt(&SessionData{Username: "admin"})
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if _, err := sm2.Decrypt(encrypted); err == nil {
		t.Error("Ожидалась ошибка при дешифровании чужим ключом")
	}
}

// TestSessionDecryptGarbage проверяет отказ на повреждённых данных.
func TestSessionDecryptGarbage(t *testing.T) {
	sm, _ := NewSessionManager("key", false, time.Hour)

	tests := []struct {
		name  string
		value string
	}{
		{"не base64", "%%%"},
		{"слишком короткие", "AAAA"},
		{"случайные байты", "dGhpcyBpcyBub3QgYSB2YWxpZCBzZXNzaW9uIHBheWxvYWQ="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sm.Decrypt(tt.value); err == nil {
				t.Error("Ожидалась ошибка дешифрования")
			}
		})
	}
}

// TestSessionIsExpired проверяет логику проверки истечения сессии.
func TestSessionIsExpired(t *testing.T) {
	expired := &SessionData{ExpiresAt: time.Now().Add(-time.Minute).Unix()}
	if !expired.IsExpired() {
		t.Error("Ожидалось IsExpired()=true для истёкшей сессии")
	}

	fresh := &SessionData{ExpiresAt: time.Now().Add(time.Minute).Unix()}
	if fresh.IsExpired() {
		t.Error("Ожидалось IsExpired()=false для свежей сессии")
	}
}

// TestSessionCookieSetAndGet проверяет установку и извлечение cookie.
func TestSessionCookieSetAndGet(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false, time.Hour)
	data := sm.NewSession("admin@kaushalya.local", "Admin", true)

	w := httptest.NewRecorder()
	if err := sm.SetSessionCookie(w, data); err != nil {
		t.Fatalf("Ошибка установки cookie: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Cookie не установлен")
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(cookies[0])

	got, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Ошибка чтения сессии из cookie: %v", err)
	}
	if got == nil {
		t.Fatal("Сессия не найдена")
	}
	if got.Username != data.Username || !got.IsAdmin {
		t.Errorf("Сессия: want %+v, got %+v", data, got)
	}

	cookie := cookies[0]
	if cookie.Name != SessionCookieName {
		t.Errorf("Cookie name: want %q, got %q", SessionCookieName, cookie.Name)
	}
	if cookie.Path != CookiePath {
		t.Errorf("Cookie path: want %q, got %q", CookiePath, cookie.Path)
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("MaxAge: want 3600, got %d", cookie.MaxAge)
	}
	if !cookie.HttpOnly {
		t.Error("Cookie должен быть HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("Cookie должен быть SameSite=Lax")
	}
}

// TestSessionCookieSecureFlag проверяет флаг Secure.
func TestSessionCookieSecureFlag(t *testing.T) {
	sm, _ := NewSessionManager("test-key", true, time.Hour)

	w := httptest.NewRecorder()
	if err := sm.SetSessionCookie(w, sm.NewSession("u", "u", true)); err != nil {
		t.Fatalf("Ошибка установки cookie: %v", err)
	}
	if !w.Result().Cookies()[0].Secure {
		t.Error("Cookie должен быть Secure")
	}
}

// TestSessionCookieMissing проверяет, что отсутствие cookie возвращает nil, nil.
func TestSessionCookieMissing(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	data, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Ожидалось nil error, получено: %v", err)
	}
	if data != nil {
		t.Error("Ожидалось nil data при отсутствии cookie")
	}
}

// TestClearSessionCookie проверяет очистку session cookie.
func TestClearSessionCookie(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false, time.Hour)

	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Cookie очистки не установлен")
	}

	cookie := cookies[0]
	if cookie.MaxAge != -1 {
		t.Errorf("MaxAge: want -1, got %d", cookie.MaxAge)
	}
	if cookie.Value != "" {
		t.Error("Value должен быть пустым")
	}
}

// TestFlashSetAndPop проверяет, что flash читается один раз.
func TestFlashSetAndPop(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false, time.Hour)

	w := httptest.NewRecorder()
	if err := sm.SetFlash(w, FlashSuccess, "Пользователь удалён"); err != nil {
		t.Fatalf("Ошибка установки flash: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != FlashCookieName {
		t.Fatalf("Ожидался flash cookie, получено: %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(cookies[0])

	rec := httptest.NewRecorder()
	flash := sm.PopFlash(rec, req)
	if flash == nil {
		t.Fatal("Flash не прочитан")
	}
	if flash.Kind != FlashSuccess || flash.Message != "Пользователь удалён" {
		t.Errorf("Flash: got %+v", flash)
	}

	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("Flash cookie должен быть удалён, получено: %+v", cleared)
	}
}

// TestPopFlashMissingOrForged проверяет отсутствующий и поддельный flash.
func TestPopFlashMissingOrForged(t *testing.T) {
	sm, _ := NewSessionManager("test-key", false, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	if flash := sm.PopFlash(httptest.NewRecorder(), req); flash != nil {
		t.Errorf("Ожидался nil без cookie, получено: %+v", flash)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(&http.Cookie{Name: FlashCookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	if flash := sm.PopFlash(rec, req); flash != nil {
		t.Errorf("Ожидался nil для поддельного cookie, получено: %+v", flash)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Error("Поддельный flash cookie должен быть удалён")
	}
}
