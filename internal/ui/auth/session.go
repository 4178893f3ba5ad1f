// Пакет auth — сессии Admin UI.
// Сессия и flash-сообщения хранятся в cookie, зашифрованных AES-256-GCM.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Имя cookie для зашифрованной сессии UI.
const SessionCookieName = "regportal_session"

// Имя cookie для flash-сообщения.
const FlashCookieName = "regportal_flash"

// Путь, на который ограничены cookie UI.
const CookiePath = "/admin"

// Время жизни сессии по умолчанию.
const DefaultSessionTTL = 8 * time.Hour

// SessionData — данные сессии администратора, хранящиеся в зашифрованном cookie.
type SessionData struct {
	// Username — UPN, под которым выполнен вход
	Username string `json:"username"`
	// DisplayName — отображаемое имя из каталога
	DisplayName string `json:"display_name"`
	// IsAdmin — членство в группе администраторов на момент входа
	IsAdmin bool `json:"is_admin"`
	// ExpiresAt — время истечения сессии (Unix timestamp)
	ExpiresAt int64 `json:"expires_at"`
}

// IsExpired проверяет, истекла ли сессия.
func (s *SessionData) IsExpired() bool {
	return time.Now().Unix() >= s.ExpiresAt
}

// Flash — одноразовое сообщение, переживающее redirect.
type Flash struct {
	// Kind — success или error
	Kind string `json:"kind"`
	// Message — текст сообщения (уже переведённый)
	Message string `json:"message"`
}

// Виды flash-сообщений.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// SessionManager — менеджер сессий Admin UI.
// Шифрует/дешифрует данные cookie через AES-256-GCM.
type SessionManager struct {
	gcm    cipher.AEAD
	secure bool
	ttl    time.Duration
}

// NewSessionManager создаёт новый менеджер сессий.
// key — base64 32-байтового ключа или произвольная строка (хешируется SHA-256).
// Если key пустой — генерируется случайный ключ (сессии не переживают рестарт).
func NewSessionManager(key string, secure bool, ttl time.Duration) (*SessionManager, error) {
	var keyBytes []byte

	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionManager{
		gcm:    gcm,
		secure: secure,
		ttl:    ttl,
	}, nil
}

// NewSession создаёт данные сессии со сроком действия от текущего момента.
func (sm *SessionManager) NewSession(username, displayName string, isAdmin bool) *SessionData {
	return &SessionData{
		Username:    username,
		DisplayName: displayName,
		IsAdmin:     isAdmin,
		ExpiresAt:   time.Now().Add(sm.ttl).Unix(),
	}
}

// seal сериализует v в JSON и шифрует; nonce добавляется в начало.
func (sm *SessionManager) seal(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	ciphertext := sm.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// open дешифрует значение cookie в v.
func (sm *SessionManager) open(encrypted string, v any) error {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("ошибка дешифрования: %w", err)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("ошибка десериализации: %w", err)
	}
	return nil
}

// Encrypt шифрует SessionData и возвращает base64-строку.
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	return sm.seal(data)
}

// Decrypt дешифрует base64-строку обратно в SessionData.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	var data SessionData
	if err := sm.open(encrypted, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (sm *SessionManager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetSessionCookie устанавливает зашифрованный session cookie в ответ.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := sm.Encrypt(data)
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(SessionCookieName, encrypted, int(sm.ttl.Seconds())))
	return nil
}

// GetSessionFromRequest извлекает и дешифрует SessionData из cookie запроса.
// Возвращает nil, nil если cookie отсутствует.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	return sm.Decrypt(cookie.Value)
}

// ClearSessionCookie удаляет session cookie из ответа (logout).
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie(SessionCookieName, "", -1))
}

// SetFlash сохраняет flash-сообщение до следующего запроса.
func (sm *SessionManager) SetFlash(w http.ResponseWriter, kind, message string) error {
	encrypted, err := sm.seal(&Flash{Kind: kind, Message: message})
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(FlashCookieName, encrypted, 60))
	return nil
}

// PopFlash читает flash-сообщение и удаляет cookie.
// Повреждённый или чужой cookie молча отбрасывается.
func (sm *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, sm.cookie(FlashCookieName, "", -1))

	var flash Flash
	if err := sm.open(cookie.Value, &flash); err != nil {
		return nil
	}
	return &flash
}

// sha256Key хеширует строковый ключ в 32 bytes через SHA-256.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
