// extension.go — приём заявок на регистрацию от браузерного расширения.
// POST /api/extension/register {"email": "..."}
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/regportal/internal/api/errors"
	"github.com/bigkaa/regportal/internal/domain/model"
	"github.com/bigkaa/regportal/internal/service"
)

// Максимальный размер тела заявки.
const maxRequestBody = 4 << 10

// registrationsTotal — заявки от расширения по результату.
var registrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rp_registrations_total",
		Help: "Количество заявок на регистрацию от браузерного расширения",
	},
	[]string{"result"},
)

// RegistrationCreator — создание заявки (service.RegistrationService).
type RegistrationCreator interface {
	Create(ctx context.Context, email string) (*model.Registration, error)
}

// ExtensionHandler — обработчик API браузерного расширения.
type ExtensionHandler struct {
	registrations RegistrationCreator
	logger        *slog.Logger
}

// NewExtensionHandler создаёт обработчик API расширения.
func NewExtensionHandler(registrations RegistrationCreator, logger *slog.Logger) *ExtensionHandler {
	return &ExtensionHandler{
		registrations: registrations,
		logger:        logger.With(slog.String("component", "extension_handler")),
	}
}

type registerRequest struct {
	Email string `json:"email"`
}

type registeredUser struct {
	ID          int64     `json:"id"`
	GoogleEmail string    `json:"googleEmail"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type registerResponse struct {
	Message string         `json:"message"`
	User    registeredUser `json:"user"`
}

// Register — POST /api/extension/register.
// 200 — заявка принята; 400 — email пуст, некорректен или уже зарегистрирован.
func (h *ExtensionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		registrationsTotal.WithLabelValues("invalid").Inc()
		apierrors.BadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		registrationsTotal.WithLabelValues("invalid").Inc()
		apierrors.BadRequest(w, "Email is required")
		return
	}

	reg, err := h.registrations.Create(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflict):
			registrationsTotal.WithLabelValues("duplicate").Inc()
			apierrors.BadRequest(w, "User with this email already exists")
		case errors.Is(err, service.ErrValidation):
			registrationsTotal.WithLabelValues("invalid").Inc()
			apierrors.BadRequest(w, "Invalid email address")
		default:
			registrationsTotal.WithLabelValues("error").Inc()
			h.logger.Error("Ошибка создания заявки", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Internal server error")
		}
		return
	}

	registrationsTotal.WithLabelValues("created").Inc()
	apierrors.WriteJSON(w, http.StatusOK, registerResponse{
		Message: "User registered successfully",
		User: registeredUser{
			ID:          reg.ID,
			GoogleEmail: reg.GoogleEmail,
			Status:      string(reg.Status),
			CreatedAt:   reg.CreatedAt,
		},
	})
}
