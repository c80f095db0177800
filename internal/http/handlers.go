package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/user-weather-service/internal/apperror"
	"github.com/kjstillabower/user-weather-service/internal/models"
)

// maxBodyBytes caps request bodies for user create and update.
const maxBodyBytes = 1 << 20

// UserService is the user CRUD surface the handlers call.
type UserService interface {
	CreateUser(ctx context.Context, draft models.UserDTO) (models.UserDTO, error)
	GetAllUsers(ctx context.Context) ([]models.UserDTO, error)
	GetUserByID(ctx context.Context, id int64) (models.UserDTO, error)
	UpdateUser(ctx context.Context, id int64, draft models.UserDTO) (models.UserDTO, error)
	DeleteUser(ctx context.Context, id int64) error
}

// WeatherService is the forecast surface the handlers call.
type WeatherService interface {
	GetForecast(ctx context.Context, zipCode string) (models.Forecast, error)
	GetCurrentWeather(ctx context.Context, zipCode string) (models.DailyForecast, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	users        UserService
	weather      WeatherService
	healthConfig *HealthConfig
	logger       *zap.Logger

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil, in which case
// /health only reports shutdown and traffic is not evaluated.
func NewHandler(users UserService, weather WeatherService, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		users:        users,
		weather:      weather,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	draft, err := decodeDraft(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.users.CreateUser(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.GetAllUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser handles GET /api/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser handles PUT /api/users/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := decodeDraft(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := h.users.UpdateUser(r.Context(), id, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteUser handles DELETE /api/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetForecast handles GET /api/weather/forecast/{zip}.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	f, err := h.weather.GetForecast(r.Context(), mux.Vars(r)["zip"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// GetCurrentWeather handles GET /api/weather/current/{zip}.
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	day, err := h.weather.GetCurrentWeather(r.Context(), mux.Vars(r)["zip"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// userID parses the {id} path variable.
func userID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.Wrap(apperror.InvalidParameter, "Invalid value '"+raw+"' for parameter 'id'", err)
	}
	return id, nil
}

// decodeDraft decodes a user draft from the JSON request body. Empty, null,
// oversized or malformed bodies and type mismatches all fail with MalformedRequest.
func decodeDraft(w http.ResponseWriter, r *http.Request) (models.UserDTO, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var draft *models.UserDTO
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		return models.UserDTO{}, apperror.Wrap(apperror.MalformedRequest, "decode request body", err)
	}
	if draft == nil {
		return models.UserDTO{}, apperror.New(apperror.MalformedRequest, "request body is null")
	}
	return *draft, nil
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
