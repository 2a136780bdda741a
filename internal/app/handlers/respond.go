package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/linemk/storefront/internal/domain/models"
	"github.com/linemk/storefront/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/storefront/internal/lib/api/response"
	"github.com/linemk/storefront/internal/service"
)

var validate = newValidator()

// newValidator называет поля в ошибках так же, как в JSON запроса
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate читает тело запроса и проверяет теги validate.
// При ошибке ответ уже записан, обработчику остаётся вернуться.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid request: decoding error", slog.Any("error", err))
		response.Error(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Warn("invalid request: validation error", slog.Any("error", err))
		response.Error(w, http.StatusBadRequest, "validation error", validationErrors(err))
		return false
	}
	return true
}

func validationErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "email":
			fields[fe.Field()] = "must be a valid email"
		case "min":
			fields[fe.Field()] = "must be at least " + fe.Param()
		case "max":
			fields[fe.Field()] = "must be at most " + fe.Param()
		case "oneof":
			fields[fe.Field()] = "must be one of " + fe.Param()
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return fields
}

// writeServiceError сопоставляет ошибки сервисов со статусами HTTP.
// Текст внутренних ошибок клиенту не уходит, только в лог.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		stockErr *service.InsufficientStockError
		fieldErr *service.FieldError
	)
	switch {
	case errors.As(err, &stockErr):
		response.Error(w, http.StatusBadRequest, "insufficient stock", stockErr.Violations)
	case errors.As(err, &fieldErr):
		response.Error(w, http.StatusBadRequest, "validation error", map[string]string{fieldErr.Field: fieldErr.Message})
	case errors.Is(err, service.ErrValidation):
		response.Error(w, http.StatusBadRequest, "validation error", nil)
	case errors.Is(err, service.ErrEmptyCart):
		response.Error(w, http.StatusBadRequest, "cart is empty", nil)
	case errors.Is(err, service.ErrNoOp):
		response.Error(w, http.StatusBadRequest, "order already has this status", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "invalid email or password", nil)
	case errors.Is(err, service.ErrUnauthenticated):
		response.Error(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, service.ErrForbidden):
		response.Error(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, http.StatusConflict, "email already registered", nil)
	default:
		logger.Error("internal error", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

// actorFromRequest достаёт пользователя, положенного JWT middleware
func actorFromRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Actor, bool) {
	actor, ok := jwtmiddleware.ActorFromContext(r.Context())
	if !ok {
		logger.Error("userID not found in context")
		response.Error(w, http.StatusUnauthorized, "unauthorized", nil)
		return models.Actor{}, false
	}
	return actor, true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "validation error", map[string]string{name: "must be a positive integer"})
		return 0, false
	}
	return id, true
}
