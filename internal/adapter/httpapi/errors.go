package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/ui"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// statusFor переводит доменную ошибку в HTTP-статус.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, ui.ErrUnknownLineItem):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, domain.ErrServer):
		return http.StatusBadGateway
	case errors.Is(err, ui.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logger.FromContext(r.Context())
	if status >= 500 {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Error(err))
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Retryable: domain.IsRetryable(err)})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON читает тело запроса и проверяет его теги validate.
// Любая ошибка возвращается как ошибка валидации.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ValidationErrorf("invalid request body: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, validationMessage(fe))
			}
			return domain.ValidationErrorf("%s", strings.Join(msgs, "; "))
		}
		return domain.ValidationErrorf("%v", err)
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
