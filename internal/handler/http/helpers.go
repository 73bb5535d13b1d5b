package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, checkout.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAdminExists), errors.Is(err, user.ErrEmailExists),
		errors.Is(err, checkout.ErrCartEmpty), errors.Is(err, checkout.ErrConfirmInProgress):
		return http.StatusConflict
	case apperr.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes err the way the client expects it: field
// details for validation failures, the store's own message for remote
// failures and a generic message for anything unclassified.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	code := mapErrorToStatusCode(err)
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
	} else {
		log.Debug().Err(err).Msg(fallback)
	}

	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		details := map[string]string{}
		if ve.Field != "" {
			details[ve.Field] = ve.Message
		}
		respondWithJSON(w, code, ValidationErrorResponse{Error: ve.Error(), Details: details})
	case code == http.StatusBadGateway:
		var re *apperr.RemoteError
		if errors.As(err, &re) && re.Err != nil {
			respondWithError(w, code, re.Err.Error())
			return
		}
		respondWithError(w, code, clientMessage(err))
	case code == http.StatusInternalServerError:
		respondWithError(w, code, fallback)
	default:
		respondWithError(w, code, clientMessage(err))
	}
}

// clientMessage strips the "service: ...:" context added while wrapping.
func clientMessage(err error) string {
	msg := err.Error()
	for _, prefix := range []string{"service: ", "repository: "} {
		for strings.HasPrefix(msg, prefix) {
			_, rest, ok := strings.Cut(msg[len(prefix):], ": ")
			if !ok {
				return msg
			}
			msg = rest
		}
	}
	return msg
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			details[field] = "is required"
		case "email":
			details[field] = "must be a valid email"
		case "min":
			details[field] = fmt.Sprintf("must be at least %s", fe.Param())
		case "gt":
			details[field] = fmt.Sprintf("must be greater than %s", fe.Param())
		case "gte":
			details[field] = fmt.Sprintf("must be at least %s", fe.Param())
		case "oneof":
			details[field] = fmt.Sprintf("must be one of: %s", fe.Param())
		default:
			details[field] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
	}
	return details
}

// decodeJSON writes the error response itself and reports whether to
// continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}
	return true
}

// decodeAndValidate decodes dst and runs its struct tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str(param, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", param))
		return uuid.Nil, false
	}
	return id, true
}
