package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/locking"
	applog "github.com/straye-as/estate-sales-api/internal/logger"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"go.uber.org/zap"
)

// ConsistencyWarningHeader is set on successful responses whose follow-up work failed
const ConsistencyWarningHeader = "X-Consistency-Warning"

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondWithError sends a problem details body with the given status
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   errorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

func respondFieldErrors(w http.ResponseWriter, fields map[string]string) {
	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

// respondValidationError turns validator errors into field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}
	respondFieldErrors(w, fields)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

func toJSONFieldName(field string) string {
	if field == "" {
		return field
	}
	if strings.HasSuffix(field, "ID") {
		field = strings.TrimSuffix(field, "ID") + "Id"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusServiceUnavailable:
		return domain.ErrorTypeUnavailable
	default:
		return domain.ErrorTypeInternal
	}
}

// respondServiceError maps a service error to its HTTP status. Unexpected errors are logged
// and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, action string) {
	var (
		verr     *service.ValidationError
		notFound *service.NotFoundError
		depErr   *service.DependencyError
	)
	switch {
	case errors.As(err, &verr):
		respondFieldErrors(w, verr.Fields)
	case errors.As(err, &notFound):
		respondWithError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, service.ErrContractNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConcurrentModification),
		errors.Is(err, locking.ErrUnitBusy),
		errors.Is(err, service.ErrUnitNotAvailable),
		errors.Is(err, service.ErrReservationNotActive),
		errors.Is(err, service.ErrReservationConverted),
		errors.Is(err, service.ErrHasDependents),
		errors.Is(err, service.ErrDuplicateClient),
		errors.Is(err, service.ErrTransitionNotRetryable):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &depErr):
		logger = withActor(logger, r)
		logger.Error("dependency failure", zap.String("action", action), zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "A backing service is unavailable, please retry")
	default:
		logger = withActor(logger, r)
		logger.Error("request failed", zap.String("action", action), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

func withActor(logger *zap.Logger, r *http.Request) *zap.Logger {
	actor, _ := auth.FromContext(r.Context())
	return applog.WithActor(logger, actor).With(zap.String("request_id", r.Header.Get("X-Request-ID")))
}

// flagConsistencyWarning sets the warning header when err is a consistency warning and reports
// whether the request should be treated as successful.
func flagConsistencyWarning(w http.ResponseWriter, err error) bool {
	var warning *service.ConsistencyWarning
	if !errors.As(err, &warning) {
		return false
	}
	w.Header().Set(ConsistencyWarningHeader, warning.Detail)
	return true
}

// decodeJSON reads and validates the request body into dst. It writes the error response and
// returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

func requireActor(w http.ResponseWriter, r *http.Request) (*auth.Actor, bool) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return actor, true
}

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: must be a valid UUID", param))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional uuid query parameter
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: must be a valid UUID", name))
		return nil, false
	}
	return &id, true
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	return repository.NormalizePage(page, pageSize)
}

func sortParams(r *http.Request) repository.SortConfig {
	sort := repository.DefaultSortConfig()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		sort.Order = repository.ParseSortOrder(order)
	}
	return sort
}
