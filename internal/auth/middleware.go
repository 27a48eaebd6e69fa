package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/config"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmployeeDirectory looks up employees and their project assignments
type EmployeeDirectory interface {
	GetByAuthUserID(ctx context.Context, authUserID string) (*domain.Employee, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Employee, error)
	ListProjectIDs(ctx context.Context, employeeID uuid.UUID) ([]uuid.UUID, error)
}

var errInactiveEmployee = errors.New("employee is deactivated")

// Middleware authenticates requests and resolves the acting employee
type Middleware struct {
	jwtValidator *JWTValidator
	apiKey       string
	directory    EmployeeDirectory
	logger       *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.AuthConfig, directory EmployeeDirectory, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwtValidator: NewJWTValidator(cfg),
		apiKey:       cfg.ApiKey,
		directory:    directory,
		logger:       logger,
	}
}

// Authenticate accepts either an API key plus X-Employee-ID header or a bearer token from the
// auth provider, and stores the resolved Actor in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		var (
			employee   *domain.Employee
			authMethod string
			err        error
		)

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			employeeID, parseErr := uuid.Parse(r.Header.Get("X-Employee-ID"))
			if parseErr != nil {
				http.Error(w, "Unauthorized: X-Employee-ID header required with API key", http.StatusUnauthorized)
				return
			}
			authMethod = "api_key"
			employee, err = m.directory.GetByID(ctx, employeeID)
		} else {
			token, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Unauthorized: missing or malformed authorization header", http.StatusUnauthorized)
				return
			}
			claims, validateErr := m.jwtValidator.ValidateToken(token)
			if validateErr != nil {
				m.logger.Warn("token validation failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(validateErr),
				)
				http.Error(w, "Unauthorized: "+validateErr.Error(), http.StatusUnauthorized)
				return
			}
			authMethod = "jwt"
			employee, err = m.directory.GetByAuthUserID(ctx, claims.Subject)
		}

		var actor *Actor
		if err == nil {
			actor, err = m.resolveActor(ctx, employee, authMethod)
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, errInactiveEmployee) {
				m.logger.Warn("authenticated caller is not an active employee",
					zap.String("path", r.URL.Path),
					zap.String("auth_type", authMethod),
					zap.Error(err),
				)
				http.Error(w, "Unauthorized: unknown employee", http.StatusUnauthorized)
				return
			}
			m.logger.Error("failed to resolve actor", zap.Error(err))
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("auth_type", authMethod),
			zap.String("employee_id", actor.EmployeeID.String()),
			zap.String("role", string(actor.Role)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
	})
}

func (m *Middleware) resolveActor(ctx context.Context, employee *domain.Employee, authMethod string) (*Actor, error) {
	if !employee.IsActive {
		return nil, errInactiveEmployee
	}
	actor := &Actor{
		EmployeeID: employee.ID,
		Name:       employee.Name,
		Email:      employee.Email,
		Role:       employee.Role,
		AuthMethod: authMethod,
	}
	if !actor.IsAdmin() {
		projectIDs, err := m.directory.ListProjectIDs(ctx, employee.ID)
		if err != nil {
			return nil, err
		}
		actor.ProjectIDs = projectIDs
	}
	return actor, nil
}

// RequireAdmin ensures the actor has the admin role
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := FromContext(r.Context())
		if !ok {
			http.Error(w, "Forbidden: no actor", http.StatusForbidden)
			return
		}
		if !actor.IsAdmin() {
			http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}
