package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/http/handler"
	"github.com/straye-as/estate-sales-api/internal/locking"
	"github.com/straye-as/estate-sales-api/internal/service"
	"github.com/straye-as/estate-sales-api/internal/storage"
	"github.com/straye-as/estate-sales-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	router  chi.Router
	admin   *auth.Actor
	project *domain.Project
}

type envOption func(*envConfig)

type envConfig struct {
	documents storage.Storage
}

func withDocuments(s storage.Storage) envOption {
	return func(c *envConfig) { c.documents = s }
}

// newTestEnv mounts the handlers the same way the router does, minus authentication. Requests
// carry their actor in the context instead.
func newTestEnv(t *testing.T, options ...envOption) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	cfg := &envConfig{}
	for _, o := range options {
		o(cfg)
	}
	if cfg.documents == nil {
		local, err := storage.NewLocalStorage(t.TempDir())
		require.NoError(t, err)
		cfg.documents = local
	}

	log := zap.NewNop()
	repos := service.NewRepositories(db)
	lifecycleService := service.NewLifecycleService(repos, locking.NoopLocker{}, cfg.documents, nil, service.LifecycleOptions{
		EnforceUnitAvailability: true,
		ReadRetryDelay:          time.Millisecond,
	}, log, db)

	lifecycle := handler.NewLifecycleHandler(lifecycleService, log)
	clients := handler.NewClientHandler(service.NewClientService(repos, "EG", log, db), log)
	catalog := handler.NewCatalogHandler(service.NewCatalogService(repos, log), log)
	sales := handler.NewSaleHandler(service.NewSaleService(repos, cfg.documents, nil, log), 1, log)
	employees := handler.NewEmployeeHandler(service.NewEmployeeService(repos, log), log)
	transitions := handler.NewTransitionHandler(service.NewTransitionService(repos.Transitions, lifecycleService, nil, time.Hour, log), log)

	r := chi.NewRouter()
	r.Get("/me", employees.Me)
	r.Post("/employees", employees.Create)
	r.Put("/employees/{id}/projects", employees.AssignProjects)
	r.Post("/clients", clients.Create)
	r.Get("/clients/{id}", clients.GetByID)
	r.Get("/clients/{id}/timeline", clients.Timeline)
	r.Post("/clients/{id}/follow-ups", lifecycle.RecordFollowUp)
	r.Get("/clients/{id}/follow-ups", lifecycle.ListFollowUps)
	r.Post("/projects", catalog.CreateProject)
	r.Get("/units", catalog.ListUnits)
	r.Post("/reservations", lifecycle.CreateReservation)
	r.Get("/reservations", lifecycle.ListReservations)
	r.Get("/reservations/{id}", lifecycle.GetReservation)
	r.Post("/reservations/{id}/cancel", lifecycle.CancelReservation)
	r.Post("/reservations/{id}/convert", lifecycle.ConvertToSale)
	r.Get("/sales", sales.List)
	r.Get("/sales/export", sales.Export)
	r.Get("/sales/{id}", sales.GetByID)
	r.Delete("/sales/{id}", lifecycle.DeleteSale)
	r.Post("/sales/{id}/contract", sales.UploadContract)
	r.Get("/sales/{id}/contract", sales.DownloadContract)
	r.Get("/transitions", transitions.List)

	return &testEnv{
		db:      db,
		router:  r,
		admin:   testutil.AdminActor(testutil.CreateEmployee(t, db, domain.EmployeeRoleAdmin)),
		project: testutil.CreateProject(t, db),
	}
}

func (e *testEnv) send(t *testing.T, actor *auth.Actor, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), actor))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) do(t *testing.T, actor *auth.Actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, actor, req)
}

func (e *testEnv) upload(t *testing.T, actor *auth.Actor, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(t, actor, req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
}

// reserveAndSell drives a fresh unit through reservation and conversion over HTTP
func (e *testEnv) reserveAndSell(t *testing.T) (domain.ReservationDTO, domain.SaleDTO) {
	t.Helper()
	client := testutil.CreateClient(t, e.db, domain.ClientStatusInterested)
	unit := testutil.CreateUnit(t, e.db, e.project.ID, domain.UnitStatusAvailable)

	w := e.do(t, e.admin, http.MethodPost, "/reservations", map[string]interface{}{
		"clientId": client.ID,
		"unitId":   unit.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reservation := decode[domain.ReservationDTO](t, w)

	w = e.do(t, e.admin, http.MethodPost, "/reservations/"+reservation.ID.String()+"/convert", map[string]interface{}{
		"clientId":       client.ID,
		"unitId":         unit.ID,
		"employeeId":     e.admin.EmployeeID,
		"priceBeforeTax": "2500000",
		"taxRate":        "14",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return reservation, decode[domain.SaleDTO](t, w)
}

type failingStorage struct{}

var errBlobUnavailable = errors.New("blob service unavailable")

func (failingStorage) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	return 0, errBlobUnavailable
}

func (failingStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errBlobUnavailable
}

func (failingStorage) Delete(ctx context.Context, key string) error {
	return errBlobUnavailable
}
