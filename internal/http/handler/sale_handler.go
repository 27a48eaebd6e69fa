package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/service"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SaleHandler struct {
	saleService *service.SaleService
	maxUploadMB int64
	logger      *zap.Logger
}

func NewSaleHandler(saleService *service.SaleService, maxUploadMB int64, logger *zap.Logger) *SaleHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &SaleHandler{saleService: saleService, maxUploadMB: maxUploadMB, logger: logger}
}

// List godoc
// @Summary List sales
// @Tags Sales
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param projectId query string false "Filter by project"
// @Param employeeId query string false "Filter by employee"
// @Param clientId query string false "Filter by client"
// @Param from query string false "Sale date from (YYYY-MM-DD)"
// @Param to query string false "Sale date to (YYYY-MM-DD)"
// @Param sortBy query string false "Sort field" Enums(createdAt, saleDate, priceBeforeTax)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.SaleDTO}
// @Security BearerAuth
// @Router /sales [get]
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filters, ok := saleFilters(w, r)
	if !ok {
		return
	}

	page, pageSize := pageParams(r)
	result, err := h.saleService.List(r.Context(), actor, page, pageSize, filters, sortParams(r))
	if err != nil {
		respondServiceError(w, r, h.logger, err, "list sales")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Export godoc
// @Summary Export sales to Excel
// @Tags Sales
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param projectId query string false "Filter by project"
// @Param employeeId query string false "Filter by employee"
// @Param from query string false "Sale date from (YYYY-MM-DD)"
// @Param to query string false "Sale date to (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /sales/export [get]
func (h *SaleHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	filters, ok := saleFilters(w, r)
	if !ok {
		return
	}

	data, filename, err := h.saleService.Export(r.Context(), actor, filters)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "export sales")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetByID godoc
// @Summary Get a sale
// @Tags Sales
// @Produce json
// @Param id path string true "Sale ID"
// @Success 200 {object} domain.SaleDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sales/{id} [get]
func (h *SaleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	sale, err := h.saleService.GetByID(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "get sale")
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// UploadContract godoc
// @Summary Upload the signed contract
// @Tags Sales
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Sale ID"
// @Param file formData file true "PDF, JPEG or PNG"
// @Success 200 {object} domain.SaleDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Router /sales/{id}/contract [post]
func (h *SaleHandler) UploadContract(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	sale, err := h.saleService.UploadContract(r.Context(), actor, id, header.Filename, file)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "upload contract")
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// DownloadContract godoc
// @Summary Download the signed contract
// @Tags Sales
// @Produce application/octet-stream
// @Param id path string true "Sale ID"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /sales/{id}/contract [get]
func (h *SaleHandler) DownloadContract(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.saleService.DownloadContract(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "download contract")
		return
	}
	defer doc.Body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc.Body); err != nil {
		h.logger.Warn("contract download interrupted", zap.String("sale_id", id.String()), zap.Error(err))
	}
}

func saleFilters(w http.ResponseWriter, r *http.Request) (*repository.SaleFilters, bool) {
	filters := &repository.SaleFilters{}
	var ok bool
	if filters.ProjectID, ok = queryUUID(w, r, "projectId"); !ok {
		return nil, false
	}
	if filters.EmployeeID, ok = queryUUID(w, r, "employeeId"); !ok {
		return nil, false
	}
	if filters.ClientID, ok = queryUUID(w, r, "clientId"); !ok {
		return nil, false
	}
	if filters.From, ok = queryDate(w, r, "from", false); !ok {
		return nil, false
	}
	if filters.To, ok = queryDate(w, r, "to", true); !ok {
		return nil, false
	}
	return filters, true
}

// queryDate parses an optional YYYY-MM-DD parameter. endOfDay moves the bound to the last
// instant of that day so "to" filters are inclusive.
func queryDate(w http.ResponseWriter, r *http.Request, name string, endOfDay bool) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: expected YYYY-MM-DD", name))
		return nil, false
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, true
}
