package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/straye-as/estate-sales-api/internal/mapper"
	"github.com/straye-as/estate-sales-api/internal/metrics"
	"github.com/straye-as/estate-sales-api/internal/repository"
	"github.com/straye-as/estate-sales-api/internal/storage"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const salesSheet = "Sales"

var allowedContractTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// SaleService reads sales and manages their contract documents. Creating and deleting sales
// goes through LifecycleService.
type SaleService struct {
	repos     Repositories
	documents storage.Storage
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewSaleService(repos Repositories, documents storage.Storage, m *metrics.Metrics, logger *zap.Logger) *SaleService {
	return &SaleService{repos: repos, documents: documents, metrics: m, logger: logger}
}

func (s *SaleService) List(ctx context.Context, actor *auth.Actor, page, pageSize int, filters *repository.SaleFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	page, pageSize = repository.NormalizePage(page, pageSize)
	sales, total, err := s.repos.Sales.List(ctx, actor, page, pageSize, filters, sort)
	if err != nil {
		return nil, &DependencyError{Op: "list sales", Err: err}
	}
	dtos := make([]domain.SaleDTO, len(sales))
	for i := range sales {
		dtos[i] = mapper.ToSaleDTO(&sales[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *SaleService) GetByID(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.SaleDTO, error) {
	sale, err := s.accessibleSale(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToSaleDTO(sale)
	return &dto, nil
}

// Export renders the matching sales as an xlsx workbook
func (s *SaleService) Export(ctx context.Context, actor *auth.Actor, filters *repository.SaleFilters) ([]byte, string, error) {
	if actor == nil {
		return nil, "", ErrUnauthorized
	}
	sales, err := s.repos.Sales.ListForExport(ctx, actor, filters)
	if err != nil {
		return nil, "", &DependencyError{Op: "export sales", Err: err}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return nil, "", fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	headers := []string{
		"Sale Date", "Contract Number", "Project", "Unit", "Client", "Client Phone", "Employee",
		"Price Before Tax", "Tax Rate %", "Total Price", "Down Payment", "Installments", "Payment Plan",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(salesSheet, cell, header)
		_ = f.SetCellStyle(salesSheet, cell, cell, headerStyle)
	}

	for i := range sales {
		sale := &sales[i]
		row := i + 2
		values := []interface{}{
			sale.SaleDate.Format("2006-01-02"),
			sale.ContractNumber,
			relatedName(sale.Project != nil, func() string { return sale.Project.Name }),
			relatedName(sale.Unit != nil, func() string { return sale.Unit.Code }),
			relatedName(sale.Client != nil, func() string { return sale.Client.Name }),
			relatedName(sale.Client != nil, func() string { return sale.Client.Phone }),
			relatedName(sale.Employee != nil, func() string { return sale.Employee.Name }),
			sale.PriceBeforeTax.InexactFloat64(),
			sale.TaxRate.InexactFloat64(),
			sale.TotalPrice().InexactFloat64(),
			sale.DownPayment.InexactFloat64(),
			sale.Installments,
			sale.PaymentPlan,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(salesSheet, cell, value)
		}
	}
	_ = f.SetColWidth(salesSheet, "A", "M", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	s.metrics.ExportCreated()
	s.logger.Info("sales exported",
		zap.Int("rows", len(sales)),
		zap.String("employee_id", actor.EmployeeID.String()))

	filename := fmt.Sprintf("sales-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	return buf.Bytes(), filename, nil
}

func relatedName(loaded bool, name func() string) string {
	if !loaded {
		return ""
	}
	return name()
}

// UploadContract stores the signed contract for a sale, replacing any earlier document
func (s *SaleService) UploadContract(ctx context.Context, actor *auth.Actor, id uuid.UUID, filename string, data io.Reader) (*domain.SaleDTO, error) {
	sale, err := s.accessibleSale(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.documents == nil {
		return nil, &DependencyError{Op: "upload contract", Err: errors.New("document storage is not configured")}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedContractTypes[ext]
	if !ok {
		return nil, NewValidationError("file", "contract must be a PDF, JPEG or PNG file")
	}

	key := storage.ContractKey(sale.ID.String(), filename)
	size, err := s.documents.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, &DependencyError{Op: "upload contract", Err: err}
	}

	if err := s.repos.Sales.SetContractKey(ctx, sale.ID, key); err != nil {
		if delErr := s.documents.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn("failed to remove contract after metadata update failed",
				zap.String("key", key), zap.Error(delErr))
		}
		return nil, translateStoreError("upload contract", "sale", sale.ID, err)
	}

	if sale.ContractKey != "" && sale.ContractKey != key {
		if err := s.documents.Delete(ctx, sale.ContractKey); err != nil {
			s.logger.Warn("failed to remove replaced contract",
				zap.String("sale_id", sale.ID.String()),
				zap.String("key", sale.ContractKey),
				zap.Error(err))
		}
	}

	s.logger.Info("contract uploaded",
		zap.String("sale_id", sale.ID.String()),
		zap.Int64("size", size),
		zap.String("employee_id", actor.EmployeeID.String()))

	sale.ContractKey = key
	dto := mapper.ToSaleDTO(sale)
	return &dto, nil
}

// ContractDocument is an open contract download. The caller closes Body.
type ContractDocument struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
}

func (s *SaleService) DownloadContract(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*ContractDocument, error) {
	sale, err := s.accessibleSale(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sale.ContractKey == "" || s.documents == nil {
		return nil, ErrContractNotFound
	}

	body, err := s.documents.Get(ctx, sale.ContractKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, &DependencyError{Op: "download contract", Err: err}
	}

	ext := filepath.Ext(sale.ContractKey)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ContractDocument{
		Body:        body,
		Filename:    fmt.Sprintf("contract-%s%s", contractLabel(sale), ext),
		ContentType: contentType,
	}, nil
}

func contractLabel(sale *domain.Sale) string {
	if sale.ContractNumber != "" {
		return strings.ReplaceAll(sale.ContractNumber, "/", "-")
	}
	return sale.ID.String()
}

func (s *SaleService) accessibleSale(ctx context.Context, actor *auth.Actor, id uuid.UUID) (*domain.Sale, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	sale, err := s.repos.Sales.GetWithDetails(ctx, id)
	if err != nil {
		return nil, translateStoreError("get sale", "sale", id, err)
	}
	if !actor.CanAccessProject(sale.ProjectID) {
		return nil, ErrPermissionDenied
	}
	return sale, nil
}

