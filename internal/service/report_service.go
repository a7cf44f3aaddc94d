package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"donor-crm/internal/api/dto"
	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
	"donor-crm/internal/pkg/logger"
	"donor-crm/internal/report"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReportService interface {
	Create(ctx context.Context, caller domain.Caller, req dto.ReportRequest) (*domain.ReportDefinition, error)
	Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.ReportDefinition, error)
	List(ctx context.Context, caller domain.Caller, opts ports.ListOptions) ([]domain.ReportDefinition, error)
	Update(ctx context.Context, caller domain.Caller, id uuid.UUID, req dto.UpdateReportRequest) (*domain.ReportDefinition, error)
	Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error

	Run(ctx context.Context, caller domain.Caller, id uuid.UUID) ([]report.Table, error)
	RunAdhoc(ctx context.Context, caller domain.Caller, req dto.ReportRequest) ([]report.Table, error)
	Export(ctx context.Context, caller domain.Caller, id uuid.UUID, format string, w io.Writer) error
}

type reportService struct {
	reports ports.ReportRepository
	engine  *report.Engine
	log     *logger.Logger
}

func NewReportService(reports ports.ReportRepository, engine *report.Engine, log *logger.Logger) ReportService {
	return &reportService{
		reports: reports,
		engine:  engine,
		log:     log.Component("report_service"),
	}
}

func (s *reportService) Create(ctx context.Context, caller domain.Caller, req dto.ReportRequest) (*domain.ReportDefinition, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	def := buildDefinition(caller, req)
	if err := validateStruct(def); err != nil {
		return nil, err
	}

	if err := s.reports.Create(ctx, def); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.log.Info("Report created", "report_id", def.ID, "type", def.Type, "organization_id", def.OrganizationID)
	return def, nil
}

func (s *reportService) Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.ReportDefinition, error) {
	def, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(def.OrganizationID) {
		return nil, domain.ErrForbidden
	}
	return def, nil
}

func (s *reportService) List(ctx context.Context, caller domain.Caller, opts ports.ListOptions) ([]domain.ReportDefinition, error) {
	orgID := uuid.Nil
	if !caller.IsPrivileged() {
		orgID = caller.OrganizationID
	}
	return s.reports.List(ctx, orgID, opts)
}

func (s *reportService) Update(ctx context.Context, caller domain.Caller, id uuid.UUID, req dto.UpdateReportRequest) (*domain.ReportDefinition, error) {
	def, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		def.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		def.Type = *req.Type
	}
	if req.Filters != nil {
		def.Filters = datatypes.NewJSONType(*req.Filters)
	}
	if req.Fields != nil {
		def.Fields = *req.Fields
	}
	if req.Components != nil {
		def.Components = *req.Components
	}
	if err := validateStruct(def); err != nil {
		return nil, err
	}

	if err := s.reports.Update(ctx, def); err != nil {
		return nil, fmt.Errorf("update report %s: %w", id, err)
	}
	return def, nil
}

func (s *reportService) Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	return s.reports.Delete(ctx, id)
}

func (s *reportService) Run(ctx context.Context, caller domain.Caller, id uuid.UUID) ([]report.Table, error) {
	def, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, def, caller, report.ModePreview)
}

func (s *reportService) RunAdhoc(ctx context.Context, caller domain.Caller, req dto.ReportRequest) ([]report.Table, error) {
	def := buildDefinition(caller, req)
	// ad hoc runs may span organizations, so only the components are checked
	for i := range def.Components {
		if err := validateStruct(&def.Components[i]); err != nil {
			return nil, err
		}
	}
	return s.engine.Run(ctx, def, caller, report.ModePreview)
}

func (s *reportService) Export(ctx context.Context, caller domain.Caller, id uuid.UUID, format string, w io.Writer) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != report.FormatCSV {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}

	def, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	tables, err := s.engine.Run(ctx, def, caller, report.ModeExport)
	if err != nil {
		return err
	}
	return report.Export(w, format, tables)
}

// buildDefinition places the request in the caller's organization unless a
// privileged caller names another one.
func buildDefinition(caller domain.Caller, req dto.ReportRequest) *domain.ReportDefinition {
	orgID := caller.OrganizationID
	if caller.IsPrivileged() && req.OrganizationID != uuid.Nil {
		orgID = req.OrganizationID
	}
	typ := req.Type
	if typ == "" {
		typ = domain.ReportDonation
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Ad hoc report"
	}
	fields := req.Fields
	if fields == nil {
		fields = []string{}
	}
	components := req.Components
	if components == nil {
		components = []domain.ReportComponent{}
	}
	return &domain.ReportDefinition{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Type:           typ,
		Filters:        datatypes.NewJSONType(req.Filters),
		Fields:         fields,
		Components:     components,
		CreatedBy:      caller.UserID,
	}
}
