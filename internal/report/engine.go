package report

import (
	"context"
	"fmt"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
	"donor-crm/internal/metrics"
	"donor-crm/internal/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	KeyAll                = "All"
	UnknownCampaign       = "Unknown"
	SelectedFields        = "Selected Fields"
	SelectedFieldsPreview = "Selected Fields (preview)"
)

// Row is one result line keyed by column name
type Row map[string]any

// Table is one component's result
type Table struct {
	ID      string               `json:"id,omitempty"`
	Title   string               `json:"title"`
	Kind    domain.ComponentKind `json:"kind"`
	Columns []string             `json:"columns"`
	Rows    []Row                `json:"rows"`
}

// Mode selects how much of the selected-fields table is returned
type Mode int

const (
	ModePreview Mode = iota
	ModeExport
)

type Options struct {
	DetailLimit int
	PreviewRows int
}

type Engine struct {
	donations ports.DonationRepository
	contacts  ports.ContactRepository
	orgs      ports.OrganizationRepository
	campaigns ports.CampaignRepository
	log       *logger.Logger
	metrics   *metrics.Metrics

	detailLimit int
	previewRows int
}

func NewEngine(
	donations ports.DonationRepository,
	contacts ports.ContactRepository,
	orgs ports.OrganizationRepository,
	campaigns ports.CampaignRepository,
	log *logger.Logger,
	m *metrics.Metrics,
	opts Options,
) *Engine {
	if opts.DetailLimit <= 0 {
		opts.DetailLimit = 2000
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 50
	}
	return &Engine{
		donations:   donations,
		contacts:    contacts,
		orgs:        orgs,
		campaigns:   campaigns,
		log:         log.Component("report"),
		metrics:     m,
		detailLimit: opts.DetailLimit,
		previewRows: opts.PreviewRows,
	}
}

// Run executes every component of def as caller, then the selected-fields
// table when def lists fields.
func (e *Engine) Run(ctx context.Context, def *domain.ReportDefinition, caller domain.Caller, mode Mode) ([]Table, error) {
	ctx, span := otel.Tracer("donor-crm/report").Start(ctx, "report.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("report.type", string(def.Type)),
		attribute.Int("report.components", len(def.Components)),
	)

	base := def.Filters.Data()
	tables := make([]Table, 0, len(def.Components)+1)
	for _, comp := range def.Components {
		table, err := e.runComponent(ctx, def.Type, base, comp, caller)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "component")
			return nil, fmt.Errorf("component %q: %w", comp.Title, err)
		}
		tables = append(tables, table)
	}

	if columns := KnownFields(def.Fields); len(columns) > 0 {
		rows, err := e.selectedFields(ctx, BuildDonationMatch(base, caller), columns)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "selected fields")
			return nil, err
		}
		title := SelectedFields
		if mode == ModePreview {
			title = SelectedFieldsPreview
			if len(rows) > e.previewRows {
				rows = rows[:e.previewRows]
			}
		}
		tables = append(tables, Table{Title: title, Kind: domain.ComponentTable, Columns: columns, Rows: rows})
	}

	e.metrics.ReportRun(string(def.Type))
	return tables, nil
}

func (e *Engine) runComponent(ctx context.Context, reportType domain.ReportType, base domain.ReportFilters, comp domain.ReportComponent, caller domain.Caller) (Table, error) {
	d := ResolveDomain(comp.QueryKey, reportType)
	group := ResolveGroup(d, comp.GroupBy)
	match := BuildDonationMatch(base.Merge(comp.Filters), caller)

	aggs, err := e.donations.Aggregate(ctx, domain.AggregateQuery{Match: match, Group: group, Sort: comp.Sort})
	if err != nil {
		return Table{}, err
	}

	kind := comp.Kind
	if kind == "" {
		kind = domain.ComponentTable
	}
	table := Table{ID: comp.ID, Title: comp.Title, Kind: kind}

	switch d {
	case domain.ReportDonor:
		table.Columns = []string{"key", "donorCount", "sumAmount"}
		table.Rows = make([]Row, 0, len(aggs))
		for _, a := range aggs {
			table.Rows = append(table.Rows, Row{"key": groupKey(a, group), "donorCount": a.DonorCount, "sumAmount": a.SumAmount})
		}

	case domain.ReportCampaign:
		names, err := e.campaigns.NamesByIDs(ctx, keyIDs(aggs))
		if err != nil {
			return Table{}, fmt.Errorf("resolve campaign names: %w", err)
		}
		table.Columns = []string{"key", "sumAmount", "count", "campaignName"}
		table.Rows = make([]Row, 0, len(aggs))
		for _, a := range aggs {
			table.Rows = append(table.Rows, Row{
				"key":          groupKey(a, group),
				"sumAmount":    a.SumAmount,
				"count":        a.Count,
				"campaignName": campaignName(a, names),
			})
		}
		if sortsOn(comp.Sort, FieldCampaignName) {
			sortRows(table.Rows, comp.Sort)
		}

	default:
		var orgNames map[uuid.UUID]string
		if group == domain.GroupByOrganization {
			if orgNames, err = e.orgs.NamesByIDs(ctx, keyIDs(aggs)); err != nil {
				return Table{}, fmt.Errorf("resolve organization names: %w", err)
			}
		}
		table.Columns = []string{"key"}
		for _, metric := range []string{domain.MetricSumAmount, domain.MetricCount} {
			if comp.WantsMetric(metric) {
				table.Columns = append(table.Columns, metric)
			}
		}
		table.Rows = make([]Row, 0, len(aggs))
		for _, a := range aggs {
			row := Row{"key": groupKey(a, group)}
			if orgNames != nil && a.HasKey {
				row["key"] = lookupName(a.Key, orgNames)
			}
			if comp.WantsMetric(domain.MetricSumAmount) {
				row[domain.MetricSumAmount] = a.SumAmount
			}
			if comp.WantsMetric(domain.MetricCount) {
				row[domain.MetricCount] = a.Count
			}
			table.Rows = append(table.Rows, row)
		}
	}

	return table, nil
}

// groupKey is "All" for an ungrouped result and nil for a null bucket
func groupKey(a domain.AggregateRow, group domain.GroupStrategy) any {
	if group == domain.GroupNone {
		return KeyAll
	}
	if !a.HasKey {
		return nil
	}
	return a.Key
}

func campaignName(a domain.AggregateRow, names map[uuid.UUID]string) string {
	if !a.HasKey {
		return UnknownCampaign
	}
	return lookupName(a.Key, names)
}

// lookupName falls back to the raw key when no name is known
func lookupName(key string, names map[uuid.UUID]string) string {
	if id, err := uuid.Parse(key); err == nil {
		if name, ok := names[id]; ok && name != "" {
			return name
		}
	}
	return key
}

func keyIDs(aggs []domain.AggregateRow) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(aggs))
	for _, a := range aggs {
		if !a.HasKey {
			continue
		}
		if id, err := uuid.Parse(a.Key); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
