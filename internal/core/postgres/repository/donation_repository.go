package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type donationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a new instance of DonationRepository
func NewDonationRepository(db *gorm.DB) ports.DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, donation *domain.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *donationRepository) Find(ctx context.Context, match domain.DonationMatch, limit int) ([]domain.Donation, error) {
	q := applyMatch(r.db.WithContext(ctx).Table("donations AS d").Select("d.*"), match)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var donations []domain.Donation
	err := q.Order("d.donation_date DESC").Find(&donations).Error
	return donations, err
}

// aggregateRecord is one scanned bucket
type aggregateRecord struct {
	GroupKey    sql.NullString
	SumAmount   float64
	RecordCount int64
	DonorCount  int64
}

// sortColumns maps result fields onto the aggregate's select aliases
var sortColumns = map[string]string{
	"_id":        "group_key",
	"key":        "group_key",
	"sumAmount":  "sum_amount",
	"count":      "record_count",
	"donorCount": "donor_count",
}

func (r *donationRepository) Aggregate(ctx context.Context, q domain.AggregateQuery) ([]domain.AggregateRow, error) {
	keyExpr := r.groupExpr(q.Group)

	selects := []string{
		"COALESCE(SUM(d.amount), 0) AS sum_amount",
		"COUNT(*) AS record_count",
		"COUNT(DISTINCT d.donor_id) AS donor_count",
	}
	if keyExpr != "" {
		selects = append([]string{keyExpr + " AS group_key"}, selects...)
	}

	tx := r.db.WithContext(ctx).Table("donations AS d").Select(strings.Join(selects, ", "))
	if q.Group.JoinsDonor() {
		tx = tx.Joins("LEFT JOIN contacts AS c ON c.id = d.donor_id")
	}
	tx = applyMatch(tx, q.Match)
	if keyExpr != "" {
		tx = tx.Group(keyExpr)
	}
	for _, s := range q.Sort {
		col, ok := sortColumns[s.Field]
		if !ok || (col == "group_key" && keyExpr == "") {
			continue
		}
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: s.Desc()})
	}

	var records []aggregateRecord
	if err := tx.Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("aggregate donations by %s: %w", q.Group, err)
	}

	rows := make([]domain.AggregateRow, 0, len(records))
	for _, rec := range records {
		// an ungrouped aggregate over nothing still yields one row
		if keyExpr == "" && rec.RecordCount == 0 {
			continue
		}
		rows = append(rows, domain.AggregateRow{
			Key:        rec.GroupKey.String,
			HasKey:     rec.GroupKey.Valid,
			SumAmount:  rec.SumAmount,
			Count:      rec.RecordCount,
			DonorCount: rec.DonorCount,
		})
	}
	return rows, nil
}

func (r *donationRepository) groupExpr(g domain.GroupStrategy) string {
	switch g {
	case domain.GroupByMonth:
		if isSQLite(r.db) {
			return "strftime('%Y-%m', d.donation_date)"
		}
		return "to_char(d.donation_date AT TIME ZONE 'UTC', 'YYYY-MM')"
	case domain.GroupByCampaign:
		return "CAST(d.campaign_id AS TEXT)"
	case domain.GroupByOrganization:
		return "CAST(d.organization_id AS TEXT)"
	case domain.GroupByPaymentMethod:
		return "d.payment_method"
	case domain.GroupByCity:
		return "c.city"
	case domain.GroupByDonorType:
		return "c.donor_type"
	default:
		return ""
	}
}

func applyMatch(tx *gorm.DB, m domain.DonationMatch) *gorm.DB {
	if m.Status != "" {
		tx = tx.Where("d.status = ?", m.Status)
	}
	if m.OrganizationID != nil {
		tx = tx.Where("d.organization_id = ?", *m.OrganizationID)
	}
	if m.CampaignID != nil {
		tx = tx.Where("d.campaign_id = ?", *m.CampaignID)
	}
	if m.PaymentMethod != "" {
		tx = tx.Where("d.payment_method = ?", m.PaymentMethod)
	}
	if m.Type != "" {
		tx = tx.Where("d.type = ?", m.Type)
	}
	if m.From != nil {
		tx = tx.Where("d.donation_date >= ?", *m.From)
	}
	if m.To != nil {
		tx = tx.Where("d.donation_date <= ?", *m.To)
	}
	if s := strings.TrimSpace(m.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where(
			"d.donor_id IN (SELECT id FROM contacts WHERE LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?)",
			like, like, like,
		)
	}
	return tx
}
