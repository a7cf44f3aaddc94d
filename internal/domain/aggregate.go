package domain

import (
	"time"

	"github.com/google/uuid"
)

// GroupStrategy is the closed set of ways donation rows can be bucketed.
type GroupStrategy int

const (
	GroupNone GroupStrategy = iota
	GroupByMonth
	GroupByCampaign
	GroupByOrganization
	GroupByPaymentMethod
	GroupByCity
	GroupByDonorType
)

func (g GroupStrategy) String() string {
	switch g {
	case GroupByMonth:
		return "month"
	case GroupByCampaign:
		return "campaign"
	case GroupByOrganization:
		return "organization"
	case GroupByPaymentMethod:
		return "paymentMethod"
	case GroupByCity:
		return "city"
	case GroupByDonorType:
		return "donorType"
	default:
		return "none"
	}
}

// JoinsDonor reports whether the grouping key lives on the donor contact.
func (g GroupStrategy) JoinsDonor() bool {
	return g == GroupByCity || g == GroupByDonorType
}

// DonationMatch is a resolved donation filter. Nil or empty fields do not filter.
type DonationMatch struct {
	Status         string
	OrganizationID *uuid.UUID
	CampaignID     *uuid.UUID
	PaymentMethod  string
	Type           string
	From           *time.Time
	To             *time.Time
	Search         string
}

type AggregateQuery struct {
	Match DonationMatch
	Group GroupStrategy
	Sort  []SortSpec
}

// AggregateRow is one bucket. HasKey is false for a null group key.
type AggregateRow struct {
	Key        string
	HasKey     bool
	SumAmount  float64
	Count      int64
	DonorCount int64
}
