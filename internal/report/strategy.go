package report

import (
	"strings"

	"donor-crm/internal/domain"
)

// ResolveDomain picks the semantic domain of a component: a recognised
// queryKey prefix wins over the report type. Anything unknown is donation.
func ResolveDomain(queryKey string, reportType domain.ReportType) domain.ReportType {
	if prefix, _, ok := strings.Cut(strings.TrimSpace(queryKey), "."); ok {
		if d, known := knownDomain(prefix); known {
			return d
		}
	}
	if d, known := knownDomain(string(reportType)); known {
		return d
	}
	return domain.ReportDonation
}

func knownDomain(s string) (domain.ReportType, bool) {
	switch d := domain.ReportType(strings.ToLower(s)); d {
	case domain.ReportDonation, domain.ReportDonor, domain.ReportCampaign, domain.ReportFinancial:
		return d, true
	}
	return "", false
}

// ResolveGroup maps a component's groupBy onto the strategies its domain allows.
func ResolveGroup(d domain.ReportType, groupBy string) domain.GroupStrategy {
	switch d {
	case domain.ReportDonor:
		if groupBy == "donorType" {
			return domain.GroupByDonorType
		}
		return domain.GroupByCity
	case domain.ReportCampaign:
		return domain.GroupByCampaign
	case domain.ReportFinancial:
		if groupBy == "" {
			return domain.GroupByPaymentMethod
		}
	}
	return donationGroup(groupBy)
}

func donationGroup(groupBy string) domain.GroupStrategy {
	switch groupBy {
	case "month":
		return domain.GroupByMonth
	case "campaign":
		return domain.GroupByCampaign
	case "organization":
		return domain.GroupByOrganization
	case "paymentMethod":
		return domain.GroupByPaymentMethod
	default:
		return domain.GroupNone
	}
}
