package report

import (
	"cmp"
	"slices"

	"donor-crm/internal/domain"
)

// FieldCampaignName is resolved after aggregation, so storage cannot sort on it.
const FieldCampaignName = "campaignName"

func sortsOn(specs []domain.SortSpec, field string) bool {
	for _, s := range specs {
		if s.Field == field {
			return true
		}
	}
	return false
}

// sortRows orders rows by specs in memory. "_id" is an alias of "key".
func sortRows(rows []Row, specs []domain.SortSpec) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		for _, s := range specs {
			field := s.Field
			if field == "_id" {
				field = "key"
			}
			c := compareCells(a[field], b[field])
			if s.Desc() {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// compareCells orders nil first, then numbers, then strings.
func compareCells(a, b any) int {
	ra, rb := cellRank(a), cellRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case float64:
		return cmp.Compare(x, b.(float64))
	case int64:
		return cmp.Compare(x, b.(int64))
	case string:
		return cmp.Compare(x, b.(string))
	}
	return 0
}

func cellRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case int64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}
