package service

import (
	"sort"
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// MatchTAT buckets closed calls into TAT tiers. Each call is counted once, in the
// tightest tier whose day limit covers its turnaround. Calls slower than every tier
// and calls without a close date are not paid.
func MatchTAT(categories []domain.TATCategory, calls []domain.ServiceCall) []domain.ClaimLine {
	tiers := make([]domain.TATCategory, len(categories))
	copy(tiers, categories)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Days < tiers[j].Days })

	buckets := make([][]string, len(tiers))
	for _, call := range calls {
		if call.ClosedDate == nil {
			continue
		}
		taken := calendarDays(call.CallDate, *call.ClosedDate)
		for i, tier := range tiers {
			if taken <= tier.Days {
				buckets[i] = append(buckets[i], call.ID)
				break
			}
		}
	}

	lines := make([]domain.ClaimLine, 0, len(tiers))
	for i, tier := range tiers {
		if len(buckets[i]) == 0 {
			continue
		}
		lines = append(lines, domain.ClaimLine{
			TATCategoryID: tier.ID,
			CategoryName:  tier.Name,
			Days:          tier.Days,
			CallIDs:       buckets[i],
			Rate:          tier.Amount,
			Amount:        float64(len(buckets[i])) * tier.Amount,
		})
	}
	return lines
}

// calendarDays counts date boundaries crossed between two instants in from's location.
func calendarDays(from, to time.Time) int {
	to = to.In(from.Location())
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
