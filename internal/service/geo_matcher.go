package service

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// Candidate is a technician eligible for a postal code.
type Candidate struct {
	Technician  domain.Technician
	Priority    int
	ActiveCalls int
}

// GeoMatcher resolves a postal code to ranked technicians.
type GeoMatcher struct {
	areas repository.ServiceAreaRepository
	calls repository.CallRepository
}

// NewGeoMatcher constructs the matcher.
func NewGeoMatcher(areas repository.ServiceAreaRepository, calls repository.CallRepository) *GeoMatcher {
	return &GeoMatcher{areas: areas, calls: calls}
}

// FindCandidates returns active, available technicians serving the postal code,
// ordered by area priority then by current open calls. No match is not an error.
func (m *GeoMatcher) FindCandidates(ctx context.Context, postalCode string) ([]Candidate, error) {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode == "" {
		return nil, nil
	}
	matches, err := m.areas.ListCandidates(ctx, postalCode)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, match := range matches {
		ids[i] = match.Technician.ID
	}
	// One query so every candidate's load comes from the same snapshot.
	counts, err := m.calls.CountActiveByTechnicians(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	candidates := make([]Candidate, len(matches))
	for i, match := range matches {
		candidates[i] = Candidate{
			Technician:  match.Technician,
			Priority:    match.Area.Priority,
			ActiveCalls: counts[match.Technician.ID],
		}
	}
	rankCandidates(candidates)
	return candidates, nil
}

func rankCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.ActiveCalls != b.ActiveCalls {
			return a.ActiveCalls < b.ActiveCalls
		}
		if a.Technician.Code != b.Technician.Code {
			return a.Technician.Code < b.Technician.Code
		}
		return a.Technician.ID < b.Technician.ID
	})
}
