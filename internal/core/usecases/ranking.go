package usecases

import (
	"sort"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
)

// orderByDistance sorts candidates by the matrix distances, ascending.
// Ties keep the order the service returned them in. Candidates the matrix
// did not mention follow in input order.
func orderByDistance(candidates []domain.GeoPoint, routes []ports.MatrixRoute) []domain.GeoPoint {
	valid := make([]ports.MatrixRoute, 0, len(routes))
	used := make(map[int]bool, len(routes))
	for _, r := range routes {
		if r.TargetID < 1 || r.TargetID > len(candidates) || used[r.TargetID] {
			continue
		}
		used[r.TargetID] = true
		valid = append(valid, r)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Distance < valid[j].Distance
	})

	ranked := make([]domain.GeoPoint, 0, len(candidates))
	for _, r := range valid {
		ranked = append(ranked, candidates[r.TargetID-1])
	}
	for i, c := range candidates {
		if !used[i+1] {
			ranked = append(ranked, c)
		}
	}
	return ranked
}
