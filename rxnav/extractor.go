package rxnav

import (
	"github.com/rxcatalog/medications-catalog/entities"
	rxentities "github.com/rxcatalog/medications-catalog/rxnav/entities"
)

// IsFormulationGroup reports whether a concept group carries concrete
// products (SBD or SCD) rather than ingredients or dose forms.
func IsFormulationGroup(tty string) bool {
	return tty == rxentities.TtyBrandedDrug || tty == rxentities.TtyClinicalDrug
}

// ExtractCandidates flattens the formulation groups of a lookup response into
// candidates, keeping group order and within-group order. A nil, empty or
// unmatched response yields an empty, non-nil slice.
func ExtractCandidates(resp *rxentities.DrugsResponse) []entities.CandidateRecord {
	candidates := make([]entities.CandidateRecord, 0)
	if resp == nil || resp.DrugGroup == nil {
		return candidates
	}

	for _, group := range resp.DrugGroup.ConceptGroup {
		if !IsFormulationGroup(group.Tty) {
			continue
		}
		for _, prop := range group.ConceptProperties {
			// Synonym defaulting happens at persistence time
			candidates = append(candidates, entities.CandidateRecord{
				Rxcui:   prop.Rxcui,
				Name:    prop.Name,
				Synonym: prop.Synonym,
			})
		}
	}

	return candidates
}
