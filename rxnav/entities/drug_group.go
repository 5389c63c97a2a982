package entities

// Term types of the concept groups a user can save: branded and clinical
// drug formulations.
const (
	TtyBrandedDrug  = "SBD"
	TtyClinicalDrug = "SCD"
)

// DrugsResponse is the body of a drugs.json lookup. DrugGroup is nil when the
// service answers with an empty object.
type DrugsResponse struct {
	DrugGroup *DrugGroup `json:"drugGroup"`
}

// DrugGroup holds every concept group matched by the queried name.
type DrugGroup struct {
	Name         *string        `json:"name"`
	ConceptGroup []ConceptGroup `json:"conceptGroup"`
}

// ConceptGroup is a set of concepts sharing one term type (tty).
type ConceptGroup struct {
	Tty               string            `json:"tty"`
	ConceptProperties []ConceptProperty `json:"conceptProperties"`
}

// ConceptProperty is a single concept as returned by the service.
type ConceptProperty struct {
	Rxcui    string `json:"rxcui"`
	Name     string `json:"name"`
	Synonym  string `json:"synonym"`
	Tty      string `json:"tty"`
	Language string `json:"language"`
	Suppress string `json:"suppress"`
	UmlsCui  string `json:"umlscui"`
}
