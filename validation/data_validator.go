// Package validation provides boundary validation for the medications catalog.
// Every loosely-typed input is checked here before it reaches the catalog core.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
)

const (
	// MaxInputLength bounds free-text search terms
	MaxInputLength = 100
	// MaxRxcuiLength matches the width of the rxcui column
	MaxRxcuiLength = 50
	// MaxNameLength bounds display strings
	MaxNameLength = 2000
)

// ErrMissingRequiredFields is returned when a candidate lacks rxcui or name.
var ErrMissingRequiredFields = fmt.Errorf("%w: missing required fields", entities.ErrValidation)

// Substrings refused in free-text input
var (
	// strings.Contains is faster than regex for these simple substrings
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:",
	}
)

var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() *DataValidatorImpl {
	return &DataValidatorImpl{}
}

// ValidateInput validates a free-text search term
func (v *DataValidatorImpl) ValidateInput(input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return fmt.Errorf("%w: input cannot be empty", entities.ErrValidation)
	}

	if utf8.RuneCountInString(input) > MaxInputLength {
		return fmt.Errorf("%w: input too long (max %d characters)", entities.ErrValidation, MaxInputLength)
	}

	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%w: input contains dangerous pattern", entities.ErrValidation)
		}
	}

	// Drug names carry arbitrary punctuation ("Tylenol #3", "aspirin*",
	// "acetaminophen & codeine"); only control characters are refused and at
	// least one letter or digit is required.
	hasWord := false
	for _, r := range input {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: input contains control characters", entities.ErrValidation)
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			hasWord = true
		}
	}
	if !hasWord {
		return fmt.Errorf("%w: input has no letters or digits", entities.ErrValidation)
	}

	return nil
}

// ValidateCandidate checks the strict shape required by the catalog:
// non-empty rxcui and name, optional synonym.
func (v *DataValidatorImpl) ValidateCandidate(c entities.CandidateRecord) error {
	if strings.TrimSpace(c.Rxcui) == "" || strings.TrimSpace(c.Name) == "" {
		return ErrMissingRequiredFields
	}

	if len(c.Rxcui) > MaxRxcuiLength {
		return fmt.Errorf("%w: rxcui longer than %d characters", entities.ErrValidation, MaxRxcuiLength)
	}

	if utf8.RuneCountInString(c.Name) > MaxNameLength || utf8.RuneCountInString(c.Synonym) > MaxNameLength {
		return fmt.Errorf("%w: name or synonym longer than %d characters", entities.ErrValidation, MaxNameLength)
	}

	return nil
}

// ValidateID parses a record id from a path segment
func (v *DataValidatorImpl) ValidateID(input string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be a number", entities.ErrValidation)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: id must be positive", entities.ErrValidation)
	}
	return id, nil
}

// ParsePage parses a 1-based page number. Missing, non-numeric and
// values below 1 all yield page 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return entities.DefaultPage
	}
	return page
}

// ParseLimit parses a page size. Missing, non-numeric and non-positive
// values yield the default size.
func ParseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return entities.DefaultLimit
	}
	return limit
}
