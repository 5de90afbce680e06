package api

// ValidationResult collects all problems found by a validation pass
// rather than failing on the first
type ValidationResult struct {
	Errors []string `json:"errors"`
	Valid  bool     `json:"valid"`
}

// NewValidationResult creates a passing result with no errors
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true, Errors: []string{}}
}

// AddError appends a problem and marks the result invalid
func (r *ValidationResult) AddError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}
