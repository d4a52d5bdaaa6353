package quote

import "QuoteChat/entity"

// Step collects one field of the quote.
type Step interface {
	// Field returns the collected field this step fills.
	Field() entity.Field

	// Prompt asks for the value as free text.
	Prompt() string

	// Invalid is the corrective prompt sent when Validate fails.
	Invalid() string

	// Validate applies the field rule to trimmed input.
	Validate(text string) bool

	// Candidate returns a plausible value from the customer profile, or ""
	// when the field has no profile source.
	Candidate(profile *entity.Profile) string
}

// Workflow is the ordered list of steps.
type Workflow interface {
	Steps() []Step
}
