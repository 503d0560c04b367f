package domain

// Outcome is the structured result of a state-machine operation.
// Redundant and cancelled operations are not errors; hosts decide how to present them.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"   // The operation changed state
	OutcomeSkipped   Outcome = "skipped"   // Redundant request, nothing changed
	OutcomeCancelled Outcome = "cancelled" // Unwound through cancellation
)
