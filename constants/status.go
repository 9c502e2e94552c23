package constants

// RunStatus is the outcome recorded for each processed document.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	StatusQueued    RunStatus = "QUEUED"
	StatusRunning   RunStatus = "RUNNING"
	StatusSucceeded RunStatus = "SUCCEEDED" // all fields extracted, nothing flagged
	StatusReview    RunStatus = "REVIEW"    // extracted, but queued for manual review
	StatusFailed    RunStatus = "FAILED"    // text could not be obtained or processing panicked
)
