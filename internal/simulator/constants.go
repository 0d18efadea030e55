package simulator

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Score generation range.
const (
	minScore = 0
	maxScore = 10000
)

// Request outcomes.
const (
	outcomeOK          = "ok"
	outcomeConflict    = "conflict"
	outcomeRateLimited = "rate_limited"
	outcomeFailed      = "failed"
)

const passwordLength = 16
