package domain

// Action is one logical command against the lock.
type Action string

const (
	ActionUnlock Action = "unlock"
	ActionLock   Action = "lock"
)

// Verb returns the human action name used in operator messages.
func (a Action) Verb() string {
	if a == ActionLock {
		return "closing"
	}
	return "opening"
}

// Done returns the past-tense form used in success messages.
func (a Action) Done() string {
	if a == ActionLock {
		return "closed"
	}
	return "opened"
}

// Lock statuses reported by the vendor queryStatus endpoint.
const (
	LockStatusLocked   = 1
	LockStatusUnlocked = 2
)

// Lock is one actuator as listed by the vendor cloud.
type Lock struct {
	ID    int64  `json:"lockId"`
	Name  string `json:"lockName"`
	Alias string `json:"lockAlias"`
}

// AttemptResult is the normalized outcome of one actuator call.
// ErrCode 0 means success by vendor convention.
type AttemptResult struct {
	Success bool
	ErrCode int
	ErrMsg  string
	Attempt int // 1-based
}
