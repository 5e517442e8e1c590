package session

// Record is the persisted session: the token pair plus the identity fields
// shown in the console chrome. An empty AccessToken means logged out no
// matter what else is set.
type Record struct {
	AccessToken  string
	RefreshToken string
	UserEmail    string
	UserName     string
}

// Store is the durable home of the session record. Implementations must be
// safe for concurrent use. Load returns nil when no session is stored, and
// Clear is idempotent.
type Store interface {
	Load() (*Record, error)
	Save(*Record) error
	Clear() error
}
