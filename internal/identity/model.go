package identity

import "time"

// AnonymousUser is a lightweight identity bound to a browser session cookie.
// No credentials are involved; the row exists so analyses can be grouped into
// a per-visitor history.
type AnonymousUser struct {
	ID         string
	SessionID  string
	CreatedAt  time.Time
	LastSeenAt time.Time
}
