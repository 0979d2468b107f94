package domain

// AccessOrigin tags whose account an access event belongs to.
type AccessOrigin string

const (
	OriginPrimary AccessOrigin = "PRIMARY"
	OriginRelated AccessOrigin = "RELATED"
)

// AccessEvent is one login/IP access record for an account.
type AccessEvent struct {
	AccountID  string
	Timestamp  string
	Country    string
	Channel    string
	IPAddress  string
	ResultCode string
}

// AccessRecord is an access event tagged with its origin for the
// concatenated Stage-3 table.
type AccessRecord struct {
	Origin      AccessOrigin
	AccountID   string
	DisplayName string
	Event       AccessEvent
}
