package services

// Session is the caller identity resolved from a bearer token once per request.
type Session struct {
	UserID  uint
	TokenID string
}
