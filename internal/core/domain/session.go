package domain

import "time"

// Session is the decoded content of a verified session token.
type Session struct {
	SubjectID int64
	Username  string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal returns the identity the session authenticates.
func (s *Session) Principal() *Principal {
	return &Principal{UserID: s.SubjectID, Username: s.Username, Role: s.Role}
}
