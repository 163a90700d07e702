package models

import "time"

// Stream is a channel within a realm
type Stream struct {
	ID          int64     `json:"id"`
	RealmID     int64     `json:"realm_id"`
	Name        string    `json:"name"`
	InviteOnly  bool      `json:"invite_only"`
	RecipientID int64     `json:"recipient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recipient returns the recipient that addresses this stream
func (s *Stream) Recipient() *Recipient {
	return &Recipient{ID: s.RecipientID, Type: RecipientStream, TypeID: s.ID}
}

// Subscription records a user's membership in a stream
type Subscription struct {
	UserID   int64 `json:"user_id"`
	StreamID int64 `json:"stream_id"`
	Active   bool  `json:"active"`
}
