package models

import "time"

// User represents an account within a realm (organization)
type User struct {
	ID           int64     `json:"id"`
	RealmID      int64     `json:"realm_id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	RecipientID  int64     `json:"recipient_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoginAt  time.Time `json:"last_login_at,omitempty"`

	EnableDraftsSynchronization bool `json:"enable_drafts_synchronization"`
}

// Recipient returns the personal recipient that addresses this user
func (u *User) Recipient() *Recipient {
	return &Recipient{ID: u.RecipientID, Type: RecipientPersonal, TypeID: u.ID}
}
