package models

// RecipientType says what a Recipient's TypeID refers to
type RecipientType int

const (
	RecipientPersonal RecipientType = 1
	RecipientStream   RecipientType = 2
	RecipientHuddle   RecipientType = 3
)

// Recipient is the canonical address of a message: one user, one stream or one group
type Recipient struct {
	ID     int64         `json:"id"`
	Type   RecipientType `json:"type"`
	TypeID int64         `json:"type_id"`
}

// Huddle is a group direct-message conversation between three or more users
type Huddle struct {
	ID          int64   `json:"id"`
	Hash        string  `json:"hash"`
	UserIDs     []int64 `json:"user_ids"`
	RecipientID int64   `json:"recipient_id"`
}
