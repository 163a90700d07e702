package models

import (
	"errors"
	"time"
)

// DraftType is the message type a draft is addressed as
type DraftType string

const (
	DraftTypeNone    DraftType = ""
	DraftTypePrivate DraftType = "private"
	DraftTypeStream  DraftType = "stream"
)

// ErrDraftNotFound is returned by draft stores when no draft matches (id, owner)
var ErrDraftNotFound = errors.New("draft not found")

// DraftPayload is a client supplied draft dictionary that passed the schema check
type DraftPayload struct {
	Type      DraftType `json:"type"`
	To        []int64   `json:"to"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Timestamp *float64  `json:"timestamp,omitempty"` // Unix seconds, fractional allowed
}

// NormalizedDraft is a sanitized draft with its recipient resolved.
// Recipient is nil for drafts that are not addressed to anyone yet.
type NormalizedDraft struct {
	Recipient    *Recipient
	Topic        string
	Content      string
	LastEditTime time.Time
}

// Draft represents a synced message draft owned by one user
type Draft struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Recipient    *Recipient `json:"recipient,omitempty"`
	Topic        string     `json:"topic"`
	Content      string     `json:"content"`
	LastEditTime time.Time  `json:"last_edit_time"`
}

// Apply overwrites the editable fields of d with a normalized draft
func (d *Draft) Apply(n *NormalizedDraft) {
	d.Recipient = n.Recipient
	d.Topic = n.Topic
	d.Content = n.Content
	d.LastEditTime = n.LastEditTime
}

// NewDraft builds an unsaved draft for userID
func NewDraft(userID int64, n *NormalizedDraft) *Draft {
	d := &Draft{UserID: userID}
	d.Apply(n)
	return d
}

// DraftDict is the client-facing representation of a draft
type DraftDict struct {
	ID        int64     `json:"id"`
	Type      DraftType `json:"type"`
	To        []int64   `json:"to"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp"`
}
