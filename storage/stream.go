package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"draftsync/models"
	"draftsync/utils"

	"go.etcd.io/bbolt"
)

// ErrStreamNotFound is returned when no stream matches a lookup
var ErrStreamNotFound = errors.New("stream not found")

// StreamStorage manages streams and subscriptions
type StreamStorage struct {
	db *bbolt.DB
}

// NewStreamStorage creates a new stream storage instance
func NewStreamStorage(db *bbolt.DB) *StreamStorage {
	return &StreamStorage{db: db}
}

func streamNameKey(realmID int64, name string) []byte {
	return []byte(fmt.Sprintf("%d:%s", realmID, strings.ToLower(strings.TrimSpace(name))))
}

func subscriptionKey(streamID, userID int64) []byte {
	return append(itob(streamID), itob(userID)...)
}

// CreateStream creates a stream and its recipient
func (s *StreamStorage) CreateStream(stream *models.Stream) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(streamNamesBucket)
		key := streamNameKey(stream.RealmID, stream.Name)
		if names.Get(key) != nil {
			return fmt.Errorf("stream %q already exists in realm %d", stream.Name, stream.RealmID)
		}

		id, err := nextID(tx.Bucket(streamsBucket))
		if err != nil {
			return fmt.Errorf("failed to allocate stream id: %w", err)
		}
		stream.ID = id

		r, err := createRecipient(tx, models.RecipientStream, id)
		if err != nil {
			return err
		}
		stream.RecipientID = r.ID
		stream.CreatedAt = time.Now().UTC()

		data, err := json.Marshal(stream)
		if err != nil {
			return fmt.Errorf("failed to marshal stream: %w", err)
		}
		if err := tx.Bucket(streamsBucket).Put(itob(id), data); err != nil {
			return err
		}
		return names.Put(key, itob(id))
	})
}

// GetStream retrieves a stream by ID
func (s *StreamStorage) GetStream(streamID int64) (*models.Stream, error) {
	var stream *models.Stream
	err := s.db.View(func(tx *bbolt.Tx) error {
		st, err := loadStream(tx, streamID)
		stream = st
		return err
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Subscribe adds userID to a stream
func (s *StreamStorage) Subscribe(userID, streamID int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := loadStream(tx, streamID); err != nil {
			return err
		}
		sub := models.Subscription{UserID: userID, StreamID: streamID, Active: true}
		data, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("failed to marshal subscription: %w", err)
		}
		return tx.Bucket(subscriptionsBucket).Put(subscriptionKey(streamID, userID), data)
	})
}

// AccessStreamByID returns a stream user may address, with their subscription
// if any. Streams in other realms and invite-only streams the user is not
// subscribed to are reported the same way as missing ones.
func (s *StreamStorage) AccessStreamByID(user *models.User, streamID int64) (*models.Stream, *models.Subscription, error) {
	var (
		stream *models.Stream
		sub    *models.Subscription
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		st, err := loadStream(tx, streamID)
		if err != nil {
			return err
		}
		stream = st

		data := tx.Bucket(subscriptionsBucket).Get(subscriptionKey(streamID, user.ID))
		if data != nil {
			var rec models.Subscription
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal subscription: %w", err)
			}
			if rec.Active {
				sub = &rec
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrStreamNotFound) {
		return nil, nil, err
	}

	if stream == nil || stream.RealmID != user.RealmID || (stream.InviteOnly && sub == nil) {
		return nil, nil, utils.ValidationError("stream_invalid_id", "Invalid stream id")
	}
	return stream, sub, nil
}

func loadStream(tx *bbolt.Tx, streamID int64) (*models.Stream, error) {
	data := tx.Bucket(streamsBucket).Get(itob(streamID))
	if data == nil {
		return nil, ErrStreamNotFound
	}
	var st models.Stream
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}
	return &st, nil
}
