package storage

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"draftsync/models"
	"draftsync/utils"

	"go.etcd.io/bbolt"
)

// RecipientStorage resolves and stores message recipients, including group conversations
type RecipientStorage struct {
	db *bbolt.DB
}

// NewRecipientStorage creates a new recipient storage instance
func NewRecipientStorage(db *bbolt.DB) *RecipientStorage {
	return &RecipientStorage{db: db}
}

// createRecipient allocates a recipient row inside an open transaction
func createRecipient(tx *bbolt.Tx, typ models.RecipientType, typeID int64) (*models.Recipient, error) {
	b := tx.Bucket(recipientsBucket)
	id, err := nextID(b)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate recipient id: %w", err)
	}

	r := &models.Recipient{ID: id, Type: typ, TypeID: typeID}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipient: %w", err)
	}
	if err := b.Put(itob(id), data); err != nil {
		return nil, err
	}
	return r, nil
}

// GetRecipient retrieves a recipient by id
func (s *RecipientStorage) GetRecipient(id int64) (*models.Recipient, error) {
	var r models.Recipient
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(recipientsBucket).Get(itob(id))
		if data == nil {
			return fmt.Errorf("recipient %d not found", id)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecipientForUserProfiles returns the recipient for a direct message from sender
// to users. The sender is always a participant: one participant addresses the
// sender's own personal recipient, two address the other user's, and three or
// more address a huddle that is created on first use.
func (s *RecipientStorage) RecipientForUserProfiles(users []*models.User, sender *models.User) (*models.Recipient, error) {
	if err := validateRecipientUsers(users); err != nil {
		return nil, err
	}

	participants := map[int64]*models.User{sender.ID: sender}
	for _, u := range users {
		participants[u.ID] = u
	}

	switch len(participants) {
	case 1:
		return sender.Recipient(), nil
	case 2:
		for id, u := range participants {
			if id != sender.ID {
				return u.Recipient(), nil
			}
		}
	}

	ids := make([]int64, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	return s.huddleRecipient(ids)
}

func validateRecipientUsers(users []*models.User) error {
	realms := make(map[int64]bool)
	for _, u := range users {
		if !u.IsActive {
			return utils.ValidationError("recipient_user_inactive", fmt.Sprintf("'%s' is no longer using this server.", u.Email)).
				WithData(map[string]interface{}{"Email": u.Email})
		}
		realms[u.RealmID] = true
		if len(realms) >= 2 {
			return utils.ValidationError("recipient_cross_realm", "You can't send private messages outside of your organization.")
		}
	}
	return nil
}

// HuddleHash identifies a group conversation by its sorted member ids
func HuddleHash(userIDs []int64) string {
	sorted := append([]int64(nil), userIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ",")))
	return fmt.Sprintf("%x", sum)
}

// huddleRecipient gets or creates the huddle for exactly these members
func (s *RecipientStorage) huddleRecipient(userIDs []int64) (*models.Recipient, error) {
	hash := HuddleHash(userIDs)
	var recipient *models.Recipient

	err := s.db.Update(func(tx *bbolt.Tx) error {
		hashes := tx.Bucket(huddleHashesBucket)
		huddles := tx.Bucket(huddlesBucket)

		if existing := hashes.Get([]byte(hash)); existing != nil {
			h, err := loadHuddle(huddles, btoi(existing))
			if err != nil {
				return err
			}
			recipient = &models.Recipient{ID: h.RecipientID, Type: models.RecipientHuddle, TypeID: h.ID}
			return nil
		}

		id, err := nextID(huddles)
		if err != nil {
			return fmt.Errorf("failed to allocate huddle id: %w", err)
		}
		r, err := createRecipient(tx, models.RecipientHuddle, id)
		if err != nil {
			return err
		}

		members := append([]int64(nil), userIDs...)
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		h := &models.Huddle{ID: id, Hash: hash, UserIDs: members, RecipientID: r.ID}
		data, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("failed to marshal huddle: %w", err)
		}
		if err := huddles.Put(itob(id), data); err != nil {
			return err
		}
		if err := hashes.Put([]byte(hash), itob(id)); err != nil {
			return err
		}
		recipient = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipient, nil
}

// HuddleUserIDs returns the members of a huddle recipient
func (s *RecipientStorage) HuddleUserIDs(recipient *models.Recipient) ([]int64, error) {
	if recipient.Type != models.RecipientHuddle {
		return nil, fmt.Errorf("recipient %d is not a huddle", recipient.ID)
	}

	var members []int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		h, err := loadHuddle(tx.Bucket(huddlesBucket), recipient.TypeID)
		if err != nil {
			return err
		}
		members = h.UserIDs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func loadHuddle(b *bbolt.Bucket, id int64) (*models.Huddle, error) {
	data := b.Get(itob(id))
	if data == nil {
		return nil, fmt.Errorf("huddle %d not found", id)
	}
	var h models.Huddle
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal huddle: %w", err)
	}
	return &h, nil
}
