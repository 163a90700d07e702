package drafts

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"draftsync/models"
	"draftsync/utils"
)

type memStore struct {
	nextID int64
	drafts map[int64]*models.Draft
	fail   error
}

func newMemStore() *memStore {
	return &memStore{drafts: make(map[int64]*models.Draft)}
}

func (m *memStore) CreateDrafts(drafts []*models.Draft) error {
	if m.fail != nil {
		return m.fail
	}
	for _, d := range drafts {
		m.nextID++
		d.ID = m.nextID
		cp := *d
		m.drafts[d.ID] = &cp
	}
	return nil
}

func (m *memStore) GetDraft(userID, draftID int64) (*models.Draft, error) {
	d, ok := m.drafts[draftID]
	if !ok || d.UserID != userID {
		return nil, models.ErrDraftNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) UpdateDraft(draft *models.Draft) error {
	d, ok := m.drafts[draft.ID]
	if !ok || d.UserID != draft.UserID {
		return models.ErrDraftNotFound
	}
	cp := *draft
	m.drafts[draft.ID] = &cp
	return nil
}

func (m *memStore) DeleteDraft(userID, draftID int64) error {
	d, ok := m.drafts[draftID]
	if !ok || d.UserID != userID {
		return models.ErrDraftNotFound
	}
	delete(m.drafts, draftID)
	return nil
}

func (m *memStore) ListDrafts(userID int64) ([]*models.Draft, error) {
	var out []*models.Draft
	for _, d := range m.drafts {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastEditTime.Equal(out[j].LastEditTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastEditTime.Before(out[j].LastEditTime)
	})
	return out, nil
}

func (m *memStore) DeleteAllDrafts(userID int64) error {
	for id, d := range m.drafts {
		if d.UserID == userID {
			delete(m.drafts, id)
		}
	}
	return nil
}

func (m *memStore) count(userID int64) int {
	n := 0
	for _, d := range m.drafts {
		if d.UserID == userID {
			n++
		}
	}
	return n
}

type memPrefs struct {
	flags map[int64]bool
}

func (p *memPrefs) SetDraftsSynchronization(userID int64, enabled bool) error {
	if p.flags == nil {
		p.flags = make(map[int64]bool)
	}
	p.flags[userID] = enabled
	return nil
}

// directory is a fake for the stream, user and recipient collaborators
type directory struct {
	users    map[int64]*models.User
	streams  map[int64]*models.Stream
	huddles  map[string]*models.Huddle
	nextRcpt int64

	lookedUp    [][]int64
	resolverErr error
}

func newDirectory() *directory {
	return &directory{
		users:    make(map[int64]*models.User),
		streams:  make(map[int64]*models.Stream),
		huddles:  make(map[string]*models.Huddle),
		nextRcpt: 1000,
	}
}

func (d *directory) addUser(id, realm int64, syncEnabled bool) *models.User {
	u := &models.User{
		ID:                          id,
		RealmID:                     realm,
		Email:                       fmt.Sprintf("user%d@example.com", id),
		IsActive:                    true,
		RecipientID:                 100 + id,
		EnableDraftsSynchronization: syncEnabled,
	}
	d.users[id] = u
	return u
}

func (d *directory) addStream(id, realm int64) *models.Stream {
	s := &models.Stream{ID: id, RealmID: realm, Name: fmt.Sprintf("stream-%d", id), RecipientID: 500 + id}
	d.streams[id] = s
	return s
}

func (d *directory) AccessStreamByID(user *models.User, streamID int64) (*models.Stream, *models.Subscription, error) {
	s, ok := d.streams[streamID]
	if !ok || s.RealmID != user.RealmID {
		return nil, nil, utils.ValidationError("stream_invalid_id", "Invalid stream id")
	}
	return s, &models.Subscription{UserID: user.ID, StreamID: streamID, Active: true}, nil
}

func (d *directory) UserProfilesByIDs(ids []int64, realmID int64) ([]*models.User, error) {
	d.lookedUp = append(d.lookedUp, append([]int64(nil), ids...))
	var out []*models.User
	for _, id := range ids {
		u, ok := d.users[id]
		if !ok || u.RealmID != realmID {
			return nil, utils.ValidationError("user_invalid_id", fmt.Sprintf("Invalid user ID %d", id)).
				WithData(map[string]interface{}{"UserID": id})
		}
		out = append(out, u)
	}
	return out, nil
}

func (d *directory) RecipientForUserProfiles(users []*models.User, sender *models.User) (*models.Recipient, error) {
	if d.resolverErr != nil {
		return nil, d.resolverErr
	}
	ids := map[int64]bool{sender.ID: true}
	for _, u := range users {
		ids[u.ID] = true
	}
	switch len(ids) {
	case 1:
		return sender.Recipient(), nil
	case 2:
		for _, u := range users {
			if u.ID != sender.ID {
				return u.Recipient(), nil
			}
		}
	}

	var sorted []int64
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var parts []string
	for _, id := range sorted {
		parts = append(parts, fmt.Sprint(id))
	}
	key := strings.Join(parts, ",")

	h, ok := d.huddles[key]
	if !ok {
		d.nextRcpt++
		h = &models.Huddle{ID: int64(len(d.huddles) + 1), Hash: key, UserIDs: sorted, RecipientID: d.nextRcpt}
		d.huddles[key] = h
	}
	return &models.Recipient{ID: h.RecipientID, Type: models.RecipientHuddle, TypeID: h.ID}, nil
}

func (d *directory) HuddleUserIDs(recipient *models.Recipient) ([]int64, error) {
	for _, h := range d.huddles {
		if h.ID == recipient.TypeID {
			return h.UserIDs, nil
		}
	}
	return nil, errors.New("huddle not found")
}
