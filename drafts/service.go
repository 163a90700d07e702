// Package drafts validates, normalizes and stores message drafts synced from clients.
package drafts

import (
	"errors"
	"sort"

	"draftsync/models"
	"draftsync/utils"
)

// Store persists drafts. Every lookup is scoped to the owning user.
type Store interface {
	// CreateDrafts inserts all drafts in one transaction and assigns their IDs
	CreateDrafts(drafts []*models.Draft) error
	// GetDraft returns models.ErrDraftNotFound unless draftID belongs to userID
	GetDraft(userID, draftID int64) (*models.Draft, error)
	UpdateDraft(draft *models.Draft) error
	DeleteDraft(userID, draftID int64) error
	// ListDrafts returns the user's drafts by ascending last edit time
	ListDrafts(userID int64) ([]*models.Draft, error)
	DeleteAllDrafts(userID int64) error
}

// PreferenceStore persists the drafts synchronization flag alone
type PreferenceStore interface {
	SetDraftsSynchronization(userID int64, enabled bool) error
}

// HuddleMembers returns the member ids of a group conversation recipient
type HuddleMembers interface {
	HuddleUserIDs(recipient *models.Recipient) ([]int64, error)
}

// DraftList is the result of listing a user's drafts
type DraftList struct {
	Count  int                `json:"count"`
	Drafts []models.DraftDict `json:"drafts"`
}

// Service implements the draft operations
type Service struct {
	store      Store
	prefs      PreferenceStore
	normalizer *Normalizer
	huddles    HuddleMembers
}

// NewService creates a draft service
func NewService(store Store, prefs PreferenceStore, normalizer *Normalizer, huddles HuddleMembers) *Service {
	return &Service{
		store:      store,
		prefs:      prefs,
		normalizer: normalizer,
		huddles:    huddles,
	}
}

// ListDrafts returns every draft owned by user, oldest edit first
func (s *Service) ListDrafts(user *models.User) (*DraftList, error) {
	if err := RequireSyncEnabled(user); err != nil {
		return nil, err
	}

	stored, err := s.store.ListDrafts(user.ID)
	if err != nil {
		return nil, utils.InternalServerError("Failed to list drafts", err)
	}

	list := &DraftList{Count: len(stored), Drafts: make([]models.DraftDict, 0, len(stored))}
	for _, d := range stored {
		dict, err := s.toDict(d)
		if err != nil {
			return nil, utils.InternalServerError("Failed to load draft recipient", err)
		}
		list.Drafts = append(list.Drafts, dict)
	}
	return list, nil
}

// CreateDrafts normalizes every payload and stores them together. One bad
// payload rejects the whole batch. IDs are returned in payload order.
func (s *Service) CreateDrafts(user *models.User, payloads []*models.DraftPayload) ([]int64, error) {
	if err := RequireSyncEnabled(user); err != nil {
		return nil, err
	}

	batch := make([]*models.Draft, 0, len(payloads))
	for _, p := range payloads {
		normalized, err := s.normalizer.Normalize(p, user)
		if err != nil {
			return nil, err
		}
		batch = append(batch, models.NewDraft(user.ID, normalized))
	}

	if err := s.store.CreateDrafts(batch); err != nil {
		return nil, utils.InternalServerError("Failed to create drafts", err)
	}

	ids := make([]int64, 0, len(batch))
	for _, d := range batch {
		ids = append(ids, d.ID)
	}
	utils.Log.WithField("user_id", user.ID).Debug("Created %d drafts", len(ids))
	return ids, nil
}

// EditDraft replaces the content, topic, recipient and edit time of one of user's drafts
func (s *Service) EditDraft(user *models.User, draftID int64, p *models.DraftPayload) error {
	if err := RequireSyncEnabled(user); err != nil {
		return err
	}

	draft, err := s.store.GetDraft(user.ID, draftID)
	if err != nil {
		return storeError(err, "Failed to load draft")
	}

	normalized, err := s.normalizer.Normalize(p, user)
	if err != nil {
		return err
	}
	draft.Apply(normalized)

	if err := s.store.UpdateDraft(draft); err != nil {
		return storeError(err, "Failed to update draft")
	}
	return nil
}

// DeleteDraft removes one of user's drafts
func (s *Service) DeleteDraft(user *models.User, draftID int64) error {
	if err := RequireSyncEnabled(user); err != nil {
		return err
	}

	if err := s.store.DeleteDraft(user.ID, draftID); err != nil {
		return storeError(err, "Failed to delete draft")
	}
	return nil
}

// EnableSync turns drafts synchronization on for user
func (s *Service) EnableSync(user *models.User) error {
	if err := s.prefs.SetDraftsSynchronization(user.ID, true); err != nil {
		return utils.InternalServerError("Failed to update settings", err)
	}
	user.EnableDraftsSynchronization = true
	return nil
}

// DisableSync turns drafts synchronization off for user and deletes all of their drafts
func (s *Service) DisableSync(user *models.User) error {
	if err := s.prefs.SetDraftsSynchronization(user.ID, false); err != nil {
		return utils.InternalServerError("Failed to update settings", err)
	}
	user.EnableDraftsSynchronization = false

	if err := s.store.DeleteAllDrafts(user.ID); err != nil {
		return utils.InternalServerError("Failed to delete drafts", err)
	}
	utils.Log.WithField("user_id", user.ID).Info("Drafts synchronization disabled, drafts purged")
	return nil
}

// SetSync applies a settings change to the drafts synchronization flag
func (s *Service) SetSync(user *models.User, enabled bool) error {
	if enabled {
		return s.EnableSync(user)
	}
	return s.DisableSync(user)
}

func (s *Service) toDict(d *models.Draft) (models.DraftDict, error) {
	dict := models.DraftDict{
		ID:        d.ID,
		Type:      models.DraftTypeNone,
		To:        []int64{},
		Topic:     d.Topic,
		Content:   d.Content,
		Timestamp: d.LastEditTime.Unix(),
	}

	r := d.Recipient
	switch {
	case r == nil:
	case r.Type == models.RecipientStream:
		dict.Type = models.DraftTypeStream
		dict.To = []int64{r.TypeID}
	case r.Type == models.RecipientPersonal:
		dict.Type = models.DraftTypePrivate
		dict.To = []int64{r.TypeID}
	default:
		dict.Type = models.DraftTypePrivate
		members, err := s.huddles.HuddleUserIDs(r)
		if err != nil {
			return dict, err
		}
		for _, id := range members {
			if id != d.UserID {
				dict.To = append(dict.To, id)
			}
		}
		sort.Slice(dict.To, func(i, j int) bool { return dict.To[i] < dict.To[j] })
	}
	return dict, nil
}

func storeError(err error, message string) error {
	if errors.Is(err, models.ErrDraftNotFound) {
		return utils.NotFoundError("Draft does not exist", nil).WithMessageID("draft_not_found", nil)
	}
	return utils.InternalServerError(message, err)
}
