package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"draftsync/models"

	"go.etcd.io/bbolt"
)

// DraftStorage handles draft persistence. Each user's drafts live in their own
// nested bucket under "drafts", so a lookup can only ever see the owner's drafts.
type DraftStorage struct {
	db *bbolt.DB
}

// NewDraftStorage creates a new draft storage instance
func NewDraftStorage(db *bbolt.DB) *DraftStorage {
	return &DraftStorage{db: db}
}

// userDrafts returns the user's draft bucket, or nil if they have never stored one
func userDrafts(tx *bbolt.Tx, userID int64) *bbolt.Bucket {
	return tx.Bucket(draftsBucket).Bucket(itob(userID))
}

// CreateDrafts stores all drafts in a single transaction and assigns their IDs
func (ds *DraftStorage) CreateDrafts(drafts []*models.Draft) error {
	ids := make([]int64, len(drafts))

	err := ds.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(draftsBucket)
		for i, d := range drafts {
			b, err := root.CreateBucketIfNotExists(itob(d.UserID))
			if err != nil {
				return fmt.Errorf("failed to create draft bucket: %w", err)
			}

			id, err := nextID(root)
			if err != nil {
				return fmt.Errorf("failed to allocate draft id: %w", err)
			}

			record := *d
			record.ID = id
			if err := putDraft(b, &record); err != nil {
				return err
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, d := range drafts {
		d.ID = ids[i]
	}
	return nil
}

// GetDraft retrieves a draft owned by userID
func (ds *DraftStorage) GetDraft(userID, draftID int64) (*models.Draft, error) {
	var draft *models.Draft

	err := ds.db.View(func(tx *bbolt.Tx) error {
		b := userDrafts(tx, userID)
		if b == nil {
			return models.ErrDraftNotFound
		}
		d, err := getDraft(b, draftID)
		if err != nil {
			return err
		}
		draft = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return draft, nil
}

// UpdateDraft overwrites an existing draft. The draft must already belong to draft.UserID.
func (ds *DraftStorage) UpdateDraft(draft *models.Draft) error {
	return ds.db.Update(func(tx *bbolt.Tx) error {
		b := userDrafts(tx, draft.UserID)
		if b == nil || b.Get(itob(draft.ID)) == nil {
			return models.ErrDraftNotFound
		}
		return putDraft(b, draft)
	})
}

// DeleteDraft deletes a draft owned by userID
func (ds *DraftStorage) DeleteDraft(userID, draftID int64) error {
	return ds.db.Update(func(tx *bbolt.Tx) error {
		b := userDrafts(tx, userID)
		if b == nil || b.Get(itob(draftID)) == nil {
			return models.ErrDraftNotFound
		}
		if err := b.Delete(itob(draftID)); err != nil {
			return fmt.Errorf("failed to delete draft: %w", err)
		}
		return nil
	})
}

// ListDrafts retrieves all drafts for a user, oldest edit first
func (ds *DraftStorage) ListDrafts(userID int64) ([]*models.Draft, error) {
	drafts := []*models.Draft{}

	err := ds.db.View(func(tx *bbolt.Tx) error {
		b := userDrafts(tx, userID)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var d models.Draft
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("failed to unmarshal draft: %w", err)
			}
			drafts = append(drafts, &d)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Keys iterate in id order, so equal edit times stay ordered by id.
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].LastEditTime.Before(drafts[j].LastEditTime)
	})

	return drafts, nil
}

// DeleteAllDrafts deletes all drafts for a user
func (ds *DraftStorage) DeleteAllDrafts(userID int64) error {
	return ds.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(draftsBucket)
		if root.Bucket(itob(userID)) == nil {
			return nil
		}
		if err := root.DeleteBucket(itob(userID)); err != nil {
			return fmt.Errorf("failed to delete drafts: %w", err)
		}
		return nil
	})
}

func putDraft(b *bbolt.Bucket, d *models.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	return b.Put(itob(d.ID), data)
}

func getDraft(b *bbolt.Bucket, draftID int64) (*models.Draft, error) {
	data := b.Get(itob(draftID))
	if data == nil {
		return nil, models.ErrDraftNotFound
	}

	var d models.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}
