package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	usersBucket         = []byte("users")
	userEmailsBucket    = []byte("user_emails")
	streamsBucket       = []byte("streams")
	streamNamesBucket   = []byte("stream_names")
	subscriptionsBucket = []byte("subscriptions")
	recipientsBucket    = []byte("recipients")
	huddlesBucket       = []byte("huddles")
	huddleHashesBucket  = []byte("huddle_hashes")
	draftsBucket        = []byte("drafts")
)

var allBuckets = [][]byte{
	usersBucket,
	userEmailsBucket,
	streamsBucket,
	streamNamesBucket,
	subscriptionsBucket,
	recipientsBucket,
	huddlesBucket,
	huddleHashesBucket,
	draftsBucket,
}

// InitDB opens (creating if needed) the bbolt database in dataDir and its buckets
func InitDB(dataDir string) (*bbolt.DB, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "draftsync.db")
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Storage groups the bbolt-backed stores sharing one database
type Storage struct {
	DB         *bbolt.DB
	Users      *UserStorage
	Streams    *StreamStorage
	Recipients *RecipientStorage
	Drafts     *DraftStorage
}

// Open initializes the database in dataDir and returns all stores on top of it
func Open(dataDir string) (*Storage, error) {
	db, err := InitDB(dataDir)
	if err != nil {
		return nil, err
	}
	return &Storage{
		DB:         db,
		Users:      NewUserStorage(db),
		Streams:    NewStreamStorage(db),
		Recipients: NewRecipientStorage(db),
		Drafts:     NewDraftStorage(db),
	}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	s.Users.Close()
	return s.DB.Close()
}

// itob encodes an id as a big-endian key so bbolt iterates in id order
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func nextID(b *bbolt.Bucket) (int64, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	return int64(seq), nil
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}
