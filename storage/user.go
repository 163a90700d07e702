package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"draftsync/models"
	"draftsync/utils"

	"go.etcd.io/bbolt"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned when no user matches a lookup
var ErrUserNotFound = errors.New("user not found")

// userCacheTTL bounds how long an authenticated request may see a stale user
// written by another process. Writes through UserStorage invalidate at once.
const userCacheTTL = 30 * time.Second

// UserStorage manages user data persistence
type UserStorage struct {
	db    *bbolt.DB
	cache *utils.MemoryCache[int64, models.User]

	// versions counts writes per user. A load only fills the cache when no
	// write landed while it was reading.
	mu       sync.Mutex
	versions map[int64]uint64

	afterLoad func(userID int64) // test hook between the read and the cache fill
}

// userRecord is the stored form of a user; models.User hides the hash from JSON
type userRecord struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

// NewUserStorage creates a new user storage instance
func NewUserStorage(db *bbolt.DB) *UserStorage {
	return &UserStorage{
		db:       db,
		cache:    utils.NewMemoryCache[int64, models.User](userCacheTTL),
		versions: make(map[int64]uint64),
	}
}

// Close stops the user cache
func (s *UserStorage) Close() {
	s.cache.Close()
}

func emailKey(realmID int64, email string) []byte {
	return []byte(fmt.Sprintf("%d:%s", realmID, strings.ToLower(strings.TrimSpace(email))))
}

// CreateUser creates a new user together with their personal recipient
func (s *UserStorage) CreateUser(user *models.User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(userEmailsBucket)
		key := emailKey(user.RealmID, user.Email)
		if emails.Get(key) != nil {
			return fmt.Errorf("user %s already exists in realm %d", user.Email, user.RealmID)
		}

		id, err := nextID(tx.Bucket(usersBucket))
		if err != nil {
			return fmt.Errorf("failed to allocate user id: %w", err)
		}
		user.ID = id

		r, err := createRecipient(tx, models.RecipientPersonal, id)
		if err != nil {
			return err
		}
		user.RecipientID = r.ID
		user.PasswordHash = string(hashedPassword)
		user.IsActive = true
		user.CreatedAt = time.Now().UTC()

		if err := saveUser(tx, user); err != nil {
			return err
		}
		return emails.Put(key, itob(id))
	})
}

// GetUser retrieves a user by ID
func (s *UserStorage) GetUser(userID int64) (*models.User, error) {
	if cached, ok := s.cache.Get(userID); ok {
		return &cached, nil
	}
	version := s.version(userID)

	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		u, err := loadUser(tx, userID)
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.afterLoad != nil {
		s.afterLoad(userID)
	}
	s.cacheIfCurrent(userID, version, *user)
	return user, nil
}

func (s *UserStorage) version(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[userID]
}

// cacheIfCurrent stores user unless it was written since version was read
func (s *UserStorage) cacheIfCurrent(userID int64, version uint64, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[userID] == version {
		s.cache.Set(userID, user)
	}
}

// invalidate drops the cached user and turns away loads already in flight
func (s *UserStorage) invalidate(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[userID]++
	s.cache.Delete(userID)
}

// GetUserByEmail retrieves a user by email within a realm
func (s *UserStorage) GetUserByEmail(realmID int64, email string) (*models.User, error) {
	var user *models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(userEmailsBucket).Get(emailKey(realmID, email))
		if id == nil {
			return ErrUserNotFound
		}
		u, err := loadUser(tx, btoi(id))
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the active user matching email and password
func (s *UserStorage) Authenticate(realmID int64, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(realmID, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, err
	}
	return user, nil
}

// UserProfilesByIDs resolves ids to users of realmID. Any unknown id, or a user
// from another realm, fails the whole lookup.
func (s *UserStorage) UserProfilesByIDs(ids []int64, realmID int64) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	err := s.db.View(func(tx *bbolt.Tx) error {
		for _, id := range ids {
			u, err := loadUser(tx, id)
			if errors.Is(err, ErrUserNotFound) || (err == nil && u.RealmID != realmID) {
				return utils.ValidationError("user_invalid_id", fmt.Sprintf("Invalid user ID %d", id)).
					WithData(map[string]interface{}{"UserID": id})
			}
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SetDraftsSynchronization changes only the drafts synchronization flag
func (s *UserStorage) SetDraftsSynchronization(userID int64, enabled bool) error {
	return s.update(userID, func(u *models.User) {
		u.EnableDraftsSynchronization = enabled
	})
}

// SetActive activates or deactivates a user
func (s *UserStorage) SetActive(userID int64, active bool) error {
	return s.update(userID, func(u *models.User) {
		u.IsActive = active
	})
}

// UpdateLastLogin updates the last login timestamp
func (s *UserStorage) UpdateLastLogin(userID int64) error {
	return s.update(userID, func(u *models.User) {
		u.LastLoginAt = time.Now().UTC()
	})
}

// ListUsers retrieves all users
func (s *UserStorage) ListUsers() ([]*models.User, error) {
	var users []*models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(usersBucket).ForEach(func(k, v []byte) error {
			u, err := decodeUser(v)
			if err != nil {
				return err
			}
			users = append(users, u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// update applies fn to the stored user in one read-modify-write transaction
func (s *UserStorage) update(userID int64, fn func(u *models.User)) error {
	defer s.invalidate(userID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		u, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		fn(u)
		return saveUser(tx, u)
	})
}

func saveUser(tx *bbolt.Tx, user *models.User) error {
	data, err := json.Marshal(userRecord{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return tx.Bucket(usersBucket).Put(itob(user.ID), data)
}

func loadUser(tx *bbolt.Tx, userID int64) (*models.User, error) {
	data := tx.Bucket(usersBucket).Get(itob(userID))
	if data == nil {
		return nil, ErrUserNotFound
	}
	return decodeUser(data)
}

func decodeUser(data []byte) (*models.User, error) {
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	user := rec.User
	user.PasswordHash = rec.PasswordHash
	return &user, nil
}
