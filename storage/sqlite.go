package storage

import (
	"database/sql"
	"time"

	"draftsync/models"
	"draftsync/utils"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var createDraftTableSQL = []string{
	// last_edit_time holds Unix microseconds. The recipient columns are
	// all NULL for drafts that are not addressed yet.
	`CREATE TABLE IF NOT EXISTS drafts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_profile_id INTEGER NOT NULL,
		recipient_id INTEGER,
		recipient_type INTEGER,
		recipient_type_id INTEGER,
		topic TEXT NOT NULL,
		content TEXT NOT NULL,
		last_edit_time INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS drafts_user_last_edit ON drafts (user_profile_id, last_edit_time)`,
}

const selectDraftColumns = `SELECT id, user_profile_id, recipient_id, recipient_type, recipient_type_id, topic, content, last_edit_time FROM drafts`

// SQLiteDraftStorage is a draft store on SQLite. Every statement is scoped by user_profile_id.
type SQLiteDraftStorage struct {
	db *sql.DB
}

// NewSQLiteDraftStorage opens the database at dsn and creates the drafts table
func NewSQLiteDraftStorage(dsn string) (*SQLiteDraftStorage, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open database at %s", dsn)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range createDraftTableSQL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "could not create drafts table")
		}
	}

	utils.Log.WithField("dsn", dsn).Debug("SQLite draft storage ready")
	return &SQLiteDraftStorage{db: db}, nil
}

// Close closes the database
func (s *SQLiteDraftStorage) Close() error {
	return s.db.Close()
}

func recipientColumns(r *models.Recipient) (sql.NullInt64, sql.NullInt64, sql.NullInt64) {
	if r == nil {
		return sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: r.ID, Valid: true},
		sql.NullInt64{Int64: int64(r.Type), Valid: true},
		sql.NullInt64{Int64: r.TypeID, Valid: true}
}

// CreateDrafts inserts all drafts in one transaction
func (s *SQLiteDraftStorage) CreateDrafts(drafts []*models.Draft) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "db begin transaction failed")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO drafts
		(user_profile_id, recipient_id, recipient_type, recipient_type_id, topic, content, last_edit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "db prepare statement failed for draft insert")
	}
	defer stmt.Close()

	ids := make([]int64, len(drafts))
	for i, d := range drafts {
		rid, rtype, rtypeID := recipientColumns(d.Recipient)
		res, err := stmt.Exec(d.UserID, rid, rtype, rtypeID, d.Topic, d.Content, d.LastEditTime.UnixMicro())
		if err != nil {
			return errors.Wrap(err, "db insert failed")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "db last insert id failed")
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "db commit failed")
	}
	for i, d := range drafts {
		d.ID = ids[i]
	}
	return nil
}

// GetDraft retrieves a draft owned by userID
func (s *SQLiteDraftStorage) GetDraft(userID, draftID int64) (*models.Draft, error) {
	row := s.db.QueryRow(selectDraftColumns+` WHERE id = ? AND user_profile_id = ?`, draftID, userID)
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrDraftNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db select draft failed")
	}
	return d, nil
}

// UpdateDraft overwrites the editable fields of a draft owned by draft.UserID
func (s *SQLiteDraftStorage) UpdateDraft(draft *models.Draft) error {
	rid, rtype, rtypeID := recipientColumns(draft.Recipient)
	res, err := s.db.Exec(`UPDATE drafts
		SET recipient_id = ?, recipient_type = ?, recipient_type_id = ?, topic = ?, content = ?, last_edit_time = ?
		WHERE id = ? AND user_profile_id = ?`,
		rid, rtype, rtypeID, draft.Topic, draft.Content, draft.LastEditTime.UnixMicro(), draft.ID, draft.UserID)
	if err != nil {
		return errors.Wrap(err, "db update draft failed")
	}
	return requireOneRow(res)
}

// DeleteDraft deletes a draft owned by userID
func (s *SQLiteDraftStorage) DeleteDraft(userID, draftID int64) error {
	res, err := s.db.Exec(`DELETE FROM drafts WHERE id = ? AND user_profile_id = ?`, draftID, userID)
	if err != nil {
		return errors.Wrap(err, "db delete draft failed")
	}
	return requireOneRow(res)
}

// ListDrafts retrieves all drafts for a user, oldest edit first
func (s *SQLiteDraftStorage) ListDrafts(userID int64) ([]*models.Draft, error) {
	rows, err := s.db.Query(selectDraftColumns+` WHERE user_profile_id = ? ORDER BY last_edit_time, id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "db select drafts failed")
	}
	defer rows.Close()

	drafts := []*models.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db scan draft failed")
		}
		drafts = append(drafts, d)
	}
	return drafts, errors.Wrap(rows.Err(), "db iterate drafts failed")
}

// DeleteAllDrafts deletes all drafts for a user
func (s *SQLiteDraftStorage) DeleteAllDrafts(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM drafts WHERE user_profile_id = ?`, userID)
	return errors.Wrap(err, "db delete drafts failed")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(row rowScanner) (*models.Draft, error) {
	var (
		d                    models.Draft
		rid, rtype, rtypeID  sql.NullInt64
		lastEditMicroseconds int64
	)
	if err := row.Scan(&d.ID, &d.UserID, &rid, &rtype, &rtypeID, &d.Topic, &d.Content, &lastEditMicroseconds); err != nil {
		return nil, err
	}
	if rid.Valid {
		d.Recipient = &models.Recipient{ID: rid.Int64, Type: models.RecipientType(rtype.Int64), TypeID: rtypeID.Int64}
	}
	d.LastEditTime = time.UnixMicro(lastEditMicroseconds).UTC()
	return &d, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db rows affected failed")
	}
	if n == 0 {
		return models.ErrDraftNotFound
	}
	return nil
}
