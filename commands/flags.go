package commands

import (
	"fmt"

	"draftsync/config"
	"draftsync/drafts"
	"draftsync/storage"
	"draftsync/utils"
)

type Flags struct {
	LogLevel   string
	ConfigPath string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// stores holds every store a command may need for one run
type stores struct {
	*storage.Storage
	drafts drafts.Store
	close  func() error
}

// openStores opens the bolt database and, when configured, the SQLite draft store
func openStores(cfg *config.Config) (*stores, error) {
	st, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	s := &stores{Storage: st, drafts: st.Drafts, close: st.Close}
	if cfg.Storage.Driver == "sqlite" {
		sqlite, err := storage.NewSQLiteDraftStorage(cfg.Storage.SQLitePath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("open sqlite drafts: %w", err)
		}
		s.drafts = sqlite
		s.close = func() error {
			if err := sqlite.Close(); err != nil {
				utils.Log.Warn("Failed to close sqlite drafts: %v", err)
			}
			return st.Close()
		}
	}

	utils.Log.WithField("driver", cfg.Storage.Driver).Debug("Storage opened in %s", cfg.Storage.DataDir)
	return s, nil
}

// draftService builds the draft service on top of s
func (s *stores) draftService(cfg *config.Config) *drafts.Service {
	limits := drafts.Limits{
		MaxMessageLength: cfg.Drafts.MaxMessageLength,
		MaxTopicLength:   cfg.Drafts.MaxTopicLength,
	}
	normalizer := drafts.NewNormalizer(s.Streams, s.Users, s.Recipients, limits)
	return drafts.NewService(s.drafts, s.Users, normalizer, s.Recipients)
}
