package drafts

import (
	"draftsync/models"
	"draftsync/utils"
)

// RequireSyncEnabled fails unless user has turned on drafts synchronization.
// Every draft operation calls it before touching the payload or the store.
func RequireSyncEnabled(user *models.User) error {
	if user == nil || !user.EnableDraftsSynchronization {
		return utils.PreconditionError("drafts_sync_disabled", "User has not enabled drafts syncing.")
	}
	return nil
}
