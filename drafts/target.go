package drafts

import (
	"sort"

	"draftsync/models"
)

// Target is where a draft is addressed, decided once from the payload's type.
// It is one of Undirected, Channel or Direct.
type Target interface {
	isTarget()
}

// Undirected is a draft with no recipient yet
type Undirected struct{}

// Channel addresses a single stream
type Channel struct {
	StreamID int64
}

// Direct addresses a set of users; UserIDs is deduplicated and ascending
type Direct struct {
	UserIDs []int64
}

func (Undirected) isTarget() {}
func (Channel) isTarget()    {}
func (Direct) isTarget()     {}

// uniqueIDs returns ids as a sorted set
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func directTarget(to []int64) Direct {
	return Direct{UserIDs: uniqueIDs(to)}
}

// isPrivateWithRecipients reports whether p is a "private" draft naming at least one user
func isPrivateWithRecipients(p *models.DraftPayload) bool {
	return p.Type == models.DraftTypePrivate && len(p.To) != 0
}
