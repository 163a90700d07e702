package drafts

import (
	"fmt"
	"math"
	"time"

	"draftsync/models"
	"draftsync/utils"
)

const (
	DefaultMaxMessageLength = 10000
	DefaultMaxTopicLength   = 60
)

// maxTimestampMicros is 10000-01-01T00:00:00Z. Stored times must fall before it.
const maxTimestampMicros = 253402300800 * 1e6

// StreamAccessor looks up a stream the user is allowed to address
type StreamAccessor interface {
	AccessStreamByID(user *models.User, streamID int64) (*models.Stream, *models.Subscription, error)
}

// UserDirectory resolves user ids within a realm
type UserDirectory interface {
	UserProfilesByIDs(ids []int64, realmID int64) ([]*models.User, error)
}

// RecipientResolver computes the direct-message recipient for a set of users plus the sender
type RecipientResolver interface {
	RecipientForUserProfiles(users []*models.User, sender *models.User) (*models.Recipient, error)
}

// Limits bounds the size of stored text
type Limits struct {
	MaxMessageLength int
	MaxTopicLength   int
}

// DefaultLimits returns the server's standard message limits
func DefaultLimits() Limits {
	return Limits{
		MaxMessageLength: DefaultMaxMessageLength,
		MaxTopicLength:   DefaultMaxTopicLength,
	}
}

// Normalizer turns schema-valid payloads into NormalizedDrafts
type Normalizer struct {
	streams    StreamAccessor
	users      UserDirectory
	recipients RecipientResolver
	limits     Limits
	now        func() time.Time
}

// NewNormalizer creates a normalizer that resolves recipients through the given collaborators
func NewNormalizer(streams StreamAccessor, users UserDirectory, recipients RecipientResolver, limits Limits) *Normalizer {
	return &Normalizer{
		streams:    streams,
		users:      users,
		recipients: recipients,
		limits:     limits,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock used for drafts without a timestamp
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// Normalize sanitizes p on behalf of user and resolves its recipient.
// It never persists anything.
func (n *Normalizer) Normalize(p *models.DraftPayload, user *models.User) (*models.NormalizedDraft, error) {
	content := utils.TruncateBody(p.Content, n.limits.MaxMessageLength)
	if utils.ContainsNullByte(content) {
		return nil, utils.ValidationError("draft_content_null_bytes", "Content must not contain null bytes")
	}

	lastEditTime, err := n.lastEditTime(p.Timestamp)
	if err != nil {
		return nil, err
	}

	target, topic, err := n.classify(p)
	if err != nil {
		return nil, err
	}

	recipient, err := n.resolve(target, user)
	if err != nil {
		return nil, err
	}

	return &models.NormalizedDraft{
		Recipient:    recipient,
		Topic:        topic,
		Content:      content,
		LastEditTime: lastEditTime,
	}, nil
}

// lastEditTime rounds the timestamp to microseconds. Zero and future values are
// allowed up to the end of year 9999.
func (n *Normalizer) lastEditTime(ts *float64) (time.Time, error) {
	var seconds float64
	if ts != nil {
		seconds = *ts
	} else {
		seconds = float64(n.now().UnixMicro()) / 1e6
	}

	micros := math.Round(seconds * 1e6)
	if micros < 0 {
		return time.Time{}, utils.ValidationError("draft_timestamp_negative", "Timestamp must not be negative.")
	}
	if math.IsNaN(micros) || micros >= maxTimestampMicros {
		return time.Time{}, utils.ValidationError("draft_timestamp_range", "Timestamp is out of range.")
	}
	return time.UnixMicro(int64(micros)).UTC(), nil
}

// classify picks the draft's Target and its stored topic
func (n *Normalizer) classify(p *models.DraftPayload) (Target, string, error) {
	switch {
	case p.Type == models.DraftTypeStream:
		topic := utils.TruncateTopic(p.Topic, n.limits.MaxTopicLength)
		if utils.ContainsNullByte(topic) {
			return nil, "", utils.ValidationError("draft_topic_null_bytes", "Topic must not contain null bytes")
		}
		if len(p.To) != 1 {
			return nil, "", utils.ValidationError("draft_stream_count", "Must specify exactly 1 stream ID for stream messages")
		}
		return Channel{StreamID: p.To[0]}, topic, nil
	case isPrivateWithRecipients(p):
		return directTarget(p.To), "", nil
	default:
		return Undirected{}, "", nil
	}
}

// resolve maps a Target to its recipient. Undirected drafts have none.
func (n *Normalizer) resolve(target Target, user *models.User) (*models.Recipient, error) {
	switch t := target.(type) {
	case Undirected:
		return nil, nil
	case Channel:
		stream, _, err := n.streams.AccessStreamByID(user, t.StreamID)
		if err != nil {
			return nil, err
		}
		return stream.Recipient(), nil
	case Direct:
		profiles, err := n.users.UserProfilesByIDs(t.UserIDs, user.RealmID)
		if err != nil {
			return nil, err
		}
		recipient, err := n.recipients.RecipientForUserProfiles(profiles, user)
		if err != nil {
			return nil, asValidationError(err)
		}
		return recipient, nil
	default:
		return nil, fmt.Errorf("unknown draft target %T", target)
	}
}

// asValidationError reports an application error from recipient resolution as a
// validation failure carrying the resolver's message.
func asValidationError(err error) error {
	appErr, ok := utils.AsAppError(err)
	if !ok {
		return utils.InternalServerError("Failed to resolve recipient", err)
	}
	if appErr.Kind == utils.KindValidation {
		return appErr
	}
	v := utils.ValidationError(appErr.MessageID, appErr.Message)
	v.Data = appErr.Data
	return v
}
