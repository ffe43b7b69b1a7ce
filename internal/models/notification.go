package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationNewReply          NotificationType = "new_reply"
	NotificationNewFollower       NotificationType = "new_follower"
	NotificationNewMessage        NotificationType = "new_message"
	NotificationNewTrialMatch     NotificationType = "new_trial_match"
	NotificationThreadUpvoted     NotificationType = "thread_upvoted"
	NotificationReplyUpvoted      NotificationType = "reply_upvoted"
	NotificationPatientQuestion   NotificationType = "patient_question"
	NotificationResearcherReplied NotificationType = "researcher_replied"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewReply, NotificationNewFollower, NotificationNewMessage, NotificationNewTrialMatch,
		NotificationThreadUpvoted, NotificationReplyUpvoted, NotificationPatientQuestion, NotificationResearcherReplied:
		return true
	}
	return false
}

// Related item types referenced by notifications.
const (
	ItemThread  = "thread"
	ItemReply   = "reply"
	ItemMessage = "message"
	ItemTrial   = "trial"
	ItemUser    = "user"
)

type Notification struct {
	ID              string           `json:"_id" bson:"_id"`
	RecipientUserID string           `json:"userId" bson:"recipient_user_id"`
	Type            NotificationType `json:"type" bson:"type"`
	Title           string           `json:"title" bson:"title"`
	Message         string           `json:"message" bson:"message"`
	RelatedUserID   string           `json:"relatedUserId,omitempty" bson:"related_user_id,omitempty"`
	RelatedItemType string           `json:"relatedItemType,omitempty" bson:"related_item_type,omitempty"`
	RelatedItemID   string           `json:"relatedItemId,omitempty" bson:"related_item_id,omitempty"`
	Read            bool             `json:"read" bson:"read"`
	CreatedAt       time.Time        `json:"createdAt" bson:"created_at"`
}

// Notification age buckets, relative to local midnight.
const (
	BucketToday     = "today"
	BucketYesterday = "yesterday"
	BucketThisWeek  = "this_week"
	BucketOlder     = "older"
)

// NotificationBucket places createdAt into the Today / Yesterday / This Week /
// Older grouping shown to users, using now's location for midnight.
func NotificationBucket(createdAt, now time.Time) string {
	loc := now.Location()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	t := createdAt.In(loc)

	switch {
	case !t.Before(midnight):
		return BucketToday
	case !t.Before(midnight.AddDate(0, 0, -1)):
		return BucketYesterday
	case !t.Before(midnight.AddDate(0, 0, -7)):
		return BucketThisWeek
	default:
		return BucketOlder
	}
}

// NotificationView is a notification as listed to its recipient.
type NotificationView struct {
	*Notification
	Bucket string `json:"bucket"`
}

// Metrics are read-time usage aggregates. Role selects which fields are
// serialized: patients get threadViews, researchers get followers, trial
// counts and favorites. Every field of the selected shape is always present.
type Metrics struct {
	Role           Role `json:"-"`
	ThreadsCreated int  `json:"threadsCreated"`
	RepliesCreated int  `json:"repliesCreated"`
	TotalUpvotes   int  `json:"totalUpvotes"`
	ThreadViews    int  `json:"threadViews"`
	Followers      int  `json:"followers"`
	TrialsCreated  int  `json:"trialsCreated"`
	TrialFavorites int  `json:"trialFavorites"`
}

type forumMetrics struct {
	ThreadsCreated int `json:"threadsCreated"`
	RepliesCreated int `json:"repliesCreated"`
	TotalUpvotes   int `json:"totalUpvotes"`
}

type patientMetrics struct {
	forumMetrics
	ThreadViews int `json:"threadViews"`
}

type researcherMetrics struct {
	forumMetrics
	Followers      int `json:"followers"`
	TrialsCreated  int `json:"trialsCreated"`
	TrialFavorites int `json:"trialFavorites"`
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	base := forumMetrics{
		ThreadsCreated: m.ThreadsCreated,
		RepliesCreated: m.RepliesCreated,
		TotalUpvotes:   m.TotalUpvotes,
	}
	if m.Role == RoleResearcher {
		return json.Marshal(researcherMetrics{
			forumMetrics:   base,
			Followers:      m.Followers,
			TrialsCreated:  m.TrialsCreated,
			TrialFavorites: m.TrialFavorites,
		})
	}
	return json.Marshal(patientMetrics{forumMetrics: base, ThreadViews: m.ThreadViews})
}

type Insights struct {
	Role          Role               `json:"role"`
	Notifications []NotificationView `json:"notifications"`
	UnreadCount   int64              `json:"unreadCount"`
	Metrics       Metrics            `json:"metrics"`
}
