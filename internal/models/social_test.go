package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, from, to string, at time.Time, read bool) *Message {
	return &Message{ID: id, SenderID: from, ReceiverID: to, CreatedAt: at, Read: read}
}

func TestDeriveConversations(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	messages := []*Message{
		msg("m1", "B", "A", base, false),
		msg("m2", "A", "B", base.Add(time.Minute), false),
		msg("m3", "B", "A", base.Add(2*time.Minute), false),
		msg("m4", "B", "A", base.Add(3*time.Minute), true),
		msg("m5", "C", "A", base.Add(10*time.Minute), false),
		msg("m6", "B", "C", base.Add(20*time.Minute), false),
	}
	users := map[string]*User{"B": {ID: "B", Username: "bob", Role: RoleResearcher}}

	convs := DeriveConversations("A", messages, users)

	require.Len(t, convs, 2)
	assert.Equal(t, "C", convs[0].Counterpart.ID)
	assert.Equal(t, "m5", convs[0].LastMessage.ID)
	assert.Equal(t, 1, convs[0].UnreadCount)

	assert.Equal(t, "bob", convs[1].Counterpart.Username)
	assert.Equal(t, "m4", convs[1].LastMessage.ID)
	assert.Equal(t, 2, convs[1].UnreadCount, "only unread messages B sent to A count")
}

func TestDeriveConversationsSenderSideHasNoUnread(t *testing.T) {
	base := time.Now()
	convs := DeriveConversations("B", []*Message{msg("m1", "B", "A", base, false)}, nil)

	require.Len(t, convs, 1)
	assert.Equal(t, 0, convs[0].UnreadCount)
	assert.Equal(t, "A", convs[0].Counterpart.ID)
}

func TestNotificationBucket(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2025, 6, 11, 15, 0, 0, 0, loc)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"this morning", time.Date(2025, 6, 11, 0, 0, 0, 0, loc), BucketToday},
		{"just before midnight", time.Date(2025, 6, 10, 23, 59, 0, 0, loc), BucketYesterday},
		{"yesterday midnight", time.Date(2025, 6, 10, 0, 0, 0, 0, loc), BucketYesterday},
		{"three days ago", time.Date(2025, 6, 8, 12, 0, 0, 0, loc), BucketThisWeek},
		{"a week ago", time.Date(2025, 6, 4, 0, 0, 0, 0, loc), BucketThisWeek},
		{"last month", time.Date(2025, 5, 1, 0, 0, 0, 0, loc), BucketOlder},
		{"utc input", time.Date(2025, 6, 10, 22, 30, 0, 0, time.UTC), BucketToday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NotificationBucket(tt.at, now))
		})
	}
}

func TestProfileTopics(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		want    []string
	}{
		{"nil profile", nil, nil},
		{"patient", &Profile{Role: RolePatient, Patient: &PatientProfile{Conditions: []string{"asthma", "copd"}}}, []string{"asthma", "copd"}},
		{"researcher interests", &Profile{Role: RoleResearcher, Researcher: &ResearcherProfile{Interests: []string{"genomics"}, Specialties: []string{"oncology"}}}, []string{"genomics"}},
		{"researcher specialties fallback", &Profile{Role: RoleResearcher, Researcher: &ResearcherProfile{Specialties: []string{"oncology"}}}, []string{"oncology"}},
		{"role without sub-record", &Profile{Role: RolePatient}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.Topics())
		})
	}
}
