package models

import (
	"sort"
	"strings"
	"time"
)

type FollowEdge struct {
	ID            string    `json:"_id" bson:"_id"`
	FollowerID    string    `json:"followerId" bson:"follower_id"`
	FollowingID   string    `json:"followingId" bson:"following_id"`
	FollowerRole  Role      `json:"followerRole" bson:"follower_role"`
	FollowingRole Role      `json:"followingRole" bson:"following_role"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}

type FollowRequest struct {
	FollowerID    string `json:"followerId"`
	FollowingID   string `json:"followingId"`
	FollowerRole  Role   `json:"followerRole"`
	FollowingRole Role   `json:"followingRole"`
}

type Message struct {
	ID           string    `json:"_id" bson:"_id"`
	SenderID     string    `json:"senderId" bson:"sender_id"`
	ReceiverID   string    `json:"receiverId" bson:"receiver_id"`
	SenderRole   Role      `json:"senderRole" bson:"sender_role"`
	ReceiverRole Role      `json:"receiverRole" bson:"receiver_role"`
	Body         string    `json:"body" bson:"body"`
	Read         bool      `json:"read" bson:"read"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

type SendMessageRequest struct {
	SenderID     string `json:"senderId"`
	ReceiverID   string `json:"receiverId"`
	SenderRole   Role   `json:"senderRole"`
	ReceiverRole Role   `json:"receiverRole"`
	Body         string `json:"body"`
}

func (r *SendMessageRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.SenderID == "" {
		errors["senderId"] = "Sender is required"
	}
	if r.ReceiverID == "" {
		errors["receiverId"] = "Receiver is required"
	} else if r.ReceiverID == r.SenderID {
		errors["receiverId"] = "Cannot message yourself"
	}
	if strings.TrimSpace(r.Body) == "" {
		errors["body"] = "Message body is required"
	}
	return errors
}

// Conversation summarizes the exchange between a user and one counterpart.
type Conversation struct {
	Counterpart UserSummary `json:"otherUser"`
	LastMessage *Message    `json:"lastMessage"`
	UnreadCount int         `json:"unreadCount"`
}

// DeriveConversations groups userID's messages by counterpart. Each
// conversation carries its most recent message and the number of unread
// messages the counterpart sent to userID. Conversations are ordered most
// recent first. users supplies counterpart summaries; unknown ids are
// summarized by id alone.
func DeriveConversations(userID string, messages []*Message, users map[string]*User) []Conversation {
	byOther := make(map[string]*Conversation)
	for _, m := range messages {
		var other string
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}

		c, ok := byOther[other]
		if !ok {
			summary := UserSummary{ID: other}
			if u, found := users[other]; found {
				summary = u.Summary()
			}
			c = &Conversation{Counterpart: summary}
			byOther[other] = c
		}
		if c.LastMessage == nil || m.CreatedAt.After(c.LastMessage.CreatedAt) ||
			(m.CreatedAt.Equal(c.LastMessage.CreatedAt) && m.ID > c.LastMessage.ID) {
			c.LastMessage = m
		}
		if m.ReceiverID == userID && m.SenderID == other && !m.Read {
			c.UnreadCount++
		}
	}

	out := make([]Conversation, 0, len(byOther))
	for _, c := range byOther {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessage, out[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return out[i].Counterpart.ID < out[j].Counterpart.ID
	})
	return out
}
