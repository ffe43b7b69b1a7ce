package models

import (
	"sort"
	"strings"
	"time"
)

type ForumCategory struct {
	ID   string `json:"_id" bson:"_id"`
	Slug string `json:"slug" bson:"slug"`
	Name string `json:"name" bson:"name"`
}

// DefaultCategories is the reference data seeded at startup.
var DefaultCategories = []ForumCategory{
	{Slug: "lung-cancer", Name: "Lung Cancer"},
	{Slug: "heart-related", Name: "Heart Related"},
	{Slug: "cancer-research", Name: "Cancer Research"},
	{Slug: "neurology", Name: "Neurology"},
	{Slug: "oncology", Name: "Oncology"},
	{Slug: "cardiology", Name: "Cardiology"},
	{Slug: "clinical-trials", Name: "Clinical Trials"},
	{Slug: "general-health", Name: "General Health"},
}

type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Votes holds the voter sets of a thread or reply. Score is always derived
// from the sets.
type Votes struct {
	Upvoters   []string `json:"upvoters" bson:"upvoters"`
	Downvoters []string `json:"downvoters" bson:"downvoters"`
	Score      int      `json:"voteScore" bson:"vote_score"`
}

// VoteOf reports the vote userID currently holds, or "" for none.
func (v *Votes) VoteOf(userID string) VoteType {
	if contains(v.Upvoters, userID) {
		return Upvote
	}
	if contains(v.Downvoters, userID) {
		return Downvote
	}
	return ""
}

// ApplyVote toggles userID's vote. Casting the vote already held removes it;
// casting the opposite vote switches sides. It returns the vote the user holds
// afterwards ("" when neutral).
func (v *Votes) ApplyVote(userID string, vote VoteType) VoteType {
	current := v.VoteOf(userID)
	v.Upvoters = remove(v.Upvoters, userID)
	v.Downvoters = remove(v.Downvoters, userID)

	var result VoteType
	if current != vote {
		if vote == Upvote {
			v.Upvoters = append(v.Upvoters, userID)
		} else {
			v.Downvoters = append(v.Downvoters, userID)
		}
		result = vote
	}
	v.Score = len(v.Upvoters) - len(v.Downvoters)
	return result
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0:0]
	for _, x := range list {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}

type ForumThread struct {
	ID           string    `json:"_id" bson:"_id"`
	CategoryID   string    `json:"categoryId" bson:"category_id"`
	AuthorUserID string    `json:"authorUserId" bson:"author_user_id"`
	AuthorRole   Role      `json:"authorRole" bson:"author_role"`
	Title        string    `json:"title" bson:"title"`
	Body         string    `json:"body" bson:"body"`
	Votes        `bson:",inline"`
	ViewCount    int       `json:"viewCount" bson:"view_count"`
	ReplyCount   int       `json:"replyCount" bson:"reply_count"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	Version      int64     `json:"-" bson:"version"`
}

type ForumReply struct {
	ID            string    `json:"_id" bson:"_id"`
	ThreadID      string    `json:"threadId" bson:"thread_id"`
	ParentReplyID *string   `json:"parentReplyId" bson:"parent_reply_id"`
	AuthorUserID  string    `json:"authorUserId" bson:"author_user_id"`
	AuthorRole    Role      `json:"authorRole" bson:"author_role"`
	Body          string    `json:"body" bson:"body"`
	Votes         `bson:",inline"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
	Version       int64     `json:"-" bson:"version"`
}

type CreateThreadRequest struct {
	CategoryID   string `json:"categoryId"`
	AuthorUserID string `json:"authorUserId"`
	AuthorRole   Role   `json:"authorRole"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

func (r *CreateThreadRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.CategoryID == "" {
		errors["categoryId"] = "Category is required"
	}
	if r.AuthorUserID == "" {
		errors["authorUserId"] = "Author is required"
	}
	if !r.AuthorRole.Valid() {
		errors["authorRole"] = "Author role is required"
	}
	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	}
	if strings.TrimSpace(r.Body) == "" {
		errors["body"] = "Body is required"
	}
	return errors
}

type CreateReplyRequest struct {
	ThreadID      string  `json:"threadId"`
	ParentReplyID *string `json:"parentReplyId"`
	AuthorUserID  string  `json:"authorUserId"`
	AuthorRole    Role    `json:"authorRole"`
	Body          string  `json:"body"`
}

func (r *CreateReplyRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.ThreadID == "" {
		errors["threadId"] = "Thread is required"
	}
	if r.AuthorUserID == "" {
		errors["authorUserId"] = "Author is required"
	}
	if !r.AuthorRole.Valid() {
		errors["authorRole"] = "Author role is required"
	}
	if strings.TrimSpace(r.Body) == "" {
		errors["body"] = "Body is required"
	}
	return errors
}

type VoteRequest struct {
	UserID   string   `json:"userId"`
	VoteType VoteType `json:"voteType"`
}

// VoteResult is returned after a vote toggle.
type VoteResult struct {
	VoteScore int      `json:"voteScore"`
	Upvotes   int      `json:"upvotes"`
	Downvotes int      `json:"downvotes"`
	UserVote  VoteType `json:"userVote"`
}

func NewVoteResult(v Votes, userID string) VoteResult {
	return VoteResult{
		VoteScore: v.Score,
		Upvotes:   len(v.Upvoters),
		Downvotes: len(v.Downvoters),
		UserVote:  v.VoteOf(userID),
	}
}

// ReplyNode is a reply with its nested children, as displayed.
type ReplyNode struct {
	*ForumReply
	Children []*ReplyNode `json:"children"`
}

// BuildReplyTree assembles the reply forest of a thread from its flat reply
// set. Replies without a parent, or whose parent is not in the set, are roots.
// Siblings are ordered by creation time, then id, so the result does not
// depend on the order of the input.
func BuildReplyTree(replies []*ForumReply) []*ReplyNode {
	known := make(map[string]bool, len(replies))
	for _, r := range replies {
		known[r.ID] = true
	}

	byParent := make(map[string][]*ForumReply, len(replies))
	for _, r := range replies {
		parent := ""
		if r.ParentReplyID != nil && known[*r.ParentReplyID] && *r.ParentReplyID != r.ID {
			parent = *r.ParentReplyID
		}
		byParent[parent] = append(byParent[parent], r)
	}
	for _, children := range byParent {
		sort.Slice(children, func(i, j int) bool {
			if !children[i].CreatedAt.Equal(children[j].CreatedAt) {
				return children[i].CreatedAt.Before(children[j].CreatedAt)
			}
			return children[i].ID < children[j].ID
		})
	}

	visited := make(map[string]bool, len(replies))
	var build func(parent string) []*ReplyNode
	build = func(parent string) []*ReplyNode {
		nodes := make([]*ReplyNode, 0, len(byParent[parent]))
		for _, r := range byParent[parent] {
			if visited[r.ID] {
				continue
			}
			visited[r.ID] = true
			nodes = append(nodes, &ReplyNode{ForumReply: r, Children: build(r.ID)})
		}
		return nodes
	}
	return build("")
}

type ThreadDetail struct {
	Thread  *ForumThread `json:"thread"`
	Replies []*ReplyNode `json:"replies"`
}
