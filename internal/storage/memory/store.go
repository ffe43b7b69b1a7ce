// Package memory is an in-process storage.Store guarded by a single lock and
// optionally snapshotted to a JSON file after every write. A write whose
// snapshot cannot be persisted is rolled back, so memory never runs ahead of
// disk.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

const snapshotFile = "curalink.json"

type Store struct {
	mu sync.RWMutex

	users         map[string]*models.User
	byEmail       map[string]string // role|email -> userID
	profiles      map[string]*models.Profile
	favorites     map[string]*models.Favorite
	categories    []models.ForumCategory
	threads       map[string]*models.ForumThread
	replies       map[string]*models.ForumReply
	follows       map[string]*models.FollowEdge // follower|following -> edge
	messages      []*models.Message
	notifications map[string]*models.Notification
	trials        map[string]*models.ResearcherTrial

	disk *storage.JSONStore
	// persisted is the last snapshot written successfully, kept for rollback.
	persisted []byte
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store that lives only in memory.
func New() *Store {
	s := &Store{}
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	s.users = make(map[string]*models.User)
	s.byEmail = make(map[string]string)
	s.profiles = make(map[string]*models.Profile)
	s.favorites = make(map[string]*models.Favorite)
	s.categories = nil
	s.threads = make(map[string]*models.ForumThread)
	s.replies = make(map[string]*models.ForumReply)
	s.follows = make(map[string]*models.FollowEdge)
	s.messages = nil
	s.notifications = make(map[string]*models.Notification)
	s.trials = make(map[string]*models.ResearcherTrial)
}

// Open returns a store backed by a snapshot in dataDir, loading any snapshot
// already there.
func Open(dataDir string) (*Store, error) {
	disk, err := storage.NewJSONStore(dataDir, snapshotFile)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}

	var snap snapshot
	if err := disk.Load(&snap); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", disk.Path(), err)
	}

	s := New()
	s.restore(&snap)
	s.disk = disk
	if s.persisted, err = json.Marshal(s.snapshotLocked()); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return s, nil
}

// Flush writes the snapshot, if the store has one.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) Close(ctx context.Context) error {
	return s.Flush()
}

// commit persists the current state after a write. On failure the write is
// undone by restoring the last persisted snapshot. Callers hold the write lock.
func (s *Store) commit() error {
	if err := s.saveLocked(); err != nil {
		if rerr := s.rollbackLocked(); rerr != nil {
			return fmt.Errorf("persist snapshot: %w (rollback: %v)", err, rerr)
		}
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (s *Store) saveLocked() error {
	if s.disk == nil {
		return nil
	}
	payload, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		return err
	}
	if err := s.disk.Save(json.RawMessage(payload)); err != nil {
		return err
	}
	s.persisted = payload
	return nil
}

func (s *Store) rollbackLocked() error {
	var snap snapshot
	if len(s.persisted) > 0 {
		if err := json.Unmarshal(s.persisted, &snap); err != nil {
			return err
		}
	}
	s.resetLocked()
	s.restore(&snap)
	return nil
}

type userRecord struct {
	*models.User
	PasswordHash string `json:"passwordHash"`
}

type snapshot struct {
	Users         []userRecord              `json:"users"`
	Profiles      []*models.Profile         `json:"profiles"`
	Favorites     []*models.Favorite        `json:"favorites"`
	Categories    []models.ForumCategory    `json:"categories"`
	Threads       []*models.ForumThread     `json:"threads"`
	Replies       []*models.ForumReply      `json:"replies"`
	Follows       []*models.FollowEdge      `json:"follows"`
	Messages      []*models.Message         `json:"messages"`
	Notifications []*models.Notification    `json:"notifications"`
	Trials        []*models.ResearcherTrial `json:"trials"`
}

func (s *Store) snapshotLocked() *snapshot {
	snap := &snapshot{
		Categories: s.categories,
		Messages:   s.messages,
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, userRecord{User: u, PasswordHash: u.PasswordHash})
	}
	snap.Profiles = slices.Collect(maps.Values(s.profiles))
	snap.Favorites = slices.Collect(maps.Values(s.favorites))
	snap.Threads = slices.Collect(maps.Values(s.threads))
	snap.Replies = slices.Collect(maps.Values(s.replies))
	snap.Follows = slices.Collect(maps.Values(s.follows))
	snap.Notifications = slices.Collect(maps.Values(s.notifications))
	snap.Trials = slices.Collect(maps.Values(s.trials))
	return snap
}

func (s *Store) restore(snap *snapshot) {
	for _, r := range snap.Users {
		if r.User == nil {
			continue
		}
		u := r.User
		u.PasswordHash = r.PasswordHash
		s.users[u.ID] = u
		s.byEmail[emailKey(u.Email, u.Role)] = u.ID
	}
	for _, p := range snap.Profiles {
		s.profiles[p.UserID] = p
	}
	for _, f := range snap.Favorites {
		// Aliases are not serialized; they are derived from the snapshot again.
		if ref, err := models.ResolveFavoriteRef(f.Type, f.Item); err == nil {
			f.Aliases = ref.Aliases
		}
		if !slices.Contains(f.Aliases, f.ItemKey) {
			f.Aliases = append(f.Aliases, f.ItemKey)
		}
		s.favorites[f.ID] = f
	}
	s.categories = snap.Categories
	for _, t := range snap.Threads {
		s.threads[t.ID] = t
	}
	for _, r := range snap.Replies {
		s.replies[r.ID] = r
	}
	for _, e := range snap.Follows {
		s.follows[followKey(e.FollowerID, e.FollowingID)] = e
	}
	s.messages = snap.Messages
	for _, n := range snap.Notifications {
		s.notifications[n.ID] = n
	}
	for _, t := range snap.Trials {
		s.trials[t.ID] = t
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.MedicalInterests = slices.Clone(u.MedicalInterests)
	return &c
}

func cloneLocation(l *models.Location) *models.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func cloneProfile(p *models.Profile) *models.Profile {
	c := *p
	if p.Patient != nil {
		pp := *p.Patient
		pp.Conditions = slices.Clone(pp.Conditions)
		pp.Keywords = slices.Clone(pp.Keywords)
		pp.Location = cloneLocation(pp.Location)
		c.Patient = &pp
	}
	if p.Researcher != nil {
		rp := *p.Researcher
		rp.Specialties = slices.Clone(rp.Specialties)
		rp.Interests = slices.Clone(rp.Interests)
		rp.Location = cloneLocation(rp.Location)
		c.Researcher = &rp
	}
	return &c
}

func cloneFavorite(f *models.Favorite) *models.Favorite {
	c := *f
	c.Aliases = slices.Clone(f.Aliases)
	c.Item = maps.Clone(f.Item)
	return &c
}

func cloneVotes(v models.Votes) models.Votes {
	return models.Votes{
		Upvoters:   slices.Clone(v.Upvoters),
		Downvoters: slices.Clone(v.Downvoters),
		Score:      v.Score,
	}
}

func cloneThread(t *models.ForumThread) *models.ForumThread {
	c := *t
	c.Votes = cloneVotes(t.Votes)
	return &c
}

func cloneReply(r *models.ForumReply) *models.ForumReply {
	c := *r
	c.Votes = cloneVotes(r.Votes)
	if r.ParentReplyID != nil {
		parent := *r.ParentReplyID
		c.ParentReplyID = &parent
	}
	return &c
}

func cloneTrial(t *models.ResearcherTrial) *models.ResearcherTrial {
	c := *t
	c.Conditions = slices.Clone(t.Conditions)
	return &c
}
