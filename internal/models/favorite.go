package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FavoriteType string

const (
	FavoriteTrial        FavoriteType = "trial"
	FavoritePublication  FavoriteType = "publication"
	FavoriteExpert       FavoriteType = "expert"
	FavoriteCollaborator FavoriteType = "collaborator"
	FavoriteThread       FavoriteType = "thread"
)

func (t FavoriteType) Valid() bool {
	switch t {
	case FavoriteTrial, FavoritePublication, FavoriteExpert, FavoriteCollaborator, FavoriteThread:
		return true
	}
	return false
}

// naturalKeys lists, per type, the item field holding that type's own
// identifier. It is probed before the generic fields.
var naturalKeys = map[FavoriteType]string{
	FavoriteTrial:        "id",
	FavoritePublication:  "pmid",
	FavoriteExpert:       "orcid",
	FavoriteCollaborator: "userId",
	FavoriteThread:       "threadId",
}

// probeFields is the generic identifier probe order shared by every type.
var probeFields = []string{"id", "_id", "threadId", "orcid", "pmid", "userId"}

// FavoriteRef is the typed identity of a saved item.
type FavoriteRef struct {
	Type FavoriteType
	ID   string
	// Aliases holds every identifier the snapshot carries, ID included, so a
	// favorite can be matched by whichever key a client sends back.
	Aliases []string
}

// ResolveFavoriteRef derives the typed reference of an item snapshot.
func ResolveFavoriteRef(typ FavoriteType, item map[string]any) (FavoriteRef, error) {
	if !typ.Valid() {
		return FavoriteRef{}, fmt.Errorf("unknown favorite type %q", typ)
	}

	ref := FavoriteRef{Type: typ}
	seen := make(map[string]bool)
	add := func(field string) {
		v := itemString(item, field)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		ref.Aliases = append(ref.Aliases, v)
		if ref.ID == "" {
			ref.ID = v
		}
	}

	add(naturalKeys[typ])
	for _, f := range probeFields {
		add(f)
	}
	if ref.ID == "" {
		return FavoriteRef{}, fmt.Errorf("%s item has no identifier", typ)
	}
	return ref, nil
}

func itemString(item map[string]any, field string) string {
	switch v := item[field].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// Favorite is a point-in-time snapshot of an item saved by a user. No link to
// the live item is maintained.
type Favorite struct {
	ID        string         `json:"_id" bson:"_id"`
	UserID    string         `json:"userId" bson:"user_id"`
	Type      FavoriteType   `json:"type" bson:"type"`
	ItemKey   string         `json:"itemKey" bson:"item_key"`
	Aliases   []string       `json:"-" bson:"aliases"`
	Item      map[string]any `json:"item" bson:"item"`
	CreatedAt time.Time      `json:"createdAt" bson:"created_at"`
}

// Matches reports whether the favorite is identified by id.
func (f *Favorite) Matches(id string) bool {
	if f.ItemKey == id {
		return true
	}
	for _, a := range f.Aliases {
		if a == id {
			return true
		}
	}
	return false
}

type AddFavoriteRequest struct {
	Type FavoriteType   `json:"type"`
	Item map[string]any `json:"item"`
}

// NewFavorite builds the stored form of an item snapshot. The stored item is
// normalized to carry id and _id when the snapshot lacks them.
func NewFavorite(id, userID string, ref FavoriteRef, item map[string]any, now time.Time) *Favorite {
	snapshot := make(map[string]any, len(item)+2)
	for k, v := range item {
		snapshot[k] = v
	}
	if itemString(snapshot, "id") == "" {
		snapshot["id"] = ref.ID
	}
	if itemString(snapshot, "_id") == "" {
		snapshot["_id"] = ref.ID
	}
	return &Favorite{
		ID:        id,
		UserID:    userID,
		Type:      ref.Type,
		ItemKey:   ref.ID,
		Aliases:   ref.Aliases,
		Item:      snapshot,
		CreatedAt: now,
	}
}
