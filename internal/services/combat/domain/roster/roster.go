package roster

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Participant is one character taking turns in a combat session.
type Participant struct {
	// CharacterID identifies the character in the directory.
	CharacterID string `json:"character_id"`
	// Initiative orders the participant within the round.
	Initiative int `json:"initiative"`
}

// SortByInitiative returns a copy of list ordered by initiative descending.
// Equal initiatives keep their input order.
func SortByInitiative(list []Participant) []Participant {
	sorted := Clone(list)
	slices.SortStableFunc(sorted, func(a, b Participant) int {
		return cmp.Compare(b.Initiative, a.Initiative)
	})
	return sorted
}

// IndexOf returns the position of characterID in list.
func IndexOf(list []Participant, characterID string) (int, bool) {
	for i, p := range list {
		if p.CharacterID == characterID {
			return i, true
		}
	}
	return 0, false
}

// Contains reports whether characterID is in list.
func Contains(list []Participant, characterID string) bool {
	_, ok := IndexOf(list, characterID)
	return ok
}

// Clone returns an independent copy of list. A nil list stays nil.
func Clone(list []Participant) []Participant {
	if list == nil {
		return nil
	}
	return slices.Clone(list)
}

// IDs returns the character ids of list in order.
func IDs(list []Participant) []string {
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.CharacterID
	}
	return ids
}

// Validate checks that every id is present and unique and that list is
// ordered by initiative descending.
func Validate(list []Participant) error {
	seen := make(map[string]struct{}, len(list))
	for i, p := range list {
		id := strings.TrimSpace(p.CharacterID)
		if id == "" {
			return fmt.Errorf("participant %d: character id is required", i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("participant %q appears more than once", id)
		}
		seen[id] = struct{}{}
		if i > 0 && list[i-1].Initiative < p.Initiative {
			return fmt.Errorf("participant %q (initiative %d) is ordered after %q (initiative %d)",
				id, p.Initiative, list[i-1].CharacterID, list[i-1].Initiative)
		}
	}
	return nil
}
