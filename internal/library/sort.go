package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/conorfennell/spacedeck/internal/deck"
)

// SortOrder selects how decks are listed.
type SortOrder int

const (
	NameAsc SortOrder = iota
	NameDesc
	CreatedAsc
	CreatedDesc
	StudiedAsc
	StudiedDesc
)

var sortOrderNames = map[SortOrder]string{
	NameAsc:     "name",
	NameDesc:    "name-desc",
	CreatedAsc:  "created",
	CreatedDesc: "created-desc",
	StudiedAsc:  "studied",
	StudiedDesc: "studied-desc",
}

func (o SortOrder) String() string {
	if s, ok := sortOrderNames[o]; ok {
		return s
	}
	return fmt.Sprintf("SortOrder(%d)", int(o))
}

// ParseSortOrder accepts the names printed by SortOrder.String.
func ParseSortOrder(s string) (SortOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for o, name := range sortOrderNames {
		if name == s {
			return o, nil
		}
	}
	return NameAsc, fmt.Errorf("unknown sort order %q", s)
}

// Sort orders decks in place. Decks that were never studied sort as the
// oldest.
func Sort(decks []*deck.Deck, order SortOrder) {
	var compare func(a, b *deck.Deck) int
	switch order {
	case NameDesc:
		compare = func(a, b *deck.Deck) int { return byName(b, a) }
	case CreatedAsc:
		compare = func(a, b *deck.Deck) int { return a.CreatedAt().Compare(b.CreatedAt()) }
	case CreatedDesc:
		compare = func(a, b *deck.Deck) int { return b.CreatedAt().Compare(a.CreatedAt()) }
	case StudiedAsc:
		compare = func(a, b *deck.Deck) int { return studied(a).Compare(studied(b)) }
	case StudiedDesc:
		compare = func(a, b *deck.Deck) int { return studied(b).Compare(studied(a)) }
	default:
		compare = byName
	}
	slices.SortStableFunc(decks, compare)
}

func byName(a, b *deck.Deck) int {
	return cmp.Or(
		cmp.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name())),
		cmp.Compare(a.Name(), b.Name()),
	)
}

func studied(d *deck.Deck) time.Time {
	t, _ := d.LastStudiedAt()
	return t
}
