// Package catalog holds the immutable movie catalog and its similarity matrix.
// Both are built once from precomputed artifacts and are safe for concurrent
// reads without locking.
package catalog

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

// Item is one catalog entry. Position is its 0-based index in catalog order.
type Item struct {
	Position   int    `json:"position"`
	Title      string `json:"title"`
	ExternalID int64  `json:"external_id"`
}

// Store is a read-only title index over the ordered catalog.
type Store struct {
	items   []Item
	byTitle map[string]int
	lowered []string
}

// NewStore indexes items in the given order. Positions are reassigned to
// match the slice index. When titles repeat, the first occurrence owns the
// title for Resolve.
func NewStore(items []Item) *Store {
	s := &Store{
		items:   make([]Item, len(items)),
		byTitle: make(map[string]int, len(items)),
		lowered: make([]string, len(items)),
	}
	for i, it := range items {
		it.Position = i
		s.items[i] = it
		s.lowered[i] = strings.ToLower(it.Title)
		if _, dup := s.byTitle[it.Title]; !dup {
			s.byTitle[it.Title] = i
		}
	}
	return s
}

// Len returns the number of catalog items.
func (s *Store) Len() int {
	return len(s.items)
}

// Resolve maps an exact title to its catalog position.
func (s *Store) Resolve(title string) (int, error) {
	pos, ok := s.byTitle[title]
	if !ok {
		return -1, fmt.Errorf("resolving title %q: %w", title, apperrors.ErrNotFound)
	}
	return pos, nil
}

// Item returns the item at position.
func (s *Store) Item(position int) (Item, error) {
	if position < 0 || position >= len(s.items) {
		return Item{}, fmt.Errorf("item %d of %d: %w", position, len(s.items), apperrors.ErrInvalidIndex)
	}
	return s.items[position], nil
}

// ItemsMatching returns, in catalog order, every title containing substring
// case-insensitively. Empty input yields an empty result.
func (s *Store) ItemsMatching(substring string) []string {
	matches := make([]string, 0)
	if substring == "" {
		return matches
	}
	needle := strings.ToLower(substring)
	for i, title := range s.lowered {
		if strings.Contains(title, needle) {
			matches = append(matches, s.items[i].Title)
		}
	}
	return matches
}

// Titles returns all titles in catalog order.
func (s *Store) Titles() []string {
	titles := make([]string, len(s.items))
	for i, it := range s.items {
		titles[i] = it.Title
	}
	return titles
}

// DuplicateTitles reports titles that occur more than once, with every
// position holding them. Only the first position is reachable by Resolve.
func (s *Store) DuplicateTitles() map[string][]int {
	seen := make(map[string][]int)
	for _, it := range s.items {
		seen[it.Title] = append(seen[it.Title], it.Position)
	}
	dups := make(map[string][]int)
	for title, positions := range seen {
		if len(positions) > 1 {
			dups[title] = positions
		}
	}
	return dups
}
