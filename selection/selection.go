// ABOUTME: Selection set manager for listing views
// ABOUTME: Tracks selected record ids with toggle, select-all-visible, and clear
package selection

import "sort"

// Set is an unordered set of selected record ids scoped to one listing view.
// The zero value is an empty, usable set.
type Set struct {
	ids map[string]struct{}
}

func New(ids ...string) *Set {
	s := &Set{}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *Set) add(id string) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	s.ids[id] = struct{}{}
}

// Toggle adds id if absent and removes it if present. It reports whether id is
// selected afterwards.
func (s *Set) Toggle(id string) bool {
	if s.Has(id) {
		delete(s.ids, id)
		return false
	}
	s.add(id)
	return true
}

// SelectAllVisible selects exactly visible, unless the selection already equals
// that set, in which case it clears. This backs a "select all / deselect all" button.
func (s *Set) SelectAllVisible(visible []string) {
	if s.Equals(visible) {
		s.Clear()
		return
	}
	s.ids = make(map[string]struct{}, len(visible))
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.ids = nil
}

// Retain drops every selected id that is not in visible and reports whether
// anything was removed.
func (s *Set) Retain(visible []string) bool {
	keep := make(map[string]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}
	removed := false
	for id := range s.ids {
		if _, ok := keep[id]; !ok {
			delete(s.ids, id)
			removed = true
		}
	}
	return removed
}

func (s *Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	return len(s.ids)
}

func (s *Set) Empty() bool {
	return len(s.ids) == 0
}

// Equals reports whether the selection is exactly the set of ids (duplicates ignored).
// An empty selection never equals an empty visible list, so select-all on an
// empty view stays a no-op clear.
func (s *Set) Equals(ids []string) bool {
	if len(s.ids) == 0 {
		return false
	}
	uniq := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.ids[id]; !ok {
			return false
		}
		uniq[id] = struct{}{}
	}
	return len(uniq) == len(s.ids)
}

// IDs returns the selected ids sorted, for deterministic iteration and output.
func (s *Set) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
