package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggle(t *testing.T) {
	var s Set

	assert.True(t, s.Toggle("1"))
	assert.True(t, s.Has("1"))
	assert.False(t, s.Toggle("1"))
	assert.False(t, s.Has("1"))
	assert.True(t, s.Empty())
}

func TestSelectAllVisibleTogglesBetweenAllAndNone(t *testing.T) {
	s := New("9")
	visible := []string{"1", "2", "3"}

	s.SelectAllVisible(visible)
	assert.Equal(t, []string{"1", "2", "3"}, s.IDs(), "prior selection is replaced")

	s.SelectAllVisible(visible)
	assert.True(t, s.Empty(), "second press deselects all")

	s.Toggle("2")
	s.SelectAllVisible(visible)
	assert.Equal(t, 3, s.Len(), "partial selection becomes full selection")
}

func TestSelectAllVisibleOnEmptyList(t *testing.T) {
	s := New("1")
	s.SelectAllVisible(nil)
	assert.True(t, s.Empty())

	s.SelectAllVisible(nil)
	assert.True(t, s.Empty())
}

func TestClear(t *testing.T) {
	s := New("1", "2")
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.IDs())
}

func TestRetain(t *testing.T) {
	s := New("1", "2", "3")

	assert.True(t, s.Retain([]string{"2", "3", "4"}))
	assert.Equal(t, []string{"2", "3"}, s.IDs())
	assert.False(t, s.Retain([]string{"2", "3"}))
}

func TestEqualsIgnoresDuplicates(t *testing.T) {
	s := New("a", "b")
	assert.True(t, s.Equals([]string{"b", "a", "a"}))
	assert.False(t, s.Equals([]string{"a"}))
	assert.False(t, s.Equals([]string{"a", "b", "c"}))
}
