package contacts

import (
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// List is an ordered snapshot of contacts. Transitions never modify the
// receiver; they return a new List backed by a fresh slice.
type List struct {
	items []Contact
}

func NewList(items ...Contact) List {
	return List{items: slices.Clone(items)}
}

func (l List) Len() int {
	return len(l.items)
}

// At returns the contact at index and whether index was in range.
func (l List) At(index int) (Contact, bool) {
	if index < 0 || index >= len(l.items) {
		return Contact{}, false
	}
	return l.items[index], true
}

// All returns a copy of the contacts in order.
func (l List) All() []Contact {
	return slices.Clone(l.items)
}

// Add appends one contact with an empty name and number.
func (l List) Add() List {
	out := make([]Contact, len(l.items), len(l.items)+1)
	copy(out, l.items)
	return List{items: append(out, Contact{})}
}

// Update replaces the contact at index with field set to value.
func (l List) Update(index int, field Field, value string) (List, error) {
	cur, ok := l.At(index)
	if !ok {
		return l, l.rangeError(index)
	}
	next, err := cur.With(field, value)
	if err != nil {
		return l, err
	}
	out := slices.Clone(l.items)
	out[index] = next
	return List{items: out}, nil
}

// Delete removes the contact at index; later contacts shift down by one.
func (l List) Delete(index int) (List, error) {
	if _, ok := l.At(index); !ok {
		return l, l.rangeError(index)
	}
	out := make([]Contact, 0, len(l.items)-1)
	out = append(out, l.items[:index]...)
	out = append(out, l.items[index+1:]...)
	return List{items: out}, nil
}

// Sorted returns a copy ordered by name using root-locale collation, so
// comparison ignores case at the primary level and places lower case first
// on ties. Equal names keep their relative order.
func (l List) Sorted() List {
	out := slices.Clone(l.items)
	c := collate.New(language.Und)
	slices.SortStableFunc(out, func(a, b Contact) int {
		return c.CompareString(a.Name, b.Name)
	})
	return List{items: out}
}

func (l List) rangeError(index int) error {
	return fmt.Errorf("%w: %d (list has %d contacts)", ErrIndexOutOfRange, index, len(l.items))
}
