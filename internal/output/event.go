package output

import (
	"contactsync/internal/contacts"
	"contactsync/internal/remotesync"
)

// Row is one contact together with its position in the list. Positions are
// the indexes accepted by the set and delete commands.
type Row struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Rows converts a list into positioned rows.
func Rows(l contacts.List) []Row {
	all := l.All()
	out := make([]Row, 0, len(all))
	for i, c := range all {
		out = append(out, Row{Index: i, Name: c.Name, Number: c.Number})
	}
	return out
}

const (
	EventContact  = "contact"
	EventSaved    = "contacts.saved"
	EventExported = "contacts.exported"
	EventSynced   = "contacts.synced"
)

// Event is a record for NDJSON streaming output; JSON and text modes render
// the same information in their own shape.
type Event struct {
	Type string `json:"type"`
	*Row
	Path  string             `json:"path,omitempty"`
	Count int                `json:"count"`
	Sync  *remotesync.Result `json:"sync,omitempty"`
}

func eventFromRow(r Row) Event {
	return Event{Type: EventContact, Row: &r, Count: 1}
}
