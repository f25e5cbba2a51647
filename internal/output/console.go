package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"
)

// ConsoleSink renders command output on a writer in one of the text, json
// or ndjson formats.
type ConsoleSink struct {
	writer io.Writer
	format string // "text", "json", "ndjson"
	mu     sync.Mutex
	rows   []Row
	// sawRows records that a row list was written, so an empty list still
	// renders as [] in JSON mode.
	sawRows bool
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

// Write accepts a Row, a []Row or an Event.
func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case []Row:
		s.sawRows = true
		for _, r := range t {
			if err := s.writeLocked(r); err != nil {
				return err
			}
		}
		return nil
	case Row:
		s.sawRows = true
	}
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	switch s.format {
	case "json":
		switch t := v.(type) {
		case Row:
			s.rows = append(s.rows, t)
			return nil
		case Event:
			encoder := json.NewEncoder(s.writer)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case Row:
			if err := encoder.Encode(eventFromRow(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		switch t := v.(type) {
		case Row:
			// Rendered as an aligned table on Close.
			s.rows = append(s.rows, t)
			return nil
		case Event:
			if err := writeEventText(s.writer, t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func writeEventText(w io.Writer, e Event) error {
	var err error
	switch e.Type {
	case EventSaved:
		_, err = fmt.Fprintf(w, "Saved %d contacts to %s\n", e.Count, e.Path)
	case EventExported:
		_, err = fmt.Fprintf(w, "Exported %d contacts to %s\n", e.Count, e.Path)
	case EventSynced:
		if e.Sync == nil {
			return nil
		}
		if e.Sync.DryRun {
			_, err = fmt.Fprintf(w, "Dry run: would update %s (current sha %s, %d contacts, %d bytes)\n",
				e.Sync.File, e.Sync.PreviousSHA, e.Count, e.Sync.Bytes)
			return err
		}
		_, err = fmt.Fprintf(w, "Updated %s with %d contacts (commit %s)\n", e.Sync.File, e.Count, e.Sync.CommitSHA)
		if err == nil && e.Sync.CommitURL != "" {
			_, err = fmt.Fprintf(w, "  %s\n", e.Sync.CommitURL)
		}
	}
	return err
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		if !s.sawRows {
			return nil
		}
		rows := s.rows
		if rows == nil {
			rows = []Row{}
		}
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rows); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text":
		if !s.sawRows {
			return nil
		}
		if len(s.rows) == 0 {
			if _, err := fmt.Fprintln(s.writer, "No contacts."); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		}
		// Escape codes would skew tabwriter's column widths, so only the
		// title line is styled.
		if _, err := color.New(color.Bold).Fprintf(s.writer, "%d contacts\n", len(s.rows)); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(s.writer, 0, 4, 2, ' ', 0)
		if _, err := fmt.Fprintln(tw, "#\tNAME\tNUMBER"); err != nil {
			return err
		}
		for _, r := range s.rows {
			if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Index, r.Name, r.Number); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

type flusher interface {
	Flush() error
}

// flushIfPossible flushes buffered writers (e.g. bufio.Writer) so streamed
// lines reach the terminal as they are produced.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
