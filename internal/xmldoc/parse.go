package xmldoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"contactsync/internal/contacts"

	"golang.org/x/text/encoding/ianaindex"
)

// ParseError reports a document that is not well-formed XML.
type ParseError struct {
	// Line is the 1-based line of the failure, or 0 when unknown.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse contacts xml: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse contacts xml: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errNoRoot = errors.New("document has no root element")

// Meta describes how a parsed document was written.
type Meta struct {
	// DirectoryAttrs is set when any contact carries MicroSIP's directory
	// attribute, i.e. the document was written WithDirectoryAttrs(true).
	DirectoryAttrs bool
}

// Parse reads every contact element, at any depth, in document order. A
// missing name or number attribute yields an empty string.
func Parse(r io.Reader) (contacts.List, error) {
	l, _, err := ParseMeta(r)
	return l, err
}

// ParseMeta is Parse that also reports the document's Meta.
func ParseMeta(r io.Reader) (contacts.List, Meta, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var (
		items []contacts.Contact
		meta  Meta
		seen  bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var syn *xml.SyntaxError
			if errors.As(err, &syn) {
				return contacts.List{}, Meta{}, &ParseError{Line: syn.Line, Err: errors.New(syn.Msg)}
			}
			return contacts.List{}, Meta{}, &ParseError{Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		seen = true
		if start.Name.Local != "contact" {
			continue
		}
		var c contacts.Contact
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "name":
				c.Name = attr.Value
			case "number":
				c.Number = attr.Value
			case "directory":
				meta.DirectoryAttrs = true
			}
		}
		items = append(items, c)
	}

	if !seen {
		return contacts.List{}, Meta{}, &ParseError{Err: errNoRoot}
	}
	return contacts.NewList(items...), meta, nil
}

// charsetReader decodes documents that declare a non UTF-8 encoding, which is
// common for phonebooks exported on Windows.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
