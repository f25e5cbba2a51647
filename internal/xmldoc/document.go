// Package xmldoc converts contact lists to and from the contacts.xml
// phonebook format:
//
//	<?xml version="1.0"?> <contacts><contact name="Ana" number="123" /></contacts>
package xmldoc

import (
	"encoding/base64"
	"encoding/xml"
	"strings"

	"contactsync/internal/contacts"
)

const (
	MediaType       = "application/xml"
	DefaultFilename = "contacts.xml"

	header = `<?xml version="1.0"?> `
)

// Document is a serialized contact list ready to be written to disk or
// uploaded.
type Document struct {
	Body      []byte
	MediaType string
	Filename  string
}

func (d Document) Size() int {
	return len(d.Body)
}

// Base64 returns the body in standard base64, the encoding the GitHub
// Contents API expects for file content.
func (d Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Body)
}

type marshalOptions struct {
	directoryAttrs bool
}

type Option func(*marshalOptions)

// WithDirectoryAttrs adds the static info/presence/directory attributes that
// MicroSIP expects on every phonebook entry.
func WithDirectoryAttrs(enabled bool) Option {
	return func(o *marshalOptions) {
		o.directoryAttrs = enabled
	}
}

// Marshal renders l as a contacts document. Attribute values are escaped so
// any name or number yields well-formed XML: markup characters and tab/newline
// become character references, and runes XML cannot carry (control
// characters, invalid UTF-8) become U+FFFD.
func Marshal(l contacts.List, opts ...Option) Document {
	o := &marshalOptions{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<contacts>")
	for _, c := range l.All() {
		b.WriteString(`<contact name="`)
		escapeAttr(&b, c.Name)
		b.WriteString(`" number="`)
		escapeAttr(&b, c.Number)
		b.WriteString(`"`)
		if o.directoryAttrs {
			b.WriteString(` info="Not online" presence="1" directory="1"`)
		}
		b.WriteString(" />")
	}
	b.WriteString("</contacts>")

	return Document{
		Body:      []byte(b.String()),
		MediaType: MediaType,
		Filename:  DefaultFilename,
	}
}

func escapeAttr(b *strings.Builder, v string) {
	// strings.Builder never returns a write error.
	_ = xml.EscapeText(b, []byte(v))
}
