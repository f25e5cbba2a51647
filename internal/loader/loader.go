// Package loader reads a contacts document from a local file or an HTTP(S)
// URL and turns it into a contact list.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"contactsync/internal/contacts"
	"contactsync/internal/xmldoc"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Loader struct {
	source string
	client *http.Client
	sort   bool
	logger *zap.Logger
	group  singleflight.Group
}

type Option func(*Loader)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithSort orders the loaded contacts by name.
func WithSort(enabled bool) Option {
	return func(l *Loader) {
		l.sort = enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(source string, opts ...Option) (*Loader, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("loader: source is required")
	}
	l := &Loader{
		source: source,
		client: http.DefaultClient,
		logger: zap.NewNop(),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(l)
		}
	}
	return l, nil
}

func (l *Loader) Source() string {
	return l.source
}

// IsRemote reports whether the source is fetched over HTTP.
func (l *Loader) IsRemote() bool {
	return IsRemoteSource(l.source)
}

func IsRemoteSource(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load reads and parses the source. Overlapping calls share one read.
func (l *Loader) Load(ctx context.Context) (contacts.List, error) {
	list, _, err := l.LoadMeta(ctx)
	return list, err
}

// LoadMeta is Load that also reports how the source document was written.
func (l *Loader) LoadMeta(ctx context.Context) (contacts.List, xmldoc.Meta, error) {
	if ctx == nil {
		return contacts.List{}, xmldoc.Meta{}, fmt.Errorf("Load: nil context")
	}

	v, err, shared := l.group.Do(l.source, func() (interface{}, error) {
		return l.load(ctx)
	})
	if err != nil {
		l.logger.Warn("load contacts failed", zap.String("source", l.source), zap.Error(err))
		return contacts.List{}, xmldoc.Meta{}, err
	}
	res := v.(loaded)
	l.logger.Debug("contacts loaded",
		zap.String("source", l.source),
		zap.Int("count", res.list.Len()),
		zap.Bool("directory_attrs", res.meta.DirectoryAttrs),
		zap.Bool("shared", shared),
	)
	return res.list, res.meta, nil
}

type loaded struct {
	list contacts.List
	meta xmldoc.Meta
}

func (l *Loader) load(ctx context.Context) (loaded, error) {
	body, err := l.open(ctx)
	if err != nil {
		return loaded{}, err
	}
	defer body.Close()

	list, meta, err := xmldoc.ParseMeta(body)
	if err != nil {
		return loaded{}, &LoadError{Kind: KindParse, Source: l.source, Err: err}
	}
	if l.sort {
		list = list.Sorted()
	}
	return loaded{list: list, meta: meta}, nil
}

func (l *Loader) open(ctx context.Context) (io.ReadCloser, error) {
	if !l.IsRemote() {
		f, err := os.Open(l.source)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &LoadError{Kind: KindNotFound, Source: l.source, Err: err}
			}
			return nil, &LoadError{Kind: KindNetwork, Source: l.source, Err: err}
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, &LoadError{Kind: KindNetwork, Source: l.source, Err: err}
	}
	req.Header.Set("Accept", xmldoc.MediaType)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &LoadError{Kind: KindNetwork, Source: l.source, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		kind := KindNetwork
		if resp.StatusCode == http.StatusNotFound {
			kind = KindNotFound
		}
		return nil, &LoadError{
			Kind:   kind,
			Source: l.source,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	return resp.Body, nil
}
