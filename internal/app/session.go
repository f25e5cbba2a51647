// Package app ties the contact store to its I/O: a Session loads the store
// from its source once, applies edits, and writes the result back, to an
// export path, or to GitHub.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"contactsync/internal/contacts"
	"contactsync/internal/export"
	"contactsync/internal/loader"
	"contactsync/internal/remotesync"
	"contactsync/internal/xmldoc"

	"go.uber.org/zap"
)

var ErrNoRemote = errors.New("no remote configured")

type Session struct {
	store    *contacts.Store
	loader   *loader.Loader
	exporter *export.Exporter
	syncer   *remotesync.Syncer
	logger   *zap.Logger

	// directoryAttrs forces the MicroSIP attributes on or off; when nil the
	// variant detected on the last Load is kept.
	directoryAttrs *bool
	detected       atomic.Bool
}

type Option func(*Session)

func WithSyncer(s *remotesync.Syncer) Option {
	return func(sess *Session) {
		sess.syncer = s
	}
}

// WithDirectoryAttrs forces MicroSIP's extra attributes on or off. Without
// it a session writes them only if the loaded document had them.
func WithDirectoryAttrs(enabled bool) Option {
	return func(sess *Session) {
		sess.directoryAttrs = &enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(sess *Session) {
		if logger != nil {
			sess.logger = logger
		}
	}
}

func NewSession(l *loader.Loader, opts ...Option) (*Session, error) {
	if l == nil {
		return nil, errors.New("session: loader is nil")
	}
	s := &Session{
		store:  contacts.NewStore(),
		loader: l,
		logger: zap.NewNop(),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(s)
		}
	}
	s.exporter = export.New(s.logger)
	return s, nil
}

func (s *Session) Store() *contacts.Store {
	return s.store
}

// Load replaces the store contents with the source's contacts. On failure
// the store is left empty and the error is returned.
func (s *Session) Load(ctx context.Context) (contacts.List, error) {
	list, meta, err := s.loader.LoadMeta(ctx)
	if err != nil {
		s.store.Replace(contacts.List{})
		s.detected.Store(false)
		return contacts.List{}, err
	}
	s.store.Replace(list)
	s.detected.Store(meta.DirectoryAttrs)
	return list, nil
}

// DirectoryAttrs reports whether Document writes MicroSIP's attributes.
func (s *Session) DirectoryAttrs() bool {
	if s.directoryAttrs != nil {
		return *s.directoryAttrs
	}
	return s.detected.Load()
}

// Document serializes the current snapshot.
func (s *Session) Document() xmldoc.Document {
	return xmldoc.Marshal(s.store.Snapshot(), xmldoc.WithDirectoryAttrs(s.DirectoryAttrs()))
}

// Save writes the current snapshot back to the (local) source.
func (s *Session) Save() (string, error) {
	if s.loader.IsRemote() {
		return "", fmt.Errorf("save: source %s is not a local file", s.loader.Source())
	}
	return s.Export(s.loader.Source())
}

// Export writes the current snapshot to dest (see export.Exporter.Export).
func (s *Session) Export(dest string) (string, error) {
	path, err := s.exporter.Export(s.Document(), dest)
	if err != nil {
		s.logger.Warn("export failed", zap.String("dest", dest), zap.Error(err))
		return "", err
	}
	return path, nil
}

// Push commits the current snapshot through the configured syncer.
func (s *Session) Push(ctx context.Context) (remotesync.Result, error) {
	if s.syncer == nil {
		return remotesync.Result{}, ErrNoRemote
	}
	return s.syncer.Sync(ctx, s.Document())
}
