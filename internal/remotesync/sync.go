// Package remotesync commits a contacts document to a file in a GitHub
// repository using the Contents API: read the file's current sha, then write
// the new content with that sha as the precondition.
package remotesync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	gh "contactsync/internal/github"
	"contactsync/internal/xmldoc"

	"go.uber.org/zap"
)

// Contents is the subset of the GitHub Contents API a Syncer needs.
// *github.Client implements it.
type Contents interface {
	FileSHA(ctx context.Context, ref gh.FileRef) (string, error)
	PutFile(ctx context.Context, ref gh.FileRef, content []byte, message, sha string) (gh.PutResult, error)
}

const DefaultMessage = "Update contacts.xml"

type Result struct {
	File        string `json:"file"`
	PreviousSHA string `json:"previous_sha"`
	NewSHA      string `json:"new_sha,omitempty"`
	CommitSHA   string `json:"commit_sha,omitempty"`
	CommitURL   string `json:"commit_url,omitempty"`
	Bytes       int    `json:"bytes"`
	// EncodedBytes is the size of the base64 payload sent to the API.
	EncodedBytes int  `json:"encoded_bytes"`
	DryRun       bool `json:"dry_run,omitempty"`
}

type Syncer struct {
	api     Contents
	ref     gh.FileRef
	message string
	dryRun  bool
	logger  *zap.Logger

	inFlight atomic.Bool
}

type Option func(*Syncer)

func WithMessage(msg string) Option {
	return func(s *Syncer) {
		if msg != "" {
			s.message = msg
		}
	}
}

// WithDryRun reads the version marker but skips the write.
func WithDryRun(enabled bool) Option {
	return func(s *Syncer) {
		s.dryRun = enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(api Contents, ref gh.FileRef, opts ...Option) (*Syncer, error) {
	if api == nil {
		return nil, errors.New("remotesync: contents api is nil")
	}
	if ref.Owner == "" || ref.Repo == "" || ref.Path == "" {
		return nil, fmt.Errorf("remotesync: owner, repo and path are required (got %q)", ref.String())
	}
	s := &Syncer{
		api:     api,
		ref:     ref,
		message: DefaultMessage,
		logger:  zap.NewNop(),
	}
	for _, apply := range opts {
		if apply != nil {
			apply(s)
		}
	}
	return s, nil
}

// Sync writes doc to the remote file. Only one Sync runs at a time; a call
// made while another is in flight returns ErrSyncInProgress without touching
// the network.
func (s *Syncer) Sync(ctx context.Context, doc xmldoc.Document) (Result, error) {
	if ctx == nil {
		return Result{}, fmt.Errorf("Sync: nil context")
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	file := s.ref.String()
	res := Result{
		File:         file,
		Bytes:        doc.Size(),
		EncodedBytes: len(doc.Base64()),
		DryRun:       s.dryRun,
	}
	log := s.logger.With(zap.String("repo", s.ref.Owner+"/"+s.ref.Repo), zap.String("path", s.ref.Path))

	sha, err := s.api.FileSHA(ctx, s.ref)
	if err != nil {
		log.Warn("read version marker failed", zap.Error(err))
		return res, &SyncError{Stage: StageReadMarker, File: file, Err: err}
	}
	if sha == "" {
		log.Warn("remote file has no version marker")
		return res, &SyncError{Stage: StageReadMarker, File: file, Err: ErrMissingVersionMarker}
	}
	res.PreviousSHA = sha

	if s.dryRun {
		log.Info("dry run: skipping write", zap.String("sha", sha), zap.Int("bytes", res.Bytes))
		return res, nil
	}

	put, err := s.api.PutFile(ctx, s.ref, doc.Body, s.message, sha)
	if err != nil {
		log.Warn("write remote file failed", zap.String("sha", sha), zap.Error(err))
		return res, &SyncError{Stage: StageWrite, File: file, Err: err}
	}
	res.NewSHA = put.ContentSHA
	res.CommitSHA = put.CommitSHA
	res.CommitURL = put.CommitURL

	log.Info("remote file updated",
		zap.String("previous_sha", sha),
		zap.String("sha", put.ContentSHA),
		zap.String("commit", put.CommitSHA),
	)
	return res, nil
}
