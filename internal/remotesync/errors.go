package remotesync

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVersionMarker means the remote file lookup succeeded but
	// returned no sha, so the write is not attempted.
	ErrMissingVersionMarker = errors.New("remote file has no version marker (sha)")

	// ErrSyncInProgress is returned when another Sync on the same Syncer has
	// not finished yet.
	ErrSyncInProgress = errors.New("a sync is already in progress")
)

type Stage string

const (
	StageReadMarker Stage = "read_marker"
	StageWrite      Stage = "write"
)

// SyncError reports the stage at which a sync failed.
type SyncError struct {
	Stage Stage
	File  string
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %s: %v", e.File, e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
