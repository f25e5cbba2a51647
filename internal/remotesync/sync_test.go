package remotesync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"contactsync/internal/contacts"
	gh "contactsync/internal/github"
	"contactsync/internal/xmldoc"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const contentsPath = "/repos/acme/phonebook/contents/public/contacts.xml"

var testRef = gh.FileRef{Owner: "acme", Repo: "phonebook", Path: "public/contacts.xml"}

// recorder is a fake Contents API server that records the method of every
// request it receives, in order.
type recorder struct {
	mu      sync.Mutex
	calls   []string
	getBody string
	getCode int
	putBody map[string]string
}

func (rec *recorder) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(contentsPath, func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.calls = append(rec.calls, r.Method)
		rec.mu.Unlock()

		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected Authorization header %q", got)
		}

		switch r.Method {
		case http.MethodGet:
			if rec.getCode != 0 {
				w.WriteHeader(rec.getCode)
			}
			fmt.Fprint(w, rec.getBody)
		case http.MethodPut:
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode put body: %v", err)
			}
			rec.mu.Lock()
			rec.putBody = body
			rec.mu.Unlock()
			fmt.Fprint(w, `{"content":{"sha":"new456"},"commit":{"sha":"c0ffee","html_url":"https://github.com/acme/phonebook/commit/c0ffee"}}`)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func (rec *recorder) methods() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.calls...)
}

func newSyncer(t *testing.T, rec *recorder, opts ...Option) *Syncer {
	t.Helper()
	server := httptest.NewServer(rec.handler(t))
	t.Cleanup(server.Close)

	client, err := gh.NewClient(context.Background(), "test-token", gh.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	s, err := New(client, testRef, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func sampleDoc() xmldoc.Document {
	return xmldoc.Marshal(contacts.NewList(contacts.Contact{Name: "Ana", Number: "123"}))
}

func TestSync_ReadsMarkerThenWrites(t *testing.T) {
	rec := &recorder{getBody: `{"type":"file","sha":"abc123"}`}
	s := newSyncer(t, rec)
	doc := sampleDoc()

	res, err := s.Sync(context.Background(), doc)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if diff := cmp.Diff([]string{http.MethodGet, http.MethodPut}, rec.methods()); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}
	if rec.putBody["sha"] != "abc123" {
		t.Fatalf("expected sha precondition, got %#v", rec.putBody)
	}
	if rec.putBody["message"] != DefaultMessage {
		t.Fatalf("unexpected message %q", rec.putBody["message"])
	}
	if rec.putBody["content"] != base64.StdEncoding.EncodeToString(doc.Body) {
		t.Fatalf("unexpected content %q", rec.putBody["content"])
	}

	want := Result{
		File:         testRef.String(),
		PreviousSHA:  "abc123",
		NewSHA:       "new456",
		CommitSHA:    "c0ffee",
		CommitURL:    "https://github.com/acme/phonebook/commit/c0ffee",
		Bytes:        doc.Size(),
		EncodedBytes: len(doc.Base64()),
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestSync_NoPutWithoutVersionMarker(t *testing.T) {
	tests := []struct {
		name    string
		rec     *recorder
		wantErr error
	}{
		{
			name:    "response without sha",
			rec:     &recorder{getBody: `{"type":"file","name":"contacts.xml"}`},
			wantErr: ErrMissingVersionMarker,
		},
		{
			name:    "directory listing",
			rec:     &recorder{getBody: `[]`},
			wantErr: ErrMissingVersionMarker,
		},
		{
			name: "not found",
			rec:  &recorder{getCode: http.StatusNotFound, getBody: `{"message":"Not Found"}`},
		},
		{
			name: "server error",
			rec:  &recorder{getCode: http.StatusInternalServerError, getBody: `{"message":"boom"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSyncer(t, tt.rec)
			_, err := s.Sync(context.Background(), sampleDoc())

			var serr *SyncError
			if !errors.As(err, &serr) {
				t.Fatalf("expected *SyncError, got %v", err)
			}
			if serr.Stage != StageReadMarker {
				t.Fatalf("expected stage %q, got %q", StageReadMarker, serr.Stage)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if diff := cmp.Diff([]string{http.MethodGet}, tt.rec.methods()); diff != "" {
				t.Fatalf("expected only the GET (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSync_DryRunSkipsWrite(t *testing.T) {
	rec := &recorder{getBody: `{"type":"file","sha":"abc123"}`}
	s := newSyncer(t, rec, WithDryRun(true), WithMessage("custom"))

	res, err := s.Sync(context.Background(), sampleDoc())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.DryRun || res.PreviousSHA != "abc123" || res.CommitSHA != "" {
		t.Fatalf("unexpected result: %#v", res)
	}
	if diff := cmp.Diff([]string{http.MethodGet}, rec.methods()); diff != "" {
		t.Fatalf("dry run must not PUT (-want +got):\n%s", diff)
	}
}

// blockingContents holds FileSHA until release is closed.
type blockingContents struct {
	entered chan struct{}
	release chan struct{}
	puts    int
	mu      sync.Mutex
}

func (b *blockingContents) FileSHA(ctx context.Context, _ gh.FileRef) (string, error) {
	close(b.entered)
	select {
	case <-b.release:
		return "abc123", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (b *blockingContents) PutFile(context.Context, gh.FileRef, []byte, string, string) (gh.PutResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	return gh.PutResult{CommitSHA: "c0ffee"}, nil
}

func TestSync_RejectsConcurrentSync(t *testing.T) {
	api := &blockingContents{entered: make(chan struct{}), release: make(chan struct{})}
	s, err := New(api, testRef)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Sync(context.Background(), sampleDoc())
		done <- err
	}()
	<-api.entered

	for i := 0; i < 3; i++ {
		if _, err := s.Sync(context.Background(), sampleDoc()); !errors.Is(err, ErrSyncInProgress) {
			t.Fatalf("expected ErrSyncInProgress, got %v", err)
		}
	}

	close(api.release)
	if err := <-done; err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if api.puts != 1 {
		t.Fatalf("expected exactly 1 PUT, got %d", api.puts)
	}

	// The guard is released once the first sync completes.
	api.entered = make(chan struct{})
	if _, err := s.Sync(context.Background(), sampleDoc()); err != nil {
		t.Fatalf("Sync after completion: %v", err)
	}
}

func TestNew_Validates(t *testing.T) {
	if _, err := New(nil, testRef); err == nil {
		t.Fatalf("expected error for nil api")
	}
	if _, err := New(&blockingContents{}, gh.FileRef{Owner: "acme", Repo: "phonebook"}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
