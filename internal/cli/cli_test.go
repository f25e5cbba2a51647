package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = Run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func listRows(t *testing.T, source string) []map[string]any {
	t.Helper()
	code, out, errOut := run(t, "list", "--source", source, "--format", "json")
	if code != exitOK {
		t.Fatalf("list exit %d; stderr=%s", code, errOut)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("list output is not a JSON array: %v\n%s", err, out)
	}
	return rows
}

func TestEditCommands_RoundTrip(t *testing.T) {
	source := filepath.Join(t.TempDir(), "contacts.xml")

	if code, _, errOut := run(t, "add", "--source", source, "--name", "Zoe", "--number", "900"); code != exitOK {
		t.Fatalf("add exit %d; stderr=%s", code, errOut)
	}
	if code, _, errOut := run(t, "add", "--source", source, "--name", "Ana"); code != exitOK {
		t.Fatalf("add exit %d; stderr=%s", code, errOut)
	}
	if code, _, errOut := run(t, "set", "--source", source, "1", "number", "123"); code != exitOK {
		t.Fatalf("set exit %d; stderr=%s", code, errOut)
	}

	want := []map[string]any{
		{"index": float64(0), "name": "Zoe", "number": "900"},
		{"index": float64(1), "name": "Ana", "number": "123"},
	}
	if diff := cmp.Diff(want, listRows(t, source)); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	code, out, _ := run(t, "list", "--source", source, "--sort", "--format", "json")
	if code != exitOK {
		t.Fatalf("sorted list exit %d", code)
	}
	if strings.Index(out, "Ana") > strings.Index(out, "Zoe") {
		t.Fatalf("expected Ana before Zoe with --sort:\n%s", out)
	}

	if code, _, errOut := run(t, "delete", "--source", source, "0"); code != exitOK {
		t.Fatalf("delete exit %d; stderr=%s", code, errOut)
	}
	want = []map[string]any{{"index": float64(0), "name": "Ana", "number": "123"}}
	if diff := cmp.Diff(want, listRows(t, source)); diff != "" {
		t.Fatalf("rows after delete mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_EmptyEntry(t *testing.T) {
	source := filepath.Join(t.TempDir(), "contacts.xml")

	code, out, errOut := run(t, "add", "--source", source)
	if code != exitOK {
		t.Fatalf("add exit %d; stderr=%s", code, errOut)
	}
	if !strings.Contains(out, "Saved 1 contacts to "+source) {
		t.Fatalf("unexpected output: %q", out)
	}
	b, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), `<contact name="" number="" />`) {
		t.Fatalf("unexpected document: %s", b)
	}
}

func TestEdit_OutOfRangeLeavesFileUnchanged(t *testing.T) {
	source := filepath.Join(t.TempDir(), "contacts.xml")
	if code, _, _ := run(t, "add", "--source", source, "--name", "Ana"); code != exitOK {
		t.Fatalf("add failed")
	}
	before, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	for _, args := range [][]string{
		{"set", "--source", source, "5", "name", "X"},
		{"delete", "--source", source, "1"},
	} {
		code, _, errOut := run(t, args...)
		if code != exitFailure {
			t.Fatalf("%v: expected exit %d, got %d", args, exitFailure, code)
		}
		if !strings.Contains(errOut, "out of range") {
			t.Fatalf("%v: expected out of range error, got %q", args, errOut)
		}
	}

	after, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("file changed:\nbefore=%s\nafter=%s", before, after)
	}
}

func TestUsageErrors(t *testing.T) {
	source := filepath.Join(t.TempDir(), "contacts.xml")
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"list", "--nope"}},
		{name: "bad format", args: []string{"list", "--source", source, "--format", "yaml"}},
		{name: "bad timeout", args: []string{"list", "--source", source, "--timeout", "0s"}},
		{name: "set arity", args: []string{"set", "--source", source, "0", "name"}},
		{name: "set bad index", args: []string{"set", "--source", source, "x", "name", "Ana"}},
		{name: "set negative index", args: []string{"set", "--source", source, "-1", "name", "Ana"}},
		{name: "set bad field", args: []string{"set", "--source", source, "0", "email", "a@b"}},
		{name: "delete arity", args: []string{"delete", "--source", source}},
		{name: "list extra args", args: []string{"list", "--source", source, "extra"}},
		{name: "edit remote source", args: []string{"add", "--source", "https://example.com/contacts.xml"}},
		{name: "push bad repo", args: []string{"push", "--source", source, "--repo", "a/b/c"}},
		{name: "push bad api url", args: []string{"push", "--source", source, "--repo", "a/b", "--api-url", "ftp://x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, tt.args...)
			if code != exitUsage {
				t.Fatalf("expected exit %d, got %d; stderr=%s", exitUsage, code, errOut)
			}
			if !strings.Contains(errOut, "Error:") {
				t.Fatalf("expected error message, got %q", errOut)
			}
		})
	}
}

func TestRoot_UnknownCommand(t *testing.T) {
	code, _, errOut := run(t, "bogus")
	if code != exitUsage {
		t.Fatalf("expected exit %d, got %d; stderr=%s", exitUsage, code, errOut)
	}
	if !strings.Contains(errOut, `unknown command "bogus"`) {
		t.Fatalf("unexpected stderr %q", errOut)
	}

	code, out, _ := run(t)
	if code != exitOK || !strings.Contains(out, "Usage:") {
		t.Fatalf("bare invocation should print help; exit %d, out %q", code, out)
	}
}

func TestSet_ControlCharactersKeepFileReadable(t *testing.T) {
	source := filepath.Join(t.TempDir(), "contacts.xml")
	if code, _, _ := run(t, "add", "--source", source, "--name", "Ana"); code != exitOK {
		t.Fatalf("add failed")
	}

	for _, value := range []string{"Ana\x01", "Ana\xff"} {
		if code, _, errOut := run(t, "set", "--source", source, "0", "name", value); code != exitOK {
			t.Fatalf("set %q exit %d; stderr=%s", value, code, errOut)
		}
		rows := listRows(t, source)
		if len(rows) != 1 || rows[0]["name"] != "Ana\uFFFD" {
			t.Fatalf("set %q: unexpected rows %v", value, rows)
		}
	}
}

func TestEdit_KeepsDirectoryAttrs(t *testing.T) {
	source := filepath.Join(t.TempDir(), "contacts.xml")
	doc := `<?xml version="1.0"?> <contacts><contact name="Ana" number="1" info="Not online" presence="1" directory="1" /></contacts>`
	if err := os.WriteFile(source, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if code, _, errOut := run(t, "add", "--source", source, "--name", "Bob"); code != exitOK {
		t.Fatalf("add exit %d; stderr=%s", code, errOut)
	}
	b, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n := strings.Count(string(b), `info="Not online" presence="1" directory="1"`); n != 2 {
		t.Fatalf("expected attributes kept on both contacts, got %d:\n%s", n, b)
	}

	if code, _, errOut := run(t, "delete", "--source", source, "--directory-attrs=false", "1"); code != exitOK {
		t.Fatalf("delete exit %d; stderr=%s", code, errOut)
	}
	b, err = os.ReadFile(source)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(b), "directory=") {
		t.Fatalf("--directory-attrs=false should strip the attributes:\n%s", b)
	}
}

func TestList_Text(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "contacts.xml")
	doc := `<?xml version="1.0"?> <contacts><contact name="Ana" number="123" /><contact name="Bob" number="456" /></contacts>`
	if err := os.WriteFile(source, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	code, out, errOut := run(t, "list", "--source", source)
	if code != exitOK {
		t.Fatalf("list exit %d; stderr=%s", code, errOut)
	}
	for _, want := range []string{"2 contacts", "NAME", "Ana", "456"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	empty := filepath.Join(dir, "empty.xml")
	if err := os.WriteFile(empty, []byte(`<contacts></contacts>`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, out, _ = run(t, "list", "--source", empty)
	if strings.TrimSpace(out) != "No contacts." {
		t.Fatalf("unexpected empty output %q", out)
	}
}

func TestList_Failures(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.xml")
	if err := os.WriteFile(broken, []byte(`<contacts><contact`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	for _, source := range []string{broken, filepath.Join(dir, "missing.xml")} {
		code, out, errOut := run(t, "list", "--source", source)
		if code != exitFailure {
			t.Fatalf("%s: expected exit %d, got %d", source, exitFailure, code)
		}
		if out != "" {
			t.Fatalf("%s: expected no stdout, got %q", source, out)
		}
		if !strings.Contains(errOut, "load "+source) {
			t.Fatalf("%s: unexpected stderr %q", source, errOut)
		}
	}
}

func TestList_HTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<contacts><contact name="Ana" number="1" /></contacts>`)
	}))
	defer server.Close()

	rows := listRows(t, server.URL+"/contacts.xml")
	if len(rows) != 1 || rows[0]["name"] != "Ana" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "contacts.xml")
	if code, _, _ := run(t, "add", "--source", source, "--name", "Ana", "--number", "1"); code != exitOK {
		t.Fatalf("add failed")
	}

	outDir := filepath.Join(dir, "dist") + string(filepath.Separator)
	code, out, errOut := run(t, "export", "--source", source, "--directory-attrs", "--out", outDir, "--format", "ndjson")
	if code != exitOK {
		t.Fatalf("export exit %d; stderr=%s", code, errOut)
	}

	var ev struct {
		Type  string `json:"type"`
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &ev); err != nil {
		t.Fatalf("export output is not JSON: %v\n%s", err, out)
	}
	wantPath := filepath.Join(dir, "dist", "contacts.xml")
	if ev.Type != "contacts.exported" || ev.Path != wantPath || ev.Count != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	b, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := `<?xml version="1.0"?> <contacts><contact name="Ana" number="1" info="Not online" presence="1" directory="1" /></contacts>`
	if string(b) != want {
		t.Fatalf("unexpected export:\nwant %s\ngot  %s", want, b)
	}
}

// fakeGitHub serves the Contents API for one file and records requests.
type fakeGitHub struct {
	mu      sync.Mutex
	methods []string
	put     map[string]any
	auth    string
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, r.Method)
	f.auth = r.Header.Get("Authorization")

	if r.URL.Path != "/repos/acme/phonebook/contents/public/contacts.xml" {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
		return
	}
	switch r.Method {
	case http.MethodGet:
		fmt.Fprint(w, `{"type":"file","name":"contacts.xml","path":"public/contacts.xml","sha":"old-sha"}`)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &f.put)
		fmt.Fprint(w, `{"content":{"sha":"new-sha"},"commit":{"sha":"commit-sha","html_url":"https://github.com/acme/phonebook/commit/commit-sha"}}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func pushEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONTACTSYNC_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "test-token")
}

func TestPush(t *testing.T) {
	pushEnv(t)
	fake := &fakeGitHub{}
	server := httptest.NewServer(fake)
	defer server.Close()

	source := filepath.Join(t.TempDir(), "contacts.xml")
	if code, _, _ := run(t, "add", "--source", source, "--name", "Ana", "--number", "1"); code != exitOK {
		t.Fatalf("add failed")
	}

	code, out, errOut := run(t, "push", "--source", source,
		"--repo", "acme/phonebook", "--path", "public/contacts.xml",
		"--message", "Sync phonebook", "--api-url", server.URL, "--format", "json")
	if code != exitOK {
		t.Fatalf("push exit %d; stderr=%s", code, errOut)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if diff := cmp.Diff([]string{http.MethodGet, http.MethodPut}, fake.methods); diff != "" {
		t.Fatalf("request sequence mismatch (-want +got):\n%s", diff)
	}
	if fake.auth != "Bearer test-token" {
		t.Fatalf("unexpected Authorization header %q", fake.auth)
	}
	if fake.put["sha"] != "old-sha" || fake.put["message"] != "Sync phonebook" {
		t.Fatalf("unexpected PUT body: %v", fake.put)
	}
	content, err := base64.StdEncoding.DecodeString(fmt.Sprint(fake.put["content"]))
	if err != nil {
		t.Fatalf("content is not base64: %v", err)
	}
	if !strings.Contains(string(content), `<contact name="Ana" number="1" />`) {
		t.Fatalf("unexpected pushed document: %s", content)
	}

	var ev struct {
		Type  string `json:"type"`
		Count int    `json:"count"`
		Sync  struct {
			File      string `json:"file"`
			CommitSHA string `json:"commit_sha"`
		} `json:"sync"`
	}
	if err := json.Unmarshal([]byte(out), &ev); err != nil {
		t.Fatalf("push output is not JSON: %v\n%s", err, out)
	}
	if ev.Type != "contacts.synced" || ev.Count != 1 || ev.Sync.CommitSHA != "commit-sha" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestPush_DryRunAndMissingFile(t *testing.T) {
	pushEnv(t)
	fake := &fakeGitHub{}
	server := httptest.NewServer(fake)
	defer server.Close()

	source := filepath.Join(t.TempDir(), "contacts.xml")
	if code, _, _ := run(t, "add", "--source", source); code != exitOK {
		t.Fatalf("add failed")
	}

	code, out, errOut := run(t, "push", "--source", source, "--repo", "acme/phonebook", "--api-url", server.URL, "--dry-run")
	if code != exitOK {
		t.Fatalf("dry run exit %d; stderr=%s", code, errOut)
	}
	if !strings.Contains(out, "Dry run") || !strings.Contains(out, "old-sha") {
		t.Fatalf("unexpected dry run output %q", out)
	}

	code, _, errOut = run(t, "push", "--source", source, "--repo", "acme/phonebook", "--path", "other.xml", "--api-url", server.URL)
	if code != exitFailure {
		t.Fatalf("expected exit %d for missing remote file, got %d", exitFailure, code)
	}
	if !strings.Contains(errOut, "read_marker") {
		t.Fatalf("expected read_marker failure, got %q", errOut)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, m := range fake.methods {
		if m == http.MethodPut {
			t.Fatalf("unexpected PUT: %v", fake.methods)
		}
	}
}

func TestPush_NoToken(t *testing.T) {
	t.Setenv("CONTACTSYNC_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("PATH", t.TempDir())

	source := filepath.Join(t.TempDir(), "contacts.xml")
	code, _, errOut := run(t, "push", "--source", source, "--repo", "acme/phonebook")
	if code != exitUsage {
		t.Fatalf("expected exit %d, got %d; stderr=%s", exitUsage, code, errOut)
	}
	if !strings.Contains(errOut, "no GitHub token") {
		t.Fatalf("unexpected stderr %q", errOut)
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "phonebook.xml")
	if err := os.WriteFile(source, []byte(`<contacts><contact name="Ana" number="1" /></contacts>`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	configPath := filepath.Join(dir, "contactsync.yaml")
	if err := os.WriteFile(configPath, []byte("source: "+source+"\nformat: ndjson\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	code, out, errOut := run(t, "list", "--config", configPath)
	if code != exitOK {
		t.Fatalf("list exit %d; stderr=%s", code, errOut)
	}
	if !strings.Contains(out, `"type":"contact"`) || !strings.Contains(out, `"name":"Ana"`) {
		t.Fatalf("expected ndjson from config file, got %q", out)
	}

	code, out, _ = run(t, "list", "--config", configPath, "--format", "json")
	if code != exitOK || !strings.HasPrefix(strings.TrimSpace(out), "[") {
		t.Fatalf("flag should override config file; exit %d, out %q", code, out)
	}

	if code, _, _ := run(t, "list", "--config", filepath.Join(dir, "missing.yaml")); code != exitUsage {
		t.Fatalf("expected exit %d for missing config file, got %d", exitUsage, code)
	}
}

func TestVersion(t *testing.T) {
	SetBuildInfo("1.2.3", "abc", "2026-01-01")
	t.Cleanup(func() { SetBuildInfo("dev", "unknown", "unknown") })

	code, out, _ := run(t, "version")
	if code != exitOK {
		t.Fatalf("version exit %d", code)
	}
	if !strings.Contains(out, "contactsync 1.2.3") || !strings.Contains(out, "commit: abc") {
		t.Fatalf("unexpected output %q", out)
	}
}
