package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"contactsync/internal/flags"
	"contactsync/internal/loader"
)

const (
	DefaultSource  = "contacts.xml"
	DefaultRepo    = "devgentilnegocios/microsip-gn"
	DefaultPath    = "public/contacts.xml"
	DefaultMessage = "Update contacts.xml"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	// MAINTAINER NOTE: fields here are bound to cobra flags in
	// internal/cli/root.go and internal/cli/push.go; keep them in sync.
	Source  Source
	Remote  Remote
	Output  Output
	Runtime Runtime
}

type Source struct {
	// Path is the contacts document to read: a local file or an http(s) URL
	// (see --source). Edit commands write back to it and require a local file.
	Path string

	// Sort orders contacts by name after loading (see --sort).
	Sort bool

	// DirectoryAttrs adds MicroSIP's info/presence/directory attributes when
	// serializing (see --directory-attrs).
	DirectoryAttrs bool
}

type Remote struct {
	// Repo is the target repository as OWNER/REPO or a GitHub URL (see --repo).
	// Validate normalizes it and fills Owner and Name.
	Repo  string
	Owner string
	Name  string

	// Path is the file path inside the repository (see --path).
	Path string

	// Branch to commit to; empty means the default branch (see --branch).
	Branch string

	// Message is the commit message (see --message).
	Message string

	// APIURL overrides the REST API root, e.g. for GitHub Enterprise Server
	// (see --api-url).
	APIURL string

	// DryRun reads the remote version marker without writing (see --dry-run).
	DryRun bool
}

type Output struct {
	// Format controls command output (see --format).
	// Allowed values: text, json, ndjson.
	Format string

	// Out is the export destination, a directory or file path (see --out).
	Out string
}

type Runtime struct {
	// Timeout bounds each command's network and file work (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// Verbose enables debug logging, including every GitHub API call.
	Verbose bool
}

func New() *Config {
	return &Config{
		Source: Source{
			Path: DefaultSource,
		},
		Remote: Remote{
			Repo:    DefaultRepo,
			Path:    DefaultPath,
			Message: DefaultMessage,
		},
		Output: Output{
			Format: "text",
		},
		Runtime: Runtime{
			Timeout: DefaultTimeout,
		},
	}
}

func (c *Config) Validate() error {
	c.Source.Path = strings.TrimSpace(c.Source.Path)
	if c.Source.Path == "" {
		return fmt.Errorf("--%s must not be empty", flags.FlagSource)
	}

	c.Output.Format = normalizeEnumValue(c.Output.Format)
	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
	if c.Output.Format != "text" && c.Output.Format != "json" && c.Output.Format != "ndjson" {
		return fmt.Errorf("unsupported --%s: %s (must be one of: text, json, ndjson)", flags.FlagFormat, c.Output.Format)
	}
	c.Output.Out = strings.TrimSpace(c.Output.Out)

	if c.Runtime.Timeout <= 0 {
		return fmt.Errorf("--%s must be > 0", flags.FlagTimeout)
	}

	return nil
}

// ValidateRemote normalizes and checks the fields used by push.
func (c *Config) ValidateRemote() error {
	owner, name, err := normalizeRepoSelector(c.Remote.Repo)
	if err != nil {
		return fmt.Errorf("invalid --%s value: %w", flags.FlagRepo, err)
	}
	c.Remote.Owner = owner
	c.Remote.Name = name
	c.Remote.Repo = owner + "/" + name

	p := strings.Trim(strings.TrimSpace(c.Remote.Path), "/")
	if p == "" {
		return fmt.Errorf("--%s must not be empty", flags.FlagPath)
	}
	if cleaned := path.Clean(p); cleaned != p || strings.HasPrefix(cleaned, "..") {
		return fmt.Errorf("invalid --%s value %q: must be a clean repository-relative path", flags.FlagPath, c.Remote.Path)
	}
	c.Remote.Path = p

	c.Remote.Branch = strings.TrimSpace(c.Remote.Branch)
	c.Remote.Message = strings.TrimSpace(c.Remote.Message)
	if c.Remote.Message == "" {
		c.Remote.Message = DefaultMessage
	}

	c.Remote.APIURL = strings.TrimSpace(c.Remote.APIURL)
	if c.Remote.APIURL != "" {
		u, err := url.Parse(c.Remote.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid --%s value %q: must be an http(s) URL", flags.FlagAPIURL, c.Remote.APIURL)
		}
	}
	return nil
}

// RequireLocalSource rejects URL sources for commands that write the
// working file back.
func (c *Config) RequireLocalSource() error {
	if loader.IsRemoteSource(c.Source.Path) {
		return fmt.Errorf("--%s must be a local file for this command (got URL %q)", flags.FlagSource, c.Source.Path)
	}
	return nil
}

// APIHost returns the host used for `gh auth token -h`.
func (c *Config) APIHost() string {
	if c.Remote.APIURL == "" {
		return "github.com"
	}
	u, err := url.Parse(c.Remote.APIURL)
	if err != nil || u.Hostname() == "" {
		return "github.com"
	}
	return u.Hostname()
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// normalizeRepoSelector accepts OWNER/REPO or a GitHub URL such as
//
//	https://github.com/<owner>/<repo>
//	https://github.com/<owner>/<repo>.git
//	github.com/<owner>/<repo>/tree/main/public
func normalizeRepoSelector(raw string) (owner, name string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("repository is required")
	}

	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	isURL := strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
	if isURL {
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", "", fmt.Errorf("%q: not a github.com URL", raw)
		}
		raw = strings.Trim(u.Path, "/")
	}

	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' })
	if len(parts) < 2 || (!isURL && len(parts) != 2) {
		return "", "", fmt.Errorf("%q: expected OWNER/REPO", raw)
	}
	owner = parts[0]
	name = strings.TrimSuffix(parts[1], ".git")
	if owner == "" || name == "" {
		return "", "", fmt.Errorf("%q: expected OWNER/REPO", raw)
	}
	return owner, name, nil
}
