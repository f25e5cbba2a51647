package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"contactsync/internal/flags"

	"gopkg.in/yaml.v3"
)

// File is the YAML form read by --config. Keys left out of the file keep
// their flag defaults.
//
//	source: contacts.xml
//	sort: true
//	remote:
//	  repo: acme/phonebook
//	  path: public/contacts.xml
type File struct {
	Source         *string    `yaml:"source"`
	Sort           *bool      `yaml:"sort"`
	DirectoryAttrs *bool      `yaml:"directory_attrs"`
	Format         *string    `yaml:"format"`
	Timeout        *string    `yaml:"timeout"`
	Remote         RemoteFile `yaml:"remote"`
}

type RemoteFile struct {
	Repo    *string `yaml:"repo"`
	Path    *string `yaml:"path"`
	Branch  *string `yaml:"branch"`
	Message *string `yaml:"message"`
	APIURL  *string `yaml:"api_url"`
}

// LoadFile reads a YAML config file. Unknown keys are rejected so typos do
// not pass silently.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var out File
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &out, nil
}

// Apply copies the values set in f into c, skipping any setting whose flag
// was given on the command line.
func (c *Config) Apply(f *File, changed func(flag string) bool) error {
	if f == nil {
		return nil
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	setString := func(flag string, dst *string, v *string) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}
	setBool := func(flag string, dst *bool, v *bool) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}

	setString(flags.FlagSource, &c.Source.Path, f.Source)
	setBool(flags.FlagSort, &c.Source.Sort, f.Sort)
	setBool(flags.FlagDirectoryAttrs, &c.Source.DirectoryAttrs, f.DirectoryAttrs)
	setString(flags.FlagFormat, &c.Output.Format, f.Format)
	setString(flags.FlagRepo, &c.Remote.Repo, f.Remote.Repo)
	setString(flags.FlagPath, &c.Remote.Path, f.Remote.Path)
	setString(flags.FlagBranch, &c.Remote.Branch, f.Remote.Branch)
	setString(flags.FlagMessage, &c.Remote.Message, f.Remote.Message)
	setString(flags.FlagAPIURL, &c.Remote.APIURL, f.Remote.APIURL)

	if f.Timeout != nil && !changed(flags.FlagTimeout) {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q in config file: %w", *f.Timeout, err)
		}
		c.Runtime.Timeout = d
	}
	return nil
}
