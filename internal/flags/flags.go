package flags

// Package flags defines canonical CLI flag names shared by the cobra wiring
// and by error messages produced during config validation.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Remote.Repo, flags.FlagRepo, "", "...")
//	arg := "--" + flags.FlagRepo
const (
	// Source
	FlagSource         = "source"
	FlagSort           = "sort"
	FlagDirectoryAttrs = "directory-attrs"

	// Edit
	FlagName   = "name"
	FlagNumber = "number"

	// Remote
	FlagRepo    = "repo"
	FlagPath    = "path"
	FlagBranch  = "branch"
	FlagMessage = "message"
	FlagAPIURL  = "api-url"
	FlagDryRun  = "dry-run"

	// Output
	FlagFormat = "format"
	FlagOut    = "out"

	// Runtime
	FlagConfig  = "config"
	FlagTimeout = "timeout"
	FlagVerbose = "verbose"
)
