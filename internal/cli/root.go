package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"contactsync/internal/config"
	"contactsync/internal/flags"
	"contactsync/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries the process exit code for an error returned by a
// command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitUsage, err: err}
}

// ExitCode maps an error returned by the root command to a process exit
// code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

// state is shared by every subcommand of one root command.
type state struct {
	cfg    *config.Config
	logger *zap.Logger
}

func NewRootCommand() *cobra.Command {
	st := &state{cfg: config.New(), logger: zap.NewNop()}
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "contactsync",
		Short: "Edit a contacts.xml phonebook and publish it to GitHub",
		Long: `contactsync edits a small name/number phonebook stored as contacts.xml and
publishes it either as a local file or as a commit to a GitHub repository.

Examples:
	# Show the phonebook
	contactsync list --sort

	# Add, change and remove entries in ./contacts.xml
	contactsync add --name Ana --number 123
	contactsync set 0 number 456
	contactsync delete 1

	# Write a copy for MicroSIP
	contactsync export --directory-attrs --out ./dist/

	# Commit the phonebook to GitHub
	export GITHUB_TOKEN="<your_token>"
	contactsync push --repo acme/phonebook --path public/contacts.xml

	# Keep the target in a file instead of repeating flags
	contactsync push --config contactsync.yaml

Output:
	Results go to stdout as text (default), json or ndjson (--format).
	Logs go to stderr as JSON lines; --verbose adds every GitHub API call.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Unknown subcommands land here as arguments.
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				f, err := config.LoadFile(configPath)
				if err != nil {
					return usageError(err)
				}
				if err := st.cfg.Apply(f, cmd.Flags().Changed); err != nil {
					return usageError(err)
				}
			}
			if err := st.cfg.Validate(); err != nil {
				return usageError(err)
			}
			st.logger = logging.New(st.cfg.Runtime.Verbose, cmd.ErrOrStderr())
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				st.logger.Warn("ignoring unreadable .env file", zap.Error(err))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = st.logger.Sync()
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, flags.FlagConfig, "", "YAML file with default settings (flags override it)")
	pf.StringVar(&st.cfg.Source.Path, flags.FlagSource, st.cfg.Source.Path, "Contacts document to read: local file or http(s) URL")
	pf.BoolVar(&st.cfg.Source.Sort, flags.FlagSort, false, "Sort contacts by name after loading")
	pf.BoolVar(&st.cfg.Source.DirectoryAttrs, flags.FlagDirectoryAttrs, false, `Write MicroSIP attributes (info="Not online" presence="1" directory="1"); by default they are kept only if --source has them, --directory-attrs=false strips them`)
	pf.StringVar(&st.cfg.Output.Format, flags.FlagFormat, st.cfg.Output.Format, "Output format: text|json|ndjson")
	pf.DurationVar(&st.cfg.Runtime.Timeout, flags.FlagTimeout, st.cfg.Runtime.Timeout, "Timeout for loading, saving and pushing")
	pf.BoolVar(&st.cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable debug logging (prints every GitHub API call)")

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(
		newListCmd(st),
		newAddCmd(st),
		newSetCmd(st),
		newDeleteCmd(st),
		newExportCmd(st),
		newPushCmd(st),
		newVersionCmd(),
	)
	return rootCmd
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Run executes the CLI with args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	if args == nil {
		// cobra falls back to os.Args for nil.
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}
