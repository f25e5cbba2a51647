package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"contactsync/internal/app"
	"contactsync/internal/flags"
	gh "contactsync/internal/github"
	"contactsync/internal/loader"
	"contactsync/internal/output"
	"contactsync/internal/remotesync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func noArgs(cmd *cobra.Command, args []string) error {
	return usageError(cobra.NoArgs(cmd, args))
}

func exactArgs(n int) cobra.PositionalArgs {
	check := cobra.ExactArgs(n)
	return func(cmd *cobra.Command, args []string) error {
		return usageError(check(cmd, args))
	}
}

// commandContext bounds a command's work by --timeout.
func (st *state) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, st.cfg.Runtime.Timeout)
}

// newSession wires a loader for --source and, when withRemote is set, a
// syncer for the --repo/--path target.
func (st *state) newSession(ctx context.Context, cmd *cobra.Command, withRemote bool) (*app.Session, error) {
	cfg := st.cfg

	l, err := loader.New(cfg.Source.Path,
		loader.WithHTTPClient(&http.Client{Timeout: cfg.Runtime.Timeout}),
		loader.WithSort(cfg.Source.Sort),
		loader.WithLogger(st.logger),
	)
	if err != nil {
		return nil, usageError(err)
	}

	opts := []app.Option{app.WithLogger(st.logger)}
	// Unless asked for, the attribute variant follows the loaded document.
	if cfg.Source.DirectoryAttrs || cmd.Flags().Changed(flags.FlagDirectoryAttrs) {
		opts = append(opts, app.WithDirectoryAttrs(cfg.Source.DirectoryAttrs))
	}
	if withRemote {
		syncer, err := st.newSyncer(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithSyncer(syncer))
	}
	return app.NewSession(l, opts...)
}

func (st *state) newSyncer(ctx context.Context) (*remotesync.Syncer, error) {
	cfg := st.cfg
	if err := cfg.ValidateRemote(); err != nil {
		return nil, usageError(err)
	}

	token, source, err := gh.ResolveAuthToken(ctx, "", cfg.APIHost())
	if err != nil {
		return nil, fmt.Errorf("resolve GitHub token: %w", err)
	}
	if token == "" {
		return nil, usageError(fmt.Errorf("no GitHub token: set %s or %s, or run `gh auth login`", gh.EnvToolToken, gh.EnvGitHubToken))
	}
	st.logger.Debug("resolved GitHub token", zap.String("source", string(source)))

	client, err := gh.NewClient(ctx, token,
		gh.WithVerbose(cfg.Runtime.Verbose, st.logger),
		gh.WithBaseURL(cfg.Remote.APIURL),
		gh.WithTimeout(cfg.Runtime.Timeout),
	)
	if err != nil {
		return nil, usageError(fmt.Errorf("invalid --%s value: %w", flags.FlagAPIURL, err))
	}

	ref := gh.FileRef{
		Owner:  cfg.Remote.Owner,
		Repo:   cfg.Remote.Name,
		Path:   cfg.Remote.Path,
		Branch: cfg.Remote.Branch,
	}
	syncer, err := remotesync.New(client, ref,
		remotesync.WithMessage(cfg.Remote.Message),
		remotesync.WithDryRun(cfg.Remote.DryRun),
		remotesync.WithLogger(st.logger),
	)
	if err != nil {
		return nil, usageError(err)
	}
	return syncer, nil
}

// loadForEdit loads the working file. A missing file starts an empty list.
func (st *state) loadForEdit(ctx context.Context, sess *app.Session) error {
	_, err := sess.Load(ctx)
	var le *loader.LoadError
	if errors.As(err, &le) && le.Kind == loader.KindNotFound {
		st.logger.Info("starting a new contacts file", zap.String("source", st.cfg.Source.Path))
		return nil
	}
	return err
}

// emit writes one event to stdout in the configured format.
func (st *state) emit(cmd *cobra.Command, e output.Event) error {
	sink := output.NewConsoleSink(cmd.OutOrStdout(), st.cfg.Output.Format)
	if err := sink.Write(e); err != nil {
		return err
	}
	return sink.Close()
}
