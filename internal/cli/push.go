package cli

import (
	"contactsync/internal/flags"
	"contactsync/internal/output"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPushCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Commit the contacts document to a GitHub repository",
		Long: `Serialize --source and commit it to --path in --repo through the GitHub
Contents API. The file's current sha is read first and sent as the update
precondition, so the file must already exist. --dry-run stops after that
read.

Authentication uses CONTACTSYNC_GITHUB_TOKEN, GITHUB_TOKEN or the GitHub
CLI (gh auth token), in that order. Variables may also come from ./.env.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.commandContext(cmd)
			defer cancel()

			sess, err := st.newSession(ctx, cmd, true)
			if err != nil {
				return err
			}
			list, err := sess.Load(ctx)
			if err != nil {
				return err
			}
			res, err := sess.Push(ctx)
			if err != nil {
				return err
			}
			st.logger.Info("contacts pushed",
				zap.String("file", res.File),
				zap.String("commit", res.CommitSHA),
				zap.Bool("dry_run", res.DryRun),
				zap.Int("count", list.Len()),
			)
			return st.emit(cmd, output.Event{Type: output.EventSynced, Count: list.Len(), Sync: &res})
		},
	}

	f := cmd.Flags()
	f.StringVar(&st.cfg.Remote.Repo, flags.FlagRepo, st.cfg.Remote.Repo, "Target repository (OWNER/REPO or GitHub URL)")
	f.StringVar(&st.cfg.Remote.Path, flags.FlagPath, st.cfg.Remote.Path, "File path inside the repository")
	f.StringVar(&st.cfg.Remote.Branch, flags.FlagBranch, "", "Branch to commit to (default: repository default branch)")
	f.StringVar(&st.cfg.Remote.Message, flags.FlagMessage, st.cfg.Remote.Message, "Commit message")
	f.StringVar(&st.cfg.Remote.APIURL, flags.FlagAPIURL, "", "GitHub REST API root (GitHub Enterprise Server)")
	f.BoolVar(&st.cfg.Remote.DryRun, flags.FlagDryRun, false, "Read the remote file's sha without committing")
	return cmd
}
