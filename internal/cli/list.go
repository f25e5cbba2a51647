package cli

import (
	"contactsync/internal/output"

	"github.com/spf13/cobra"
)

func newListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the contacts with their indexes",
		Long: `Print the contacts of --source with the 0-based indexes used by set and
delete. --source may be a local file or an http(s) URL.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := st.commandContext(cmd)
			defer cancel()

			sess, err := st.newSession(ctx, cmd, false)
			if err != nil {
				return err
			}
			list, err := sess.Load(ctx)
			if err != nil {
				return err
			}

			sink := output.NewConsoleSink(cmd.OutOrStdout(), st.cfg.Output.Format)
			if err := sink.Write(output.Rows(list)); err != nil {
				return err
			}
			return sink.Close()
		},
	}
}
