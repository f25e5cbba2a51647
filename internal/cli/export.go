package cli

import (
	"contactsync/internal/flags"
	"contactsync/internal/output"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the contacts document to a local file",
		Long: `Serialize --source and write it to --out. A directory (or a path ending
in a separator) receives contacts.xml; any other path is used as the file
name. Without --out the document is written to ./contacts.xml.`,
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
			path, err := sess.Export(st.cfg.Output.Out)
			if err != nil {
				return err
			}
			st.logger.Info("contacts exported", zap.String("path", path), zap.Int("count", list.Len()))
			return st.emit(cmd, output.Event{Type: output.EventExported, Path: path, Count: list.Len()})
		},
	}
	cmd.Flags().StringVar(&st.cfg.Output.Out, flags.FlagOut, "", "Destination file or directory (default ./contacts.xml)")
	return cmd
}
