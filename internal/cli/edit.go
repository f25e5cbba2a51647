package cli

import (
	"fmt"
	"strconv"

	"contactsync/internal/app"
	"contactsync/internal/contacts"
	"contactsync/internal/flags"
	"contactsync/internal/output"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// editFunc mutates the loaded store; the session is saved afterwards.
type editFunc func(store *contacts.Store) error

// runEdit loads the local working file, applies fn and writes the result
// back to the same file.
func (st *state) runEdit(cmd *cobra.Command, fn editFunc) error {
	if err := st.cfg.RequireLocalSource(); err != nil {
		return usageError(err)
	}

	ctx, cancel := st.commandContext(cmd)
	defer cancel()

	sess, err := st.newSession(ctx, cmd, false)
	if err != nil {
		return err
	}
	if err := st.loadForEdit(ctx, sess); err != nil {
		return err
	}
	if err := fn(sess.Store()); err != nil {
		return err
	}
	return st.save(cmd, sess)
}

func (st *state) save(cmd *cobra.Command, sess *app.Session) error {
	path, err := sess.Save()
	if err != nil {
		return err
	}
	count := sess.Store().Snapshot().Len()
	st.logger.Info("contacts saved", zap.String("path", path), zap.Int("count", count))
	return st.emit(cmd, output.Event{Type: output.EventSaved, Path: path, Count: count})
}

func parseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, usageError(fmt.Errorf("invalid index %q: must be a non-negative integer", raw))
	}
	return i, nil
}

func newAddCmd(st *state) *cobra.Command {
	var name, number string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a contact",
		Long: `Append a contact to --source. Without --name and --number the new
entry is empty and can be filled in later with set. A missing --source file
is created.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.runEdit(cmd, func(store *contacts.Store) error {
				list := store.Add()
				index := list.Len() - 1
				if cmd.Flags().Changed(flags.FlagName) {
					if _, err := store.Update(index, contacts.FieldName, name); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed(flags.FlagNumber) {
					if _, err := store.Update(index, contacts.FieldNumber, number); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, flags.FlagName, "", "Name of the new contact")
	cmd.Flags().StringVar(&number, flags.FlagNumber, "", "Phone number of the new contact")
	return cmd
}

func newSetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set INDEX FIELD VALUE",
		Short: "Change the name or number of one contact",
		Long: `Change one field of the contact at INDEX (as printed by list).
FIELD is "name" or "number". VALUE is stored verbatim.`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			field, err := contacts.ParseField(args[1])
			if err != nil {
				return usageError(err)
			}
			return st.runEdit(cmd, func(store *contacts.Store) error {
				_, err := store.Update(index, field, args[2])
				return err
			})
		},
	}
}

func newDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "delete INDEX",
		Aliases: []string{"rm"},
		Short:   "Remove one contact",
		Long: `Remove the contact at INDEX (as printed by list). Later contacts move
up by one.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return st.runEdit(cmd, func(store *contacts.Store) error {
				_, err := store.Delete(index)
				return err
			})
		},
	}
}
