package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raikasdev/howareya/app"
	"github.com/raikasdev/howareya/core/store"
)

var (
	snoozeID    int64
	snoozeOwner string
)

var snoozeCmd = &cobra.Command{
	Use:   "snooze",
	Short: "Restart a contact's frequency clock without booking",
	RunE:  runSnooze,
}

func init() {
	snoozeCmd.Flags().Int64Var(&snoozeID, "id", 0, "contact id")
	snoozeCmd.Flags().StringVar(&snoozeOwner, "owner", "", "owner user id")
	_ = snoozeCmd.MarkFlagRequired("id")
	_ = snoozeCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(snoozeCmd)
}

func runSnooze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	err = store.Snooze(commandContext(cmd), st, snoozeID, snoozeOwner, time.Now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("contact %d not found for %s", snoozeID, snoozeOwner)
	case errors.Is(err, store.ErrStale):
		fmt.Fprintf(cmd.OutOrStdout(), "contact %d already has a later meeting\n", snoozeID)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "contact %d snoozed\n", snoozeID)
	return nil
}
