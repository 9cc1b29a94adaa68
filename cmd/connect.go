package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raikasdev/howareya/app"
	"github.com/raikasdev/howareya/core/calapi"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/core/store"
)

var (
	connectUser string
	connectKey  string
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Validate a scheduling API key and store it for a user",
	RunE:  runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&connectUser, "user", "", "user id")
	connectCmd.Flags().StringVar(&connectKey, "key", "", "scheduling service API key")
	_ = connectCmd.MarkFlagRequired("user")
	_ = connectCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := commandContext(cmd)
	profile, err := app.NewCalClient(cfg).GetProfile(ctx, connectKey)
	if calapi.IsUnavailable(err) {
		return errors.New("API key rejected: profile could not be loaded")
	}
	if err != nil {
		return err
	}

	_, err = st.GetUser(ctx, connectUser)
	switch {
	case errors.Is(err, store.ErrNotFound):
		err = st.SaveUser(ctx, model.User{ID: connectUser, Name: profile.Name, Email: profile.Email, APIKey: connectKey})
	case err == nil:
		err = st.SetAPIKey(ctx, connectUser, connectKey)
	}
	if err != nil {
		return fmt.Errorf("store API key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "connected %s as %s (%s)\n", connectUser, profile.Name, profile.TimeZone)
	return nil
}
