package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/raikasdev/howareya/app"
	"github.com/raikasdev/howareya/core/model"
)

var (
	contactOwner      string
	contactName       string
	contactURL        string
	contactFrequency  string
	contactPreference string
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Manage contacts",
}

var contactAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a contact",
	RunE:  runContactAdd,
}

var contactLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List a user's contacts",
	RunE:  runContactLs,
}

func init() {
	contactCmd.PersistentFlags().StringVar(&contactOwner, "owner", "", "owner user id")
	_ = contactCmd.MarkPersistentFlagRequired("owner")
	contactAddCmd.Flags().StringVar(&contactName, "name", "", "display name")
	contactAddCmd.Flags().StringVar(&contactURL, "url", "", "booking page URL, e.g. https://cal.com/alice/30min")
	contactAddCmd.Flags().StringVar(&contactFrequency, "frequency", string(model.FrequencyMonthly), "weekly|biweekly|monthly|quarterly|annually")
	contactAddCmd.Flags().StringVar(&contactPreference, "preference", string(model.PreferAny), "any|morning|lunchtime|afternoon|evening")
	_ = contactAddCmd.MarkFlagRequired("url")
	contactCmd.AddCommand(contactAddCmd, contactLsCmd)
	rootCmd.AddCommand(contactCmd)
}

func runContactAdd(cmd *cobra.Command, args []string) error {
	c := model.Contact{
		OwnerID:        contactOwner,
		Name:           contactName,
		MeetingURL:     contactURL,
		Frequency:      model.Frequency(contactFrequency),
		TimePreference: model.TimePreference(contactPreference),
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.AddContact(commandContext(cmd), c)
	if err != nil {
		return fmt.Errorf("add contact: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added contact %d\n", id)
	return nil
}

func runContactLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	contacts, err := st.ListByOwner(commandContext(cmd), contactOwner)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFREQUENCY\tPREFERENCE\tLATEST\tURL")
	for _, c := range contacts {
		latest := "never"
		if c.LatestMeeting != nil {
			latest = c.LatestMeeting.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Frequency, c.TimePreference, latest, c.MeetingURL)
	}
	return w.Flush()
}
