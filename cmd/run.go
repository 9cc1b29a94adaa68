package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/raikasdev/howareya/app"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/trigger"
)

var (
	runContactID int64
	runOwnerID   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one booking sweep now, or force-book a single contact",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().Int64Var(&runContactID, "contact", 0, "force-book only this contact id")
	runCmd.Flags().StringVar(&runOwnerID, "owner", "", "owner of --contact")
	runCmd.MarkFlagsRequiredTogether("contact", "owner")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := commandContext(cmd)
	var report model.RunReport
	if runContactID > 0 {
		report, err = svc.Runner.Single(ctx, model.ScheduleRequest{ContactID: runContactID, OwnerID: runOwnerID}, trigger.SourceCLI)
	} else {
		report, err = svc.Runner.Sweep(ctx, trigger.SourceCLI)
	}
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), report)
}

func printReport(out io.Writer, r model.RunReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run %s (%s) finished in %s\n", r.ID, r.Trigger, r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, "CONTACT\tOWNER\tOUTCOME\tSTART\tREASON")
	for _, res := range r.Results {
		start := "-"
		if !res.Start.IsZero() {
			start = res.Start.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", res.ContactID, res.OwnerID, res.Outcome, start, res.Reason)
	}
	return w.Flush()
}
