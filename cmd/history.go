package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/store"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved plan runs",
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved plan run (id prefix accepted)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved plan run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Number of runs to list")
	historyCmd.AddCommand(historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func runHistory(_ *cobra.Command, _ []string) error {
	st, err := historyStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListPlanRuns(flagHistoryLimit)
	if err != nil {
		return err
	}
	fmt.Println()
	if len(runs) == 0 {
		fmt.Println("  No saved runs yet. Run `cfplan plan` first.")
		fmt.Println()
		return nil
	}

	t := cli.Table{
		Title:       "Plan runs",
		Headers:     []string{"ID", "Created", "Horizon", "Status", "Final cash", "Deposits", "Solve"},
		LeftAligned: []int{1, 2, 3},
	}
	for _, r := range runs {
		s := r.Summary
		t.Rows = append(t.Rows, []string{
			r.ID[:8],
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%s → %s", s.Start, s.End),
			cli.RenderStatus(s.Status),
			cli.FormatMoney(s.Objective),
			fmt.Sprintf("%d", s.Investments),
			cli.FormatDuration(s.SolveDuration),
		})
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	return nil
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	st, err := historyStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.LoadPlanRun(args[0])
	if err != nil {
		return historyError(err, args[0])
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("RUN %s  %s", run.ID[:8], run.CreatedAt.Local().Format("2006-01-02 15:04"))))
	fmt.Println()
	fmt.Print(renderSummary(run.Summary))
	fmt.Println()
	fmt.Print(cli.RenderTable(positionTable("Deposits", run.Positions, model.Investment)))
	fmt.Println()
	return nil
}

func runHistoryDelete(_ *cobra.Command, args []string) error {
	st, err := historyStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.LoadPlanRun(args[0])
	if err != nil {
		return historyError(err, args[0])
	}
	if err := st.DeletePlanRun(run.ID); err != nil {
		return err
	}
	fmt.Printf("  Deleted run %s\n", run.ID)
	return nil
}

func historyError(err error, id string) error {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		return fmt.Errorf("no run matches %q", id)
	case errors.Is(err, store.ErrAmbiguousRun):
		return fmt.Errorf("%q matches several runs; give more of the id", id)
	}
	return err
}
