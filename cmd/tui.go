package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/tui"
	"github.com/theirongolddev/cfplan/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	in, err := loadInputs(cmd.Context())
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := in.prepare()
	if err != nil {
		return err
	}
	solver, err := in.solver()
	if err != nil {
		return err
	}

	// Log lines would corrupt the alternate screen.
	if log.GetLevel() < logrus.ErrorLevel {
		log.SetLevel(logrus.ErrorLevel)
	}

	solve := func(ctx context.Context) (*pipeline.Result, error) {
		res, err := p.Solve(ctx, solver)
		if err == nil && in.store != nil {
			if err := in.store.SavePlanRun(&model.PlanRun{Summary: res.Summary, Positions: res.Positions}); err != nil {
				log.WithError(err).Error("could not save plan run")
			}
		}
		return res, err
	}

	theme.SetActive(in.cfg.Appearance.Theme)
	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	h := in.cfg.Horizon
	app := tui.NewApp(solve, tui.Options{
		Start:     h.Start,
		End:       h.End,
		RatesDate: h.RatesDate,
		Rates:     in.rates,
		Backend:   in.cfg.Solver.Backend,
	})
	prog := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
