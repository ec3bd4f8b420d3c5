package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Edit the schedule, amounts and solver settings",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	values := tui.SetupValuesFrom(cfg)
	form := tui.NewSetupForm(&values)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	if err := values.Apply(&cfg); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `cfplan setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
