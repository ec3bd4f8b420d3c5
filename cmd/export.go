package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/mip"
)

var flagExportLP string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the formulated model for an external MIP solver",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagExportLP, "lp", "", "Write the model in CPLEX LP format to this file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if flagExportLP == "" {
		return errors.New("nothing to export: pass --lp <file>")
	}
	in, err := loadInputs(cmd.Context())
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := in.prepare()
	if err != nil {
		return err
	}
	m := p.Formulation().Model
	if err := mip.WriteLPFile(flagExportLP, m); err != nil {
		return err
	}
	fmt.Printf("  Wrote %s (%d variables, %d binaries, %d constraints)\n",
		flagExportLP, m.NumVars(), m.NumBinaries(), m.NumConstraints())
	return nil
}
