package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/rates"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the stored term-deposit rate sheets",
}

var ratesImportCmd = &cobra.Command{
	Use:   "import <file|url>",
	Short: "Load a rate sheet CSV into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatesImport,
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the stored rate sheets",
	RunE:  runRatesList,
}

func init() {
	ratesCmd.AddCommand(ratesImportCmd, ratesListCmd)
	rootCmd.AddCommand(ratesCmd)
}

func runRatesImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc := args[0]

	var tbl *rates.Table
	if pipeline.IsURL(loc) {
		tbl, err = rates.Fetch(cmd.Context(), nil, loc)
	} else {
		tbl, err = rates.LoadCSV(loc)
	}
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveBuckets(tbl.Buckets(), loc); err != nil {
		return err
	}
	total, err := st.BucketCount()
	if err != nil {
		return err
	}
	fmt.Printf("  Imported %d buckets over %d effective dates from %s (%d stored)\n",
		tbl.Len(), len(tbl.Dates()), loc, total)
	return nil
}

func runRatesList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	buckets, err := st.Buckets()
	if err != nil {
		return err
	}
	fmt.Println()
	if len(buckets) == 0 {
		fmt.Println("  No stored rates. Run `cfplan rates import <file|url>`.")
		fmt.Println()
		return nil
	}
	fmt.Print(cli.RenderTable(bucketTable(buckets)))
	fmt.Println()
	return nil
}

func bucketTable(buckets []rates.Bucket) cli.Table {
	t := cli.Table{
		Title:       "Stored rate sheets",
		Headers:     []string{"Effective", "Term", "Unit", "Days", "Rate"},
		LeftAligned: []int{1, 2},
	}
	for i, b := range buckets {
		if i > 0 && b.Effective != buckets[i-1].Effective {
			t.Rows = append(t.Rows, cli.SeparatorRow)
		}
		t.Rows = append(t.Rows, []string{
			b.Effective.String(),
			b.Label,
			b.Unit,
			fmt.Sprintf("%d-%d", b.MinDays, b.MaxDays),
			cli.FormatRate(b.Rate),
		})
	}
	return t
}
