package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/network"
)

var flagNetworkArcs bool

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show the day network: net flows and arcs per node",
	RunE:  runNetwork,
}

func init() {
	networkCmd.Flags().BoolVar(&flagNetworkArcs, "arcs", false, "List every arc leaving each node")
	rootCmd.AddCommand(networkCmd)
}

func runNetwork(cmd *cobra.Command, _ []string) error {
	in, err := loadInputs(cmd.Context())
	if err != nil {
		return err
	}
	defer in.Close()

	p, err := in.prepare()
	if err != nil {
		return err
	}
	g := p.Graph()

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("NETWORK  %s → %s", in.cfg.Horizon.Start, in.cfg.Horizon.End)))
	fmt.Println()
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Nodes", cli.FormatNumber(int64(len(g.Nodes())))},
		{"Carry arcs", cli.FormatNumber(int64(g.ArcCount(model.Carry)))},
		{"Investable arcs", cli.FormatNumber(int64(g.ArcCount(model.Investable)))},
		{"Last day to invest", lastInvestLabel(g)},
		{"Inflow / outflow", cli.FormatMoney(g.Calendar().TotalInflow()) + " / " + cli.FormatMoney(g.Calendar().TotalOutflow())},
	}))
	fmt.Println()

	if flagNetworkArcs {
		printNetworkArcs(g)
		return nil
	}
	fmt.Print(cli.RenderTable(nodeTable(g)))
	fmt.Println()
	return nil
}

func lastInvestLabel(g *network.Graph) string {
	i := g.LastInvestIndex()
	if i < 0 {
		return "none (horizon too short)"
	}
	return cli.FormatDate(g.Nodes()[i].Date)
}

// nodeTable shows every day with its event, net flow and arc counts.
func nodeTable(g *network.Graph) cli.Table {
	sched := g.Calendar().Schedule()
	t := cli.Table{
		Title:       "Nodes",
		Headers:     []string{"#", "Date", "Event", "Net flow", "Carry out", "Invest out", "Carry in", "Invest in"},
		LeftAligned: []int{1, 2},
	}
	for _, n := range g.Nodes() {
		event := ""
		if e, ok := sched.EventOn(n.Date.Day); ok {
			event = string(e)
		}
		if n.Index == g.Terminal() {
			event = "end"
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%d", n.Index),
			cli.FormatDate(n.Date),
			event,
			cli.FormatSigned(n.NetFlow),
			fmt.Sprintf("%d", len(g.Successors(model.Carry, n.Index))),
			fmt.Sprintf("%d", len(g.Successors(model.Investable, n.Index))),
			fmt.Sprintf("%d", len(g.Predecessors(model.Carry, n.Index))),
			fmt.Sprintf("%d", len(g.Predecessors(model.Investable, n.Index))),
		})
	}
	return t
}

// printNetworkArcs lists the successors of every node, one line per family.
func printNetworkArcs(g *network.Graph) {
	for _, n := range g.Nodes() {
		fmt.Printf("  node %d  %s\n", n.Index, cli.FormatDate(n.Date))
		for _, fam := range model.Families {
			succ := g.Successors(fam, n.Index)
			if len(succ) == 0 {
				continue
			}
			targets := make([]string, len(succ))
			for i, j := range succ {
				targets[i] = fmt.Sprintf("%d", j)
			}
			fmt.Printf("    %-10s (%d) -> %s\n", fam, len(succ), strings.Join(targets, " "))
		}
	}
	fmt.Println()
}
