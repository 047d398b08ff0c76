package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/camml/pkg/bitgraph"
	"github.com/matzehuels/camml/pkg/enumerate"
	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/extension"
)

// enumerateCommand creates the enumerate command.
func (c *CLI) enumerateCommand() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "enumerate [n]",
		Short: "Enumerate every DAG over n labelled variables",
		Long: fmt.Sprintf(`Enumerate builds one TOM per distinct DAG over n variables and checks the
count against Robinson's recurrence. n must be below %d.`, enumerate.MaxGraphSize),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			prog := newProgress(c.Logger)
			dags, err := enumerate.EnumerateDAGs(n)
			if err != nil {
				return err
			}
			prog.done("Enumerated DAGs", "n", n, "dags", len(dags))

			if list {
				for _, t := range dags {
					fmt.Println(t)
				}
			}
			printSuccess("%s DAGs over %d variables", StyleNumber.Render(strconv.Itoa(len(dags))), n)
			if want := extension.NumDAGsBig(n); want.IsInt64() && want.Int64() != int64(len(dags)) {
				printWarning("expected %s", want)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print every DAG")
	return cmd
}

// countCommand creates the count command.
func (c *CLI) countCommand() *cobra.Command {
	var (
		nodes   int
		arcs    string
		wallace bool
	)

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the linear extensions of a DAG",
		Long: `Count returns the number of total orders consistent with a DAG, i.e. the
number of TOMs that describe it.`,
		Example: `  camml count --nodes 4 --arcs 0-1,1-2
  camml count --nodes 3 --arcs 0-2,1-2 --wallace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parseArcs(arcs)
			if err != nil {
				return err
			}
			g, err := bitgraph.FromArcs(nodes, pairs)
			if err != nil {
				return err
			}

			if wallace {
				n, err := extension.WallaceCounter{}.LPerms(g)
				if err != nil {
					return err
				}
				printSuccess("%s linear extensions", StyleNumber.Render(strconv.FormatUint(n, 10)))
				return nil
			}
			counter := extension.NewDynamicCounter()
			n, err := counter.CountPerms(g)
			if err != nil {
				return err
			}
			hits, misses := counter.Stats()
			c.Logger.Debug("counted extensions", "cache_hits", hits, "cache_misses", misses)
			printSuccess("%s linear extensions", StyleNumber.Render(strconv.FormatFloat(n, 'f', -1, 64)))
			return nil
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 0, "number of variables")
	cmd.Flags().StringVar(&arcs, "arcs", "", "comma-separated arcs, e.g. 0-1,1-2")
	cmd.Flags().BoolVar(&wallace, "wallace", false, "use the exact recursive counter (small graphs only)")
	_ = cmd.MarkFlagRequired("nodes")
	return cmd
}

// interleaveCommand creates the interleave command.
func (c *CLI) interleaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interleave [a] [b]",
		Short: "Count the interleavings of two ordered sequences",
		Long:  `Interleave prints C(a+b, a), the number of ways to merge a sequence of length a with one of length b.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseCount(args[0])
			if err != nil {
				return err
			}
			b, err := parseCount(args[1])
			if err != nil {
				return err
			}
			n, err := extension.Interleave(a, b)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

// dagsCommand creates the dags command.
func (c *CLI) dagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dags [n]",
		Short: "Count the labelled DAGs over n variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			fmt.Println(extension.NumDAGsBig(n).String())
			return nil
		},
	}
}

// =============================================================================
// Argument Parsing
// =============================================================================

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%q is not a non-negative integer", s)
	}
	return n, nil
}

// parseArcs parses "0-1,1-2" into arc pairs. An empty string has no arcs.
func parseArcs(s string) ([][2]int, error) {
	var arcs [][2]int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, ok := strings.Cut(part, "-")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "arc %q must look like 0-1", part)
		}
		i, err1 := strconv.Atoi(strings.TrimSpace(from))
		j, err2 := strconv.Atoi(strings.TrimSpace(to))
		if err1 != nil || err2 != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "arc %q must join two node indices", part)
		}
		arcs = append(arcs, [2]int{i, j})
	}
	return arcs, nil
}
