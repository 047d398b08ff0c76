package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/camml/pkg/errors"
	"github.com/matzehuels/camml/pkg/pipeline"
	"github.com/matzehuels/camml/pkg/store"
)

// openRuns opens the configured run store and the runner around it.
func (c *CLI) openRuns(ctx context.Context) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	runner, err := c.newRunner(ctx, cfg, false)
	if err != nil {
		return nil, err
	}
	if runner.Store == nil {
		runner.Close()
		return nil, errors.New(errors.ErrCodeUnsupported, "run storage is disabled (store.backend = %q)", cfg.Store.Backend)
	}
	return runner, nil
}

// runsCommand creates the runs command.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, show and delete stored search runs",
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	cmd.AddCommand(c.runsDeleteCommand())

	return cmd
}

func (c *CLI) runsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.openRuns(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			runs, err := runner.Store.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No stored runs")
				return nil
			}
			fmt.Println(runsTable(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "maximum number of runs (0 lists all)")
	return cmd
}

func (c *CLI) runsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the MMLECs of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.openRuns(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			run, err := runner.Store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(StyleTitle.Render(run.Dataset) + " " + StyleDim.Render(run.ID))
			printKeyValue("Created", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			printKeyValue("Records", strconv.Itoa(run.Records))
			printKeyValue("Learner", run.Learner)
			if run.Result == nil {
				printWarning("Run has no result")
				return nil
			}
			printResult(run.Result, false)
			printNextStep("Draw a structure", fmt.Sprintf("camml render %s -o best.svg", run.ID))
			return nil
		},
	}
}

func (c *CLI) runsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run-id]...",
		Short: "Delete stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.openRuns(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			for _, id := range args {
				if err := runner.Store.Delete(ctx, id); err != nil {
					return err
				}
				printSuccess("Deleted %s", id)
			}
			return nil
		},
	}
}

// runsTable lays out run headers.
func runsTable(runs []*store.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		state := ""
		if r.Summary.Interrupted {
			state = "interrupted"
		}
		rows[i] = []string{
			r.ID,
			r.Dataset,
			strconv.Itoa(r.Summary.Nodes),
			strconv.Itoa(r.Summary.MMLECs),
			fmt.Sprintf("%.2f", r.Summary.BestMML),
			fmt.Sprintf("%.3f", r.Summary.BestPosterior),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			state,
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Dataset", "Vars", "MMLECs", "Best MML", "Posterior", "Created", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case col == 0 || col == 6:
				return lipgloss.NewStyle().Foreground(colorGray)
			case col == 7:
				return StyleWarning
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output   string
		format   string
		mmlec    int
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "render [run-id]",
		Short: "Draw an MMLEC representative of a stored run",
		Example: `  camml render 3f2a... -o best.svg
  camml render 3f2a... --mmlec 2 -f dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if output != "" {
				f, err := outputFormat(output, format)
				if err != nil {
					return err
				}
				format = f
			} else if format == "" {
				format = "dot"
			}

			runner, err := c.openRuns(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			run, err := runner.Store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if run.Result == nil {
				return errors.New(errors.ErrCodeNotFound, "run %s has no result", run.ID)
			}
			out, err := runner.Render(ctx, run.Result, "run:"+run.ID, pipeline.RenderOptions{
				Format:   format,
				MMLEC:    mmlec,
				Detailed: detailed,
			})
			if err != nil {
				return err
			}

			if output == "" {
				_, err := os.Stdout.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered MMLEC %d", mmlec)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot, svg, pdf, png")
	cmd.Flags().IntVar(&mmlec, "mmlec", 0, "MMLEC index, 0 is the most probable")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with their model and cost")
	return cmd
}
