package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/camml/pkg/config"
	"github.com/matzehuels/camml/pkg/data"
	"github.com/matzehuels/camml/pkg/pipeline"
	"github.com/matzehuels/camml/pkg/search"
)

// searchOpts holds the flags of the search command. Flags only override the
// config file when they were given explicitly.
type searchOpts struct {
	learner    string
	maxComb    int
	epochs     int
	factor     float64
	chains     int
	seed       uint64
	anneal     int
	temp       float64
	arcProb    float64
	policy     search.Policy
	exhaustive bool
	noCache    bool
	refresh    bool
	tui        bool
	output     string
	format     string
	detailed   bool
}

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var opts searchOpts

	cmd := &cobra.Command{
		Use:   "search [data.csv]",
		Short: "Learn causal structure from a CSV dataset",
		Long: `Search samples DAGs over the columns of a CSV file and reports the most
probable MML equivalence classes. The first row names the variables; every
distinct value in a column is a state of that variable.

Datasets with fewer than six variables can be scored exhaustively with
--exhaustive instead of being sampled.`,
		Example: `  camml search asia.csv
  camml search asia.csv --chains 4 --anneal 2000 --tui
  camml search asia.csv --swap-weight 0.5 --adjacent-swaps=false
  camml search asia.csv -o best.svg --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.learner, "learner", pipeline.DefaultLearner, "local model learner: dual, cpt, wallace")
	cmd.Flags().IntVar(&opts.maxComb, "max-combinations", 0, "largest parent configuration count a learner accepts")
	cmd.Flags().IntVar(&opts.epochs, "epochs", 0, "sampling epochs per chain (overrides --search-factor)")
	cmd.Flags().Float64Var(&opts.factor, "search-factor", search.DefaultSearchFactor, "scale of the derived epoch budget")
	cmd.Flags().IntVar(&opts.chains, "chains", search.DefaultChains, "independent chains run in parallel")
	cmd.Flags().Uint64Var(&opts.seed, "seed", search.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&opts.anneal, "anneal", 0, "annealing epochs before sampling")
	cmd.Flags().Float64Var(&opts.temp, "temperature", search.DefaultTemperature, "sampling temperature")
	cmd.Flags().Float64Var(&opts.arcProb, "arc-prob", search.DefaultArcProb, "prior probability of an arc between two variables")
	def := search.DefaultPolicy()
	cmd.Flags().Float64Var(&opts.policy.ArcWeight, "arc-weight", def.ArcWeight, "proposal weight of adding or removing an arc")
	cmd.Flags().Float64Var(&opts.policy.SwapWeight, "swap-weight", def.SwapWeight, "proposal weight of swapping two variables in the order")
	cmd.Flags().Float64Var(&opts.policy.ReverseWeight, "reverse-weight", def.ReverseWeight, "proposal weight of reversing an arc")
	cmd.Flags().BoolVar(&opts.policy.AdjacentSwaps, "adjacent-swaps", def.AdjacentSwaps, "swap only neighbouring order positions")
	cmd.Flags().BoolVar(&opts.exhaustive, "exhaustive", false, "score every DAG instead of sampling (fewer than 6 variables)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "search again even if a cached result exists")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show an interactive progress view (q stops early)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the best structure to this file")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot, svg, pdf, png (default from extension)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label nodes with their model and cost")

	return cmd
}

func (c *CLI) runSearch(cmd *cobra.Command, path string, opts searchOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	format, err := outputFormat(opts.output, opts.format)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	ds, err := data.LoadCSV(path)
	if err != nil {
		return err
	}
	prog.done("Loaded dataset", "variables", ds.NumVars(), "records", ds.Len())

	po := searchOptions(cmd, cfg, opts)
	po.Name = filepath.Base(path)
	po.Data = ds

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	p, err := runner.Prepare(ctx, po)
	if err != nil {
		return err
	}

	res, cached := p.Cached, p.Cached != nil
	if !cached {
		switch {
		case po.Exhaustive:
			res, err = runExhaustive(ctx, p.Searcher)
		case opts.tui:
			res, err = runSearchTUI(ctx, p.Searcher)
		default:
			res, err = runSearchSpinner(ctx, p.Searcher)
		}
		if err != nil {
			return err
		}
	}

	printNewline()
	fmt.Println(StyleTitle.Render("MML equivalence classes") + " " + StyleDim.Render(po.Name))
	printResult(res, cached)

	if !cached {
		run, err := runner.Finish(ctx, p, res)
		if err != nil {
			return err
		}
		if run != nil {
			printKeyValue("Run", run.ID)
		}
	}

	if opts.output != "" && len(res.MMLECs) > 0 {
		out, err := runner.Render(ctx, res, p.Key, pipeline.RenderOptions{Format: format, Detailed: opts.detailed})
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.output, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.output, err)
		}
		printSuccess("Rendered best structure")
		printFile(opts.output)
	} else if opts.output == "" && len(res.MMLECs) > 0 {
		printNextStep("Draw the best structure", fmt.Sprintf("camml search %s -o best.svg", path))
	}
	return nil
}

// searchOptions merges the config file with the flags the user set.
func searchOptions(cmd *cobra.Command, cfg *config.Config, opts searchOpts) pipeline.Options {
	po := pipeline.Options{
		Learner:         cfg.Learner.Kind,
		MaxCombinations: cfg.Learner.MaxCombinations,
		Search:          cfg.SearchOptions(),
		Exhaustive:      opts.exhaustive,
		Refresh:         opts.refresh,
	}
	f := cmd.Flags()
	if f.Changed("learner") {
		po.Learner = opts.learner
	}
	if f.Changed("max-combinations") {
		po.MaxCombinations = opts.maxComb
	}
	if f.Changed("epochs") {
		po.Search.Epochs = opts.epochs
	}
	if f.Changed("search-factor") {
		po.Search.SearchFactor = opts.factor
	}
	if f.Changed("chains") {
		po.Search.Chains = opts.chains
	}
	if f.Changed("seed") {
		po.Search.Seed = opts.seed
	}
	if f.Changed("anneal") {
		po.Search.AnnealEpochs = opts.anneal
	}
	if f.Changed("temperature") {
		po.Search.Temperature = opts.temp
	}
	if f.Changed("arc-prob") {
		po.Search.ArcProb = opts.arcProb
	}
	if f.Changed("arc-weight") {
		po.Search.Policy.ArcWeight = opts.policy.ArcWeight
	}
	if f.Changed("swap-weight") {
		po.Search.Policy.SwapWeight = opts.policy.SwapWeight
	}
	if f.Changed("reverse-weight") {
		po.Search.Policy.ReverseWeight = opts.policy.ReverseWeight
	}
	if f.Changed("adjacent-swaps") {
		po.Search.Policy.AdjacentSwaps = opts.policy.AdjacentSwaps
	}
	return po
}

// outputFormat picks the render format from --format or the file extension.
func outputFormat(output, format string) (string, error) {
	if output == "" {
		return "", nil
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
		if format == "" || format == "gv" {
			format = "dot"
		}
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return "", err
	}
	return format, nil
}

// =============================================================================
// Search Runners
// =============================================================================

func runExhaustive(ctx context.Context, s *search.Searcher) (*search.Result, error) {
	spinner := newSpinnerWithContext(ctx, "Scoring every DAG...")
	spinner.Start()
	res, err := s.Exhaustive(ctx)
	if err != nil {
		spinner.Stop()
		return nil, err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Scored all DAGs in %s", res.Duration.Round(time.Millisecond)))
	return res, nil
}

// runSearchSpinner runs the sampler in the background and mirrors its
// progress on the spinner line.
func runSearchSpinner(ctx context.Context, s *search.Searcher) (*search.Result, error) {
	logger := loggerFromContext(ctx)
	job := s.Start(ctx)
	spinner := newSpinnerWithContext(ctx, "Sampling...")
	spinner.Start()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case <-job.Done():
			done = true
		case <-ticker.C:
			spinner.SetMessage(progressLine(job.Progress()))
		}
	}

	res, err := job.Wait()
	if err != nil {
		spinner.Stop()
		return nil, err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Sampled %d structures in %s", int(res.Samples), res.Duration.Round(time.Millisecond)))
	logger.Debug("search finished", "accepted", res.Accepted, "rejected", res.Rejected, "secs", res.SECs)
	return res, nil
}

// progressLine formats a job snapshot, e.g. "Sampling 42% · best 1234.56 nats".
func progressLine(p search.Progress) string {
	line := fmt.Sprintf("Sampling %3.0f%%", 100*p.Fraction())
	if p.Epoch > 0 {
		line += fmt.Sprintf(" · best %.2f nats", p.BestCost)
	}
	if p.Stopping {
		line += " · stopping"
	}
	return line
}
