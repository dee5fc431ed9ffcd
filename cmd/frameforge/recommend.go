package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oxbowmantella/frameforge/internal/build"
	"github.com/oxbowmantella/frameforge/internal/catalog"
	"github.com/oxbowmantella/frameforge/internal/config"
	"github.com/oxbowmantella/frameforge/internal/store"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

type recommendFlags struct {
	budget       float64
	cpuBrand     string
	gpuBrand     string
	buildID      string
	term         string
	page         int
	perPage      int
	useRemaining bool
	strict       bool
	asJSON       bool
}

var recFlags recommendFlags

var recommendCmd = &cobra.Command{
	Use:   "recommend <category>",
	Short: "Rank parts for one category without starting the server",
	Long: "Runs one recommendation query against the configured search backend. " +
		"With --build the saved build supplies budget, preferences and prior selections.",
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

func init() {
	f := recommendCmd.Flags()
	f.Float64Var(&recFlags.budget, "budget", 0, "total build budget in dollars")
	f.StringVar(&recFlags.cpuBrand, "cpu-brand", "", "preferred CPU brand (AMD or Intel)")
	f.StringVar(&recFlags.gpuBrand, "gpu-brand", "", "preferred GPU brand (NVIDIA or AMD)")
	f.StringVar(&recFlags.buildID, "build", "", "load budget and selections from a saved build")
	f.StringVar(&recFlags.term, "term", "", "free-text search term")
	f.IntVar(&recFlags.page, "page", 1, "result page")
	f.IntVar(&recFlags.perPage, "per-page", 10, "results per page")
	f.BoolVar(&recFlags.useRemaining, "use-remaining", false, "size the price band from the remaining budget")
	f.BoolVar(&recFlags.strict, "strict", false, "reject candidates missing compatibility attributes")
	f.BoolVar(&recFlags.asJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	category, err := parts.ParseCategory(args[0])
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	b, err := loadBuild(ctx, cfg, recFlags)
	if err != nil {
		return err
	}

	searcher, err := newSearcher(cfg, logger.Named("search"))
	if err != nil {
		return err
	}
	ec, err := engineConfig(cfg)
	if err != nil {
		return err
	}
	engine := catalog.NewEngine(searcher, ec, logger.Named("engine"), nil)

	res, err := engine.Recommend(ctx, catalog.Query{
		Category:     category,
		Build:        b,
		Page:         recFlags.page,
		ItemsPerPage: recFlags.perPage,
		SearchTerm:   recFlags.term,
		UseRemaining: recFlags.useRemaining,
		Strict:       recFlags.strict,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if recFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printResult(out, category, res)
}

// loadBuild returns the saved build named by f.buildID, or an empty build
// carrying the flag budget and brands. Flags override saved values.
func loadBuild(ctx context.Context, cfg *config.Config, f recommendFlags) (models.Build, error) {
	b := models.NewBuild("cli")
	if f.buildID != "" {
		db, err := store.New(cfg.GetString("database.path"))
		if err != nil {
			return b, err
		}
		defer db.Close()
		repo, err := build.NewSQLiteRepository(ctx, db)
		if err != nil {
			return b, err
		}
		if b, err = repo.Get(ctx, f.buildID); err != nil {
			return b, fmt.Errorf("load build %s: %w", f.buildID, err)
		}
	}
	if f.budget > 0 {
		b.Budget = f.budget
	}
	if f.cpuBrand != "" {
		b.Preferences.CPUBrand = f.cpuBrand
	}
	if f.gpuBrand != "" {
		b.Preferences.GPUBrand = f.gpuBrand
	}
	return b, nil
}

func printResult(w io.Writer, c parts.Category, res *catalog.Result) error {
	pr := res.SearchCriteria.PriceRange
	fmt.Fprintf(w, "%s: %d matches, page %d of %d, band $%.0f-$%.0f\n\n",
		c.Label(), res.TotalCount, res.Page, res.TotalPages, pr.Min, pr.Max)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tPRICE\tSCORE\tREASONS")
	for i, p := range res.Items {
		name := p.Name
		if p.Recommended {
			name += " *"
		}
		rank := (res.Page-1)*res.ItemsPerPage + i + 1
		fmt.Fprintf(tw, "%d\t%s\t$%.2f\t%.1f\t%s\n", rank, name, p.Price, p.Score, strings.Join(p.Reasons, "; "))
	}
	return tw.Flush()
}
