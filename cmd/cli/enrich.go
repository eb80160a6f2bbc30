package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kinlib/adapters/kinasedata"
	"kinlib/adapters/stats/enrichment"
	"kinlib/app"
	"kinlib/domain/core"
	domain "kinlib/domain/enrichment"
)

// enrichFlags are shared by the two-group and differential commands
type enrichFlags struct {
	measure     string
	threshold   float64
	alternative string
	method      string
	out         string
	jsonOut     bool
}

func (f *enrichFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.measure, "measure", "percentile", "Measure deciding a kinase match: "+measureNames())
	cmd.Flags().Float64Var(&f.threshold, "threshold", 90, "Match threshold for the measure")
	cmd.Flags().StringVar(&f.alternative, "alternative", "greater", "greater, less or two-sided")
	cmd.Flags().StringVar(&f.method, "method", "exact", "exact (Fisher) or chi2")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output file for the combined results (default CSV on stdout)")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print the full report as JSON")
}

func (f *enrichFlags) criterion() (core.Criterion, error) {
	measure, err := core.ParseMeasure(f.measure)
	if err != nil {
		return core.Criterion{}, err
	}
	return core.Criterion{Measure: measure, Threshold: f.threshold}, nil
}

func (f *enrichFlags) options() (enrichment.TwoGroupOptions, error) {
	alt, err := enrichment.ParseAlternative(f.alternative)
	if err != nil {
		return enrichment.TwoGroupOptions{}, err
	}
	method, err := enrichment.ParseTestMethod(f.method)
	if err != nil {
		return enrichment.TwoGroupOptions{}, err
	}
	return enrichment.TwoGroupOptions{Alternative: alt, Method: method}, nil
}

func writeReport(report *domain.Report, out string, jsonOut bool) error {
	for _, sec := range report.Sections() {
		if len(sec.Excluded) > 0 {
			reportExclusions(sec.Type.String(), sec.Excluded)
		}
	}
	if jsonOut {
		return kinasedata.WriteReportJSON(os.Stdout, report)
	}
	if out != "" {
		return kinasedata.WriteReport(out, report)
	}
	headers, rows := kinasedata.ResultRows(report.Combined)
	return output("", headers, rows)
}

func newEnrichCmd() *cobra.Command {
	var f enrichFlags

	cmd := &cobra.Command{
		Use:   "enrich [foreground-file] [background-file]",
		Short: "Two-group kinase enrichment of foreground against background sites",
		Long: `Count, per kinase, the foreground and background sites whose measure passes
the threshold and test the 2x2 table with Fisher's exact test (or chi-square).
Results carry the odds ratio, log2 frequency factor and BH q-values computed
across every kinase in the run.

Example: kinlib enrich hits.csv background.csv --measure percentile_rank --threshold 15`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			criterion, err := f.criterion()
			if err != nil {
				return err
			}
			opts, err := f.options()
			if err != nil {
				return err
			}
			kinases, types, err := selection()
			if err != nil {
				return err
			}
			c, err := loadContainer(cmd)
			if err != nil {
				return err
			}
			fg, err := readSubstrates(args[0])
			if err != nil {
				return err
			}
			bg, err := readSubstrates(args[1])
			if err != nil {
				return err
			}

			report, err := c.EnrichmentService.TwoGroup(cmd.Context(), app.TwoGroupRequest{
				Foreground: fg,
				Background: bg,
				Kinases:    kinases,
				Types:      types,
				Criterion:  criterion,
				Options:    opts,
			})
			if err != nil {
				return err
			}
			return writeReport(report, f.out, f.jsonOut)
		},
	}

	f.register(cmd)
	return cmd
}

func newDiffPhosCmd() *cobra.Command {
	var f enrichFlags
	var logFC, pvalue float64
	var backgroundAll bool
	var fcColumn, pColumn string

	cmd := &cobra.Command{
		Use:   "diffphos [sites-file]",
		Short: "Kinase enrichment of up- and downregulated sites",
		Long: `Split sites by log fold change (and p-value when --pvalue is positive) into
upregulated, downregulated and unchanged sets. Each regulated set is tested
against the unchanged sites, or against every site with --background-all.
Per kinase the more significant side is reported; downregulated enrichment
has a negative direction and effect sizes.

Example: kinlib diffphos dp.tsv --logfc 1 --pvalue 0.05`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criterion, err := f.criterion()
			if err != nil {
				return err
			}
			opts, err := f.options()
			if err != nil {
				return err
			}
			kinases, types, err := selection()
			if err != nil {
				return err
			}
			c, err := loadContainer(cmd)
			if err != nil {
				return err
			}
			data, err := readTable(args[0])
			if err != nil {
				return err
			}
			siteOpts := siteOptions()
			siteOpts.Columns.LogFC = fcColumn
			siteOpts.Columns.PValue = pColumn
			sites, excluded, err := kinasedata.ReadDifferential(data, siteOpts)
			if err != nil {
				return err
			}
			reportExclusions(args[0], excluded)

			report, err := c.EnrichmentService.Differential(cmd.Context(), app.DifferentialRequest{
				Sites:           sites,
				LogFCThreshold:  logFC,
				PValueThreshold: pvalue,
				BackgroundAll:   backgroundAll,
				Kinases:         kinases,
				Types:           types,
				Criterion:       criterion,
				Options:         opts,
			})
			if err != nil {
				return err
			}
			return writeReport(report, f.out, f.jsonOut)
		},
	}

	f.register(cmd)
	cmd.Flags().Float64Var(&logFC, "logfc", 1, "Absolute log fold change threshold")
	cmd.Flags().Float64Var(&pvalue, "pvalue", 0, "p-value threshold (0 disables)")
	cmd.Flags().BoolVar(&backgroundAll, "background-all", false, "Use every site as the background")
	cmd.Flags().StringVar(&fcColumn, "logfc-col", "", "Fold change column (default: auto-detect)")
	cmd.Flags().StringVar(&pColumn, "pvalue-col", "", "p-value column (default: auto-detect)")
	return cmd
}

func newMEACmd() *cobra.Command {
	var measureName string
	var threshold float64
	var permutations int
	var seed int64
	var weight float64
	var minSize, maxSize int
	var preserveOrder bool
	var statColumn string
	var out string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "mea [ranked-file]",
		Short: "Ranked-list motif enrichment analysis",
		Long: `Walk a ranked list of sites (best first by the ranking statistic) and test
each kinase's hit set with a weighted running-sum enrichment score against a
permutation null. Every kinase shares the same permutations; the seed is
reported so a run can be replayed.

Example: kinlib mea ranked.rnk --permutations 2000 --seed 7 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			measure, err := core.ParseMeasure(measureName)
			if err != nil {
				return err
			}
			criterion := core.Criterion{Measure: measure, Threshold: threshold}
			kinases, types, err := selection()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := containerFor(cmd, cfg)
			if err != nil {
				return err
			}

			data, err := readTable(args[0])
			if err != nil {
				return err
			}
			siteOpts := siteOptions()
			siteOpts.Columns.Statistic = statColumn
			list, excluded, err := kinasedata.ReadRankedList(data, siteOpts, preserveOrder)
			if err != nil {
				return err
			}
			reportExclusions(args[0], excluded)

			opts := enrichment.DefaultMEAOptions()
			opts.Permutations = cfg.Analysis.Permutations
			if cmd.Flags().Changed("permutations") {
				opts.Permutations = permutations
			}
			opts.Seed = cfg.Analysis.Seed
			if cmd.Flags().Changed("seed") {
				opts.Seed = &seed
			}
			opts.Weight = weight
			opts.MinSize = minSize
			opts.MaxSize = maxSize

			report, err := c.EnrichmentService.RankedList(cmd.Context(), app.RankedListRequest{
				List:      list,
				Kinases:   kinases,
				Types:     types,
				Criterion: criterion,
				Options:   opts,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "seed %d, %d permutations\n", report.Seed, report.Permutations)
			return writeReport(report, out, jsonOut)
		},
	}

	cmd.Flags().StringVar(&measureName, "measure", "percentile", "Measure deciding a kinase hit: "+measureNames())
	cmd.Flags().Float64Var(&threshold, "threshold", 90, "Hit threshold for the measure")
	cmd.Flags().IntVar(&permutations, "permutations", enrichment.DefaultPermutations, "Null permutations (default KINLIB_PERMUTATIONS)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default KINLIB_SEED, else clock)")
	cmd.Flags().Float64Var(&weight, "weight", 1, "Exponent applied to |statistic| at hits; 0 is unweighted")
	cmd.Flags().IntVar(&minSize, "min-size", 1, "Smallest testable hit set")
	cmd.Flags().IntVar(&maxSize, "max-size", 0, "Largest testable hit set (0 unbounded)")
	cmd.Flags().BoolVar(&preserveOrder, "preserve-order", false, "Keep file order instead of sorting by statistic")
	cmd.Flags().StringVar(&statColumn, "stat-col", "", "Ranking statistic column (default: auto-detect)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file for the combined results (default CSV on stdout)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full report as JSON")
	return cmd
}
