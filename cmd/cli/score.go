package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"kinlib/adapters/kinasedata"
	"kinlib/app"
	"kinlib/domain/core"
)

func newScoreCmd() *cobra.Command {
	var measureName string
	var out string

	cmd := &cobra.Command{
		Use:   "score [sites-file]",
		Short: "Score every site against every kinase",
		Long: `Compute one measure for every site and kinase: score, percentile,
score_rank or percentile_rank. Sites are read from the sequence column of a
CSV, TSV or XLSX file; a sequence is either a 15-residue window or a peptide
marking the site with a trailing '*'. Scores are sums of log2 matrix weights;
matrices stored as probabilities need --matrix-scale linear.

Example: kinlib score sites.csv --measure percentile --out percentiles.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			measure, err := core.ParseMeasure(measureName)
			if err != nil {
				return err
			}
			c, err := loadContainer(cmd)
			if err != nil {
				return err
			}
			subs, err := readSubstrates(args[0])
			if err != nil {
				return err
			}
			kinases, _, err := selection()
			if err != nil {
				return err
			}

			table, err := c.ScanService.Table(cmd.Context(), subs, kinases, measure)
			if err != nil {
				return err
			}
			reportExclusions(args[0], table.Excluded)
			headers, rows := kinasedata.TableRows(table)
			return output(out, headers, rows)
		},
	}

	cmd.Flags().StringVar(&measureName, "measure", "score", "Measure: "+measureNames())
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.csv, .tsv or .xlsx; default CSV on stdout)")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var outDir string
	var format string

	cmd := &cobra.Command{
		Use:   "predict [sites-file]",
		Short: "Write score, percentile and both ranks for every site",
		Long: `Compute all four measures in one pass and write one table per measure
into the output directory (score.csv, score_rank.csv, percentile.csv,
percentile_rank.csv).

Example: kinlib predict sites.xlsx --out-dir predictions --format xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "tsv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q", format)
			}
			c, err := loadContainer(cmd)
			if err != nil {
				return err
			}
			subs, err := readSubstrates(args[0])
			if err != nil {
				return err
			}
			kinases, _, err := selection()
			if err != nil {
				return err
			}

			pred, err := c.ScanService.Predict(cmd.Context(), subs, kinases)
			if err != nil {
				return err
			}
			reportExclusions(args[0], pred.Score.Excluded)
			for _, m := range core.Measures {
				path := filepath.Join(outDir, m.String()+"."+format)
				if err := kinasedata.WriteTable(path, pred.Table(m)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for the four measure tables")
	cmd.Flags().StringVar(&format, "format", "csv", "csv, tsv or xlsx")
	return cmd
}

func newScanCmd() *cobra.Command {
	var measureName string
	var threshold float64
	var out string
	var term2gene bool

	cmd := &cobra.Command{
		Use:   "scan [sites-file]",
		Short: "List the kinases predicted for each site",
		Long: `List every (site, kinase) pair whose measure passes the threshold.
Scores and percentiles match at or above the threshold, ranks at or below it.
--term2gene writes the two-column (kinase, site) layout used by gene set tools.

Example: kinlib scan sites.csv --measure percentile_rank --threshold 15 --term2gene`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			measure, err := core.ParseMeasure(measureName)
			if err != nil {
				return err
			}
			criterion := core.Criterion{Measure: measure, Threshold: threshold}
			c, err := loadContainer(cmd)
			if err != nil {
				return err
			}
			subs, err := readSubstrates(args[0])
			if err != nil {
				return err
			}
			kinases, _, err := selection()
			if err != nil {
				return err
			}

			res, err := c.ScanService.Scan(cmd.Context(), app.ScanRequest{Substrates: subs, Kinases: kinases, Criterion: criterion})
			if err != nil {
				return err
			}
			reportExclusions(args[0], res.Table.Excluded)
			headers, rows := kinasedata.MatchRows(res.Matches, measure, term2gene)
			return output(out, headers, rows)
		},
	}

	cmd.Flags().StringVar(&measureName, "measure", "percentile", "Measure: "+measureNames())
	cmd.Flags().Float64Var(&threshold, "threshold", 90, "Match threshold for the measure")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default CSV on stdout)")
	cmd.Flags().BoolVar(&term2gene, "term2gene", false, "Write (term, gene) pairs")
	return cmd
}

// measureNames lists the accepted --measure values for help text
func measureNames() string {
	names := make([]string, len(core.Measures))
	for i, m := range core.Measures {
		names[i] = m.String()
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
