package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kinlib/adapters/kinasedata"
	"kinlib/adapters/rng"
	"kinlib/adapters/stats/scoring"
	"kinlib/domain/core"
	"kinlib/domain/kinase"
)

func newBackgroundCmd() *cobra.Command {
	var typeName string
	var matrices string
	var sample int
	var seed int64
	var out string

	cmd := &cobra.Command{
		Use:   "background [reference-sites-file]",
		Short: "Build background score populations from reference sites",
		Long: `Score reference phosphorylation sites against every kinase of one type and
write the scores as a background file (one column per kinase). The matrix
file defaults to the configured one for the type; pass --matrix-scale linear
when it holds probabilities instead of log2 weights. --sample draws a
reproducible subset of the reference sites first.

Example: kinlib background proteome_sites.csv --type ser_thr --sample 100000 --out ser_thr_background.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseKinaseType(typeName)
			if err != nil {
				return err
			}
			scaleName := flags.matrixScale
			if matrices == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return fmt.Errorf("no --matrices given: %w", err)
				}
				matrices = cfg.MatrixFiles()[t]
				scaleName = cfg.Data.MatrixScale
			}
			scale, err := kinasedata.ParseWeightScale(scaleName)
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("--out is required")
			}

			src := &kinasedata.FileSource{Matrices: map[core.KinaseType]string{t: matrices}, Scale: scale}
			ms, err := src.LoadMatrices(cmd.Context(), t)
			if err != nil {
				return err
			}
			lib, err := kinase.NewLibrary(ms...)
			if err != nil {
				return err
			}

			subs, err := readSubstrates(args[0])
			if err != nil {
				return err
			}
			subs, err = kinasedata.SampleSubstrates(cmd.Context(), rng.New(), subs, sample, seed)
			if err != nil {
				return err
			}

			opts := scoring.DefaultOptions()
			opts.CenterFavorability = flags.favorability
			populations, err := kinasedata.BuildBackgrounds(cmd.Context(), lib, subs, t, opts, flags.workers)
			if err != nil {
				return err
			}
			if err := kinasedata.WriteBackgrounds(out, populations); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d %s background populations to %s\n", len(populations), t, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "ser_thr", "Kinase type: ser_thr or tyrosine")
	cmd.Flags().StringVar(&matrices, "matrices", "", "Matrix file (default: configured file for the type)")
	cmd.Flags().IntVar(&sample, "sample", 0, "Number of reference sites to sample (0 uses all)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Sampling seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Background output file")
	return cmd
}
