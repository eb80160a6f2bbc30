package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kinlib/adapters/excel"
	"kinlib/adapters/kinasedata"
	"kinlib/domain/core"
	"kinlib/domain/substrate"
	"kinlib/internal"
	"kinlib/internal/config"
	"kinlib/internal/container"
)

// globalFlags are shared by every subcommand and override the environment
type globalFlags struct {
	workers        int
	favorability   bool
	logLevel       string
	priming        bool
	sequenceColumn string
	idColumn       string
	types          []string
	kinases        []string
	matrixScale    string
}

var flags globalFlags

func main() {
	rootCmd := &cobra.Command{
		Use:   "kinlib",
		Short: "Kinase substrate scoring and motif enrichment",
		Long: `kinlib scores phosphorylation sites against kinase position weight
matrices and tests sets or ranked lists of sites for kinase motif enrichment.

Matrices and backgrounds are read from KINLIB_DATA_DIR (or the per-file
KINLIB_*_MATRICES / KINLIB_*_BACKGROUND variables). A .env file in the working
directory is loaded first.

Matrix files are long format (kinase, position, residue, weight) holding log2
weights. Files of per-position residue probabilities can be used as they are
with --matrix-scale linear (or KINLIB_MATRIX_SCALE=linear): every weight must
then be positive and is replaced by its log2 on load.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.logLevel != "" {
				internal.DefaultLogger.SetLevel(internal.ParseLogLevel(flags.logLevel))
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flags.workers, "workers", 0, "Worker goroutines (default KINLIB_WORKERS or CPU count)")
	pf.BoolVar(&flags.favorability, "favorability", false, "Add the center residue favorability term to scores")
	pf.StringVar(&flags.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE")
	pf.BoolVar(&flags.priming, "phospho-priming", false, "Keep lower-case s/t/y at flanking positions as phosphorylated")
	pf.StringVar(&flags.sequenceColumn, "sequence-col", "", "Site sequence column (default: auto-detect)")
	pf.StringVar(&flags.idColumn, "id-col", "", "Site id column (default: auto-detect)")
	pf.StringSliceVar(&flags.types, "types", nil, "Kinase types to test: ser_thr, tyrosine (default: all loaded)")
	pf.StringSliceVar(&flags.kinases, "kinases", nil, "Kinases to use (default: all)")
	pf.StringVar(&flags.matrixScale, "matrix-scale", "", "Matrix weights: log2 or linear (default KINLIB_MATRIX_SCALE, else log2)")

	rootCmd.AddCommand(
		newScoreCmd(),
		newPredictCmd(),
		newScanCmd(),
		newEnrichCmd(),
		newDiffPhosCmd(),
		newMEACmd(),
		newBackgroundCmd(),
		newMatricesCmd(),
		newServeCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env and the environment, then applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("workers") && flags.workers > 0 {
		cfg.Analysis.Workers = flags.workers
	}
	if cmd.Flags().Changed("favorability") {
		cfg.Analysis.CenterFavorability = flags.favorability
	}
	if cmd.Flags().Changed("matrix-scale") {
		cfg.Data.MatrixScale = flags.matrixScale
	}
	if flags.logLevel == "" {
		internal.DefaultLogger.SetLevel(internal.ParseLogLevel(cfg.LogLevel))
	}
	return cfg, nil
}

// loadDotEnv loads .env files (default ./.env) without overriding variables
// already set. A missing file is not an error.
func loadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		internal.DefaultLogger.Debug("No .env file found, using system environment variables")
		return nil
	default:
		internal.DefaultLogger.Error("Failed to load .env: %v", err)
		return fmt.Errorf("load .env: %w", err)
	}
}

func loadContainer(cmd *cobra.Command) (*container.Container, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return containerFor(cmd, cfg)
}

func containerFor(cmd *cobra.Command, cfg *config.Config) (*container.Container, error) {
	return container.New(cmd.Context(), cfg)
}

func siteOptions() kinasedata.SiteOptions {
	return kinasedata.SiteOptions{
		Columns:   kinasedata.SiteColumns{Sequence: flags.sequenceColumn, ID: flags.idColumn},
		Substrate: substrate.Options{PhosphoPriming: flags.priming},
	}
}

func readTable(path string) (*excel.ExcelData, error) {
	reader, err := excel.NewDataReader(path)
	if err != nil {
		return nil, err
	}
	return reader.ReadData()
}

func readSubstrates(path string) ([]substrate.Substrate, error) {
	data, err := readTable(path)
	if err != nil {
		return nil, err
	}
	subs, excluded, err := kinasedata.ReadSubstrates(data, siteOptions())
	if err != nil {
		return nil, err
	}
	reportExclusions(path, excluded)
	return subs, nil
}

func reportExclusions(path string, excluded []substrate.Exclusion) {
	if len(excluded) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %d sites excluded\n", path, len(excluded))
	for _, e := range excluded {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", e.Substrate, e.Reason)
	}
}

func selection() ([]core.KinaseID, []core.KinaseType, error) {
	kinases, err := core.ParseKinaseIDs(flags.kinases)
	if err != nil {
		return nil, nil, err
	}
	var types []core.KinaseType
	if len(flags.types) > 0 {
		if types, err = core.ParseKinaseTypes(flags.types); err != nil {
			return nil, nil, err
		}
	}
	return kinases, types, nil
}

// output writes rows to path, or as CSV to stdout when path is empty
func output(path string, headers []string, rows [][]string) error {
	if path == "" {
		return excel.WriteDelimited(os.Stdout, excel.FileTypeCSV, headers, rows)
	}
	w, err := excel.NewDataWriter(path)
	if err != nil {
		return err
	}
	return w.Write(headers, rows)
}
