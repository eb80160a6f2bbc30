package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kinlib/adapters/kinasedata"
	"kinlib/domain/core"
)

func newMatricesCmd() *cobra.Command {
	var typeName string
	var out string

	cmd := &cobra.Command{
		Use:   "matrices",
		Short: "Write the loaded kinase matrices as log2 weights",
		Long: `Write the matrices of one kinase type, as loaded, in the long format
(kinase, position, residue, weight) with log2 weights. Combined with
--matrix-scale linear this converts probability matrices once so later runs
can read them directly. --kinases limits the output.

Example: kinlib matrices --type tyrosine --matrix-scale linear --out tyrosine_matrices.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseKinaseType(typeName)
			if err != nil {
				return err
			}
			kinases, err := core.ParseKinaseIDs(flags.kinases)
			if err != nil {
				return err
			}
			c, err := loadContainer(cmd)
			if err != nil {
				return err
			}
			matrices, err := c.Library.Resolve(kinases, t)
			if err != nil {
				return err
			}

			headers, rows := kinasedata.MatrixRows(matrices)
			if err := output(out, headers, rows); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "wrote %d %s matrices\n", len(matrices), t)
			return nil
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "ser_thr", "Kinase type: ser_thr or tyrosine")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: CSV on stdout)")
	return cmd
}
