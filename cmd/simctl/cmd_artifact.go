package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog/artifact"
)

func newArtifactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Build and check catalog and matrix artifacts",
	}
	cmd.AddCommand(newArtifactPackCmd(), newArtifactInspectCmd())
	return cmd
}

func newArtifactPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack <matrix.csv> <output.simx>",
		Short: "Convert a CSV similarity matrix to the binary matrix format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			n, data, err := artifact.ParseMatrixCSV(f)
			if err != nil {
				return err
			}
			if err := artifact.WriteMatrixFile(args[1], n, data); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"output": args[1], "dimension": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %dx%d matrix to %s\n", n, n, args[1])
			return nil
		},
	}
}

type inspectReport struct {
	Items           int              `json:"items"`
	MaxAsymmetry    float64          `json:"max_asymmetry"`
	AsymmetryAt     [2]int           `json:"asymmetry_at"`
	SelfNotMaximal  []int            `json:"self_not_maximal"`
	DuplicateTitles map[string][]int `json:"duplicate_titles"`
}

func newArtifactInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load the catalog and matrix and report consistency findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogPath, matrixPath, err := artifactPaths(cmd)
			if err != nil {
				return err
			}
			snap, err := artifact.LoadFiles(catalogPath, matrixPath)
			if err != nil {
				return err
			}
			diff, i, j := snap.Matrix.Asymmetry()
			report := inspectReport{
				Items:           snap.Len(),
				MaxAsymmetry:    diff,
				AsymmetryAt:     [2]int{i, j},
				SelfNotMaximal:  snap.Matrix.SelfNotMaximal(),
				DuplicateTitles: snap.Store.DuplicateTitles(),
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "items:            %d\n", report.Items)
			fmt.Fprintf(out, "max asymmetry:    %g at (%d,%d)\n", diff, i, j)
			fmt.Fprintf(out, "self not maximal: %d rows\n", len(report.SelfNotMaximal))
			fmt.Fprintf(out, "duplicate titles: %d\n", len(report.DuplicateTitles))
			for title, positions := range report.DuplicateTitles {
				fmt.Fprintf(out, "  %q at %v\n", title, positions)
			}
			return nil
		},
	}
	addArtifactFlags(cmd)
	return cmd
}

func addArtifactFlags(cmd *cobra.Command) {
	cmd.Flags().String("catalog", "", "catalog CSV (default from config)")
	cmd.Flags().String("matrix", "", "matrix .simx file (default from config)")
}

// artifactPaths resolves --catalog/--matrix, falling back to config.
func artifactPaths(cmd *cobra.Command) (string, string, error) {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	matrixPath, _ := cmd.Flags().GetString("matrix")
	if catalogPath != "" && matrixPath != "" {
		return catalogPath, matrixPath, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", "", err
	}
	if catalogPath == "" {
		catalogPath = cfg.Catalog.CatalogPath
	}
	if matrixPath == "" {
		matrixPath = cfg.Catalog.MatrixPath
	}
	return catalogPath, matrixPath, nil
}
