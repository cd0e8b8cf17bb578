// Command simctl is the operator CLI: it packs and inspects similarity
// artifacts, runs recommendations locally or over RPC, searches the
// metadata API, flushes the metadata cache and manages API keys.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simctl",
		Short: "Operate the movie similarity recommender",
		Long: `simctl works with the precomputed catalog and similarity matrix and
with the services built on them.

Examples:
  simctl artifact pack cosine_sim.csv data/cosine_sim.simx
  simctl artifact inspect
  simctl recommend "Avatar" --k 5
  simctl recommend "Avatar" --rpc localhost:9100
  simctl movies search "Inception"
  simctl cache flush
  simctl keys create --name web --rate-limit 120`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "configs/development.yaml", "path to config file")
	rootCmd.PersistentFlags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(
		newArtifactCmd(),
		newRecommendCmd(),
		newTitlesCmd(),
		newMoviesCmd(),
		newCacheCmd(),
		newKeysCmd(),
	)
	return rootCmd
}

// loadConfig reads the --config file and sets up quiet logging so command
// output stays readable.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger.Setup("warn", "text")
	return cfg, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
