package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/metadata"
	pkgredis "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/redis"
)

func newMoviesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movies",
		Short: "Query the movie metadata API",
	}
	cmd.AddCommand(newMoviesSearchCmd(), newMoviesShowCmd())
	return cmd
}

func newMoviesSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <title>",
		Short: "Search the metadata API by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Metadata.APIKey == "" {
				return fmt.Errorf("metadata api key is not configured (MNM_METADATA_API_KEY)")
			}
			hits, err := metadata.NewTMDBClient(cfg.Metadata, nil).SearchMovies(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, hits)
			}
			for _, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10d %-12s %4.1f  %s\n", h.ID, h.ReleaseDate, h.VoteAverage, h.Title)
			}
			return nil
		},
	}
}

func newMoviesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <movie-id>",
		Short: "Fetch one movie's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("movie id must be an integer: %w", err)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			d, err := metadata.NewTMDBClient(cfg.Metadata, nil).FetchDetails(cmd.Context(), id)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, d)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", d.Title, d.ReleaseDate)
			fmt.Fprintf(out, "rating: %.1f (%d votes)\n", d.VoteAverage, d.VoteCount)
			fmt.Fprintf(out, "poster: %s\n", metadata.PosterURL(cfg.Metadata.ImageBaseURL, cfg.Metadata.PlaceholderImage, d.PosterPath))
			if d.Overview != "" {
				fmt.Fprintf(out, "\n%s\n", d.Overview)
			}
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the metadata cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Delete every cached metadata entry for the configured language",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := pkgredis.NewClient(cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			cache := metadata.NewCache(client, nil, cfg.Redis.CacheTTL, cfg.Metadata.Language, nil)
			removed, err := cache.Invalidate(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]int64{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached entries\n", removed)
			return nil
		},
	})
	return cmd
}
