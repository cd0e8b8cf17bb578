package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog/artifact"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/recommender/ranker"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/rpc"
)

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <title>",
		Short: "Rank the titles most similar to an exact catalog title",
		Long: `Rank neighbours of a title. Without --rpc the artifacts are loaded
locally; with --rpc the running recommender answers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			addr, _ := cmd.Flags().GetString("rpc")

			var resp *proto.RecommendResponse
			var err error
			if addr != "" {
				resp, err = recommendRPC(cmd.Context(), addr, args[0], k)
			} else {
				resp, err = recommendLocal(cmd, args[0], k)
			}
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "similar to %q (position %d):\n", resp.Seed.Title, resp.Seed.Position)
			for i, nb := range resp.Results {
				fmt.Fprintf(out, "%3d. %-50s %.4f\n", i+1, nb.Item.Title, nb.Score)
			}
			return nil
		},
	}
	cmd.Flags().Int("k", ranker.DefaultK, "number of recommendations")
	cmd.Flags().String("rpc", "", "recommender RPC address, e.g. localhost:9100")
	addArtifactFlags(cmd)
	return cmd
}

func recommendLocal(cmd *cobra.Command, title string, k int) (*proto.RecommendResponse, error) {
	catalogPath, matrixPath, err := artifactPaths(cmd)
	if err != nil {
		return nil, err
	}
	snap, err := artifact.LoadFiles(catalogPath, matrixPath)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	pos, err := snap.Store.Resolve(title)
	if err != nil {
		return nil, err
	}
	seed, err := snap.Store.Item(pos)
	if err != nil {
		return nil, err
	}
	recs, err := ranker.New(snap).Recommend(pos, k)
	if err != nil {
		return nil, err
	}
	resp := &proto.RecommendResponse{
		Seed:    proto.Item{Position: seed.Position, Title: seed.Title, ExternalID: seed.ExternalID},
		Results: make([]proto.Neighbor, len(recs)),
	}
	for i, r := range recs {
		resp.Results[i] = proto.Neighbor{
			Item:  proto.Item{Position: r.Item.Position, Title: r.Item.Title, ExternalID: r.Item.ExternalID},
			Score: r.Score,
		}
	}
	resp.LatencyUs = time.Since(start).Microseconds()
	return resp, nil
}

func recommendRPC(ctx context.Context, addr, title string, k int) (*proto.RecommendResponse, error) {
	c, err := rpc.Dial(addr)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var resp proto.RecommendResponse
	if err := c.Call(ctx, proto.MethodRecommend, proto.RecommendRequest{Title: title, K: k}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newTitlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "titles <substring>",
		Short: "List catalog titles containing a substring (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			addr, _ := cmd.Flags().GetString("rpc")

			var titles []string
			if addr != "" {
				c, err := rpc.Dial(addr)
				if err != nil {
					return err
				}
				defer c.Close()
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				var resp proto.SearchResponse
				if err := c.Call(ctx, proto.MethodSearch, proto.SearchRequest{Query: args[0], Limit: limit}, &resp); err != nil {
					return err
				}
				titles = resp.Titles
			} else {
				catalogPath, matrixPath, err := artifactPaths(cmd)
				if err != nil {
					return err
				}
				snap, err := artifact.LoadFiles(catalogPath, matrixPath)
				if err != nil {
					return err
				}
				titles = snap.Store.ItemsMatching(args[0])
				if limit > 0 && len(titles) > limit {
					titles = titles[:limit]
				}
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, proto.SearchResponse{Query: args[0], Titles: titles})
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(titles, "\n"))
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum titles to print")
	cmd.Flags().String("rpc", "", "recommender RPC address")
	addArtifactFlags(cmd)
	return cmd
}
