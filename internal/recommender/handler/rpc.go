package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/rpc"
)

// RegisterRPC exposes the catalog and ranking operations on s. The
// Recommend method returns raw neighbours without metadata.
func RegisterRPC(s *rpc.Server, svc Recommender) {
	s.Register(proto.MethodResolve, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req proto.ResolveRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		item, err := svc.Resolve(req.Title)
		if err != nil {
			return nil, err
		}
		return proto.ResolveResponse{Item: toProto(item)}, nil
	})

	s.Register(proto.MethodSearch, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req proto.SearchRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return proto.SearchResponse{Query: req.Query, Titles: svc.Search(req.Query, req.Limit)}, nil
	})

	s.Register(proto.MethodRecommend, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req proto.RecommendRequest
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		start := time.Now()
		var (
			seed catalog.Item
			err  error
		)
		if req.Title != "" {
			seed, err = svc.Resolve(req.Title)
		} else {
			seed, err = svc.Item(req.Position)
		}
		if err != nil {
			return nil, err
		}
		recs, err := svc.Similar(seed.Position, req.K)
		if err != nil {
			return nil, err
		}
		resp := proto.RecommendResponse{
			Seed:    toProto(seed),
			Results: make([]proto.Neighbor, len(recs)),
		}
		for i, rec := range recs {
			resp.Results[i] = proto.Neighbor{Item: toProto(rec.Item), Score: rec.Score}
		}
		resp.LatencyUs = time.Since(start).Microseconds()
		return resp, nil
	})
}

func decode(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("decoding params: %w", apperrors.ErrInvalidInput)
	}
	return nil
}

func toProto(it catalog.Item) proto.Item {
	return proto.Item{Position: it.Position, Title: it.Title, ExternalID: it.ExternalID}
}
