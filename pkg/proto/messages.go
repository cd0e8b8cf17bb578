// Package proto defines the request and response messages exchanged over
// pkg/rpc between the gateway, simctl and the recommender.
package proto

// Method names served by the recommender's RPC listener.
const (
	MethodResolve   = "Catalog.Resolve"
	MethodSearch    = "Catalog.Search"
	MethodRecommend = "Recommender.Recommend"
)

type Item struct {
	Position   int    `json:"position"`
	Title      string `json:"title"`
	ExternalID int64  `json:"external_id"`
}

type ResolveRequest struct {
	Title string `json:"title"`
}

type ResolveResponse struct {
	Item Item `json:"item"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type SearchResponse struct {
	Query  string   `json:"query"`
	Titles []string `json:"titles"`
}

// RecommendRequest selects the seed by Title, or by Position when Title
// is empty.
type RecommendRequest struct {
	Title    string `json:"title,omitempty"`
	Position int    `json:"position"`
	K        int    `json:"k"`
}

type Neighbor struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

type RecommendResponse struct {
	Seed      Item       `json:"seed"`
	Results   []Neighbor `json:"results"`
	LatencyUs int64      `json:"latency_us"`
}
