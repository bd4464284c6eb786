package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// SlotValue is one extracted slot returned by the sidecar.
type SlotValue struct {
	Value      string
	Confidence float64
}

// SearchResult holds a single knowledge-base hit.
type SearchResult struct {
	Title string
	URL   string
	Text  string
	Score float64
}
// #endregion types

// #region client-struct
// CodecClient wraps the gRPC connection to the inference sidecar.
type CodecClient struct {
	conn   *grpc.ClientConn
	client InferenceServiceClient
}
// #endregion client-struct

// #region constructor
// NewCodecClient connects to the inference sidecar at addr.
func NewCodecClient(addr string, opts ...grpc.DialOption) (*CodecClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{
		conn:   conn,
		client: NewInferenceServiceClient(conn),
	}, nil
}

// NewCodecClientWithService creates a CodecClient with an injected service
// implementation. Used for testing without a real gRPC connection.
func NewCodecClientWithService(svc InferenceServiceClient) *CodecClient {
	return &CodecClient{client: svc}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region extract
// Extract asks the sidecar for slot values in utterance, biased toward wanted.
// Entries that are not {value, confidence} objects are skipped.
func (c *CodecClient) Extract(ctx context.Context, utterance string, wanted []string) (map[string]SlotValue, error) {
	w := make([]any, len(wanted))
	for i, f := range wanted {
		w[i] = f
	}
	req, err := structpb.NewStruct(map[string]any{"utterance": utterance, "wanted": w})
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	resp, err := c.client.Extract(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extract rpc: %w", err)
	}

	out := map[string]SlotValue{}
	for name, v := range resp.GetFields()["slots"].GetStructValue().GetFields() {
		slot := v.GetStructValue()
		if slot == nil {
			continue
		}
		f := slot.GetFields()
		val := f["value"].GetStringValue()
		if val == "" {
			continue
		}
		out[name] = SlotValue{Value: val, Confidence: f["confidence"].GetNumberValue()}
	}
	return out, nil
}
// #endregion extract

// #region search
// Search queries the sidecar's knowledge base.
func (c *CodecClient) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	req, err := structpb.NewStruct(map[string]any{"q": query, "k": topK})
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := c.client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search rpc: %w", err)
	}

	var results []SearchResult
	for _, v := range resp.GetFields()["results"].GetListValue().GetValues() {
		r := v.GetStructValue().GetFields()
		if r == nil {
			continue
		}
		results = append(results, SearchResult{
			Title: r["title"].GetStringValue(),
			URL:   r["url"].GetStringValue(),
			Text:  r["text"].GetStringValue(),
			Score: r["score"].GetNumberValue(),
		})
	}
	return results, nil
}
// #endregion search
