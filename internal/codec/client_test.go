package codec

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region mock
type mockService struct {
	extractResp *structpb.Struct
	extractErr  error
	searchResp  *structpb.Struct
	searchErr   error

	lastReq *structpb.Struct
}

func (m *mockService) Extract(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	m.lastReq = in
	return m.extractResp, m.extractErr
}

func (m *mockService) Search(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	m.lastReq = in
	return m.searchResp, m.searchErr
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}
// #endregion mock

// #region constructor-tests
func TestNewCodecClientLazyConnect(t *testing.T) {
	client, err := NewCodecClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestCloseWithoutConn(t *testing.T) {
	c := NewCodecClientWithService(&mockService{})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
// #endregion constructor-tests

// #region extract-tests
func TestExtract_Success(t *testing.T) {
	mock := &mockService{extractResp: mustStruct(t, map[string]any{
		"slots": map[string]any{
			"full_name": map[string]any{"value": "Joe Smith", "confidence": 0.92},
			"email":     map[string]any{"value": "", "confidence": 0.5},
			"phone":     "5551234567",
		},
	})}
	c := NewCodecClientWithService(mock)

	got, err := c.Extract(context.Background(), "I'm Joe Smith", []string{"full_name"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := map[string]SlotValue{"full_name": {Value: "Joe Smith", Confidence: 0.92}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if u := mock.lastReq.GetFields()["utterance"].GetStringValue(); u != "I'm Joe Smith" {
		t.Fatalf("utterance not forwarded: %q", u)
	}
}

func TestExtract_Error(t *testing.T) {
	c := NewCodecClientWithService(&mockService{extractErr: errors.New("unavailable")})
	if _, err := c.Extract(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error")
	}
}
// #endregion extract-tests

// #region search-tests
func TestSearch_Success(t *testing.T) {
	mock := &mockService{searchResp: mustStruct(t, map[string]any{
		"results": []any{
			map[string]any{"title": "Service area", "url": "https://kb/1", "text": "We serve Texas.", "score": 0.8},
			"garbage",
		},
	})}
	c := NewCodecClientWithService(mock)

	got, err := c.Search(context.Background(), "Texas", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []SearchResult{{Title: "Service area", URL: "https://kb/1", Text: "We serve Texas.", Score: 0.8}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if k := mock.lastReq.GetFields()["k"].GetNumberValue(); k != 3 {
		t.Fatalf("k not forwarded: %v", k)
	}
}
// #endregion search-tests

// #region wire-tests
type fakeSidecar struct{}

func (fakeSidecar) Extract(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"slots": map[string]any{
			"funding_amount": map[string]any{"value": "$2,000", "confidence": 0.9},
		},
		"echo": in.GetFields()["utterance"].GetStringValue(),
	})
}

func (fakeSidecar) Search(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"results": []any{}})
}

func TestClientOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterInferenceServiceServer(srv, fakeSidecar{})
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	c, err := NewCodecClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewCodecClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	got, err := c.Extract(context.Background(), "two thousand dollars", []string{"funding_amount"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got["funding_amount"].Value != "$2,000" {
		t.Fatalf("unexpected slots: %+v", got)
	}

	results, err := c.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
// #endregion wire-tests
