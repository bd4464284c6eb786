package extract

import (
	"context"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/codec"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

// Remote extracts through the inference sidecar.
type Remote struct {
	Client *codec.CodecClient
}

func (r Remote) Extract(ctx context.Context, utterance string, wanted []intake.Field) (intake.Candidates, error) {
	names := make([]string, len(wanted))
	for i, f := range wanted {
		names[i] = string(f)
	}
	slots, err := r.Client.Extract(ctx, utterance, names)
	if err != nil {
		return nil, err
	}
	out := intake.Candidates{}
	for name, s := range slots {
		if f, ok := intake.ParseField(name); ok {
			out[f] = intake.Candidate{Value: s.Value, Confidence: s.Confidence}
		}
	}
	return out, nil
}
