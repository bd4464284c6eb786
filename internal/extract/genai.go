package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

// DefaultGenAIModel is used when no model is configured.
const DefaultGenAIModel = "gemini-2.5-flash"

// DefaultLLMConfidence is assumed for bare values without a confidence.
const DefaultLLMConfidence = 0.8

const systemPrompt = "You extract structured fields from a caller utterance in a legal-funding intake call. " +
	"Return a strict JSON object whose keys come only from: " +
	"full_name, phone, email, address, state, has_attorney, attorney_name, attorney_phone, " +
	"law_firm, law_firm_address, injury_type, injury_details, incident_date, funding_type, funding_amount. " +
	"Each value is an object {\"value\": string, \"confidence\": number between 0 and 1}. " +
	"Omit unknown keys. has_attorney is \"true\" or \"false\". Phone must be 10 digits. " +
	"incident_date is YYYY-MM-DD. funding_type is \"fresh\" or \"extend\"."

// #region genai-extractor
// GenAIExtractor asks Gemini for JSON slot values.
type GenAIExtractor struct {
	client *genai.Client
	model  string
}

// NewGenAIExtractor creates a Gemini-backed extractor.
func NewGenAIExtractor(ctx context.Context, apiKey, model string) (*GenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIExtractor{client: client, model: model}, nil
}

func (e *GenAIExtractor) Extract(ctx context.Context, utterance string, wanted []intake.Field) (intake.Candidates, error) {
	names := make([]string, len(wanted))
	for i, f := range wanted {
		names[i] = string(f)
	}
	prompt := fmt.Sprintf("Utterance: %s\nMost likely fields: %s\nOnly include keys that are present or highly likely.",
		utterance, strings.Join(names, ", "))

	temp := float32(0.1)
	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI extract failed: %w", err)
	}
	return ParseJSON(resp.Text())
}
// #endregion genai-extractor

// #region parse-json
// ParseJSON decodes a model reply. Values may be bare strings, numbers and
// booleans, or {"value", "confidence"} objects. Code fences are tolerated.
func ParseJSON(raw string) (intake.Candidates, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode extractor json: %w", err)
	}

	out := intake.Candidates{}
	for k, v := range data {
		f, ok := intake.ParseField(k)
		if !ok {
			continue
		}
		conf := DefaultLLMConfidence
		if obj, isObj := v.(map[string]any); isObj {
			if c, ok := obj["confidence"].(float64); ok {
				conf = c
			}
			v = obj["value"]
		}
		s, ok := scalar(v)
		if !ok {
			continue
		}
		out[f] = intake.Candidate{Value: s, Confidence: conf}
	}
	return out, nil
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		return x, x != "" && !strings.EqualFold(x, "null")
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}
// #endregion parse-json
