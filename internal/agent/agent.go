// Package agent rewords the engine's plain answers with a Gemini model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used for rephrasing.
const DefaultModel = "gemini-2.5-flash-preview-09-2025"

const systemPrompt = `You reword the answers of a question answering system.

RULES:
1.  You receive the plain answer and a summary of what the system knows, written as discourse conditions such as man.n.01(s3) or walk.v.01(e2).
2.  Rewrite the answer as ONE short, fluent English sentence.
3.  Never add facts that are not in the answer. Never drop entities named in the answer.
4.  Respond ONLY with the sentence. No quotes, no markdown, no explanations.

EXAMPLES:
- Answer: "The man and the dog.", Context: [s1, s4 | man.n.01(s1), dog.n.01(s4), own.v.01(e3)]
- Output: The man and his dog.
- Answer: "A happy farmer.", Context: [s1 | farmer.n.01(s1), happy.a.01(s1)]
- Output: It is a happy farmer.
`

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("no response from agent")

// generator is the part of *genai.GenerativeModel the rephraser uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Rephraser wraps the Gemini client and model used for rewording answers.
type Rephraser struct {
	client *genai.Client
	model  generator
	logger *zap.Logger
}

// NewRephraser initializes the Gemini client. If the API key is empty, the
// caller receives a nil Rephraser and no error, so rephrasing stays off.
func NewRephraser(ctx context.Context, apiKey string, logger *zap.Logger) (*Rephraser, error) {
	if apiKey == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := client.GenerativeModel(DefaultModel)
	model.SetTemperature(0.2)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	return &Rephraser{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Close releases underlying resources.
func (r *Rephraser) Close() {
	if r == nil || r.client == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		r.logger.Warn("failed to close Gemini client", zap.Error(err))
	}
}

// Rephrase turns answer into one fluent sentence given the context summary.
func (r *Rephraser) Rephrase(ctx context.Context, answer, contextSummary string) (string, error) {
	if r == nil || r.model == nil {
		return "", fmt.Errorf("ai agent is not initialized")
	}

	prompt := fmt.Sprintf("Answer: %q, Context: %s", answer, contextSummary)
	resp, err := r.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	r.logger.Debug("rephrased answer", zap.String("answer", answer), zap.String("rephrased", text))
	return text, nil
}

// responseText extracts the first candidate's text, trimmed of whitespace
// and surrounding quotes.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil ||
		resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text, ok := part.(genai.Text)
		if !ok {
			return "", fmt.Errorf("unexpected response type from agent: %T", part)
		}
		sb.WriteString(string(text))
	}

	out := strings.Trim(strings.TrimSpace(sb.String()), "\"`")
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
