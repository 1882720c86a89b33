package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeModel struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if text, ok := parts[0].(genai.Text); ok {
			f.prompt = string(text)
		}
	}
	return f.resp, f.err
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestNewRephraserWithoutKey(t *testing.T) {
	r, err := NewRephraser(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Nil(t, r)
	r.Close()
}

func TestRephrase(t *testing.T) {
	model := &fakeModel{resp: textResponse(genai.Text("  \"The man and his dog.\"\n"))}
	r := &Rephraser{model: model, logger: zap.NewNop()}

	got, err := r.Rephrase(context.Background(), "The man and the dog.", "[s1 | man.n.01(s1)]")
	require.NoError(t, err)
	assert.Equal(t, "The man and his dog.", got)
	assert.Equal(t, `Answer: "The man and the dog.", Context: [s1 | man.n.01(s1)]`, model.prompt)
}

func TestRephraseJoinsTextParts(t *testing.T) {
	model := &fakeModel{resp: textResponse(genai.Text("The man "), genai.Text("walks."))}
	r := &Rephraser{model: model, logger: zap.NewNop()}

	got, err := r.Rephrase(context.Background(), "The man.", "")
	require.NoError(t, err)
	assert.Equal(t, "The man walks.", got)
}

func TestRephraseFailures(t *testing.T) {
	boom := errors.New("quota exceeded")
	tests := []struct {
		name  string
		model *fakeModel
		check func(t *testing.T, err error)
	}{
		{"api error", &fakeModel{err: boom}, func(t *testing.T, err error) { assert.ErrorIs(t, err, boom) }},
		{"no candidates", &fakeModel{resp: &genai.GenerateContentResponse{}}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrEmptyResponse)
		}},
		{"blank text", &fakeModel{resp: textResponse(genai.Text("  "))}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrEmptyResponse)
		}},
		{"non-text part", &fakeModel{resp: textResponse(genai.Blob{MIMEType: "image/png"})}, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "unexpected response type")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Rephraser{model: tt.model, logger: zap.NewNop()}
			_, err := r.Rephrase(context.Background(), "The man.", "")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRephraseUninitialized(t *testing.T) {
	var r *Rephraser
	_, err := r.Rephrase(context.Background(), "The man.", "")
	assert.ErrorContains(t, err, "not initialized")
}
