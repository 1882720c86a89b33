package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crystal/internal/tree"
)

// HTTPOracle asks a remote parser service for trees.
type HTTPOracle struct {
	baseURL    string
	httpClient *http.Client
}

// ParseRequest is the body posted to the parser service.
type ParseRequest struct {
	Tokens   []string `json:"tokens"`
	MaxTrees int      `json:"max_trees,omitempty"`
}

// ParseResponse carries bracketed trees.
type ParseResponse struct {
	Trees []string `json:"trees"`
}

// HealthResponse is returned by the service health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Grammar string `json:"grammar,omitempty"`
}

// NewHTTPOracle creates a client for the parser service at baseURL.
func NewHTTPOracle(baseURL string) *HTTPOracle {
	return &HTTPOracle{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Health checks the parser service.
func (o *HTTPOracle) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	var resp HealthResponse
	if err := o.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (o *HTTPOracle) Parse(ctx context.Context, tokens []string) ([]*tree.Tree, error) {
	data, err := json.Marshal(ParseRequest{Tokens: tokens, MaxTrees: MaxTrees})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp ParseResponse
	if err := o.do(req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Trees) == 0 {
		return nil, ErrNoTrees
	}
	if len(resp.Trees) > MaxTrees {
		resp.Trees = resp.Trees[:MaxTrees]
	}

	trees := make([]*tree.Tree, 0, len(resp.Trees))
	for i, src := range resp.Trees {
		t, err := tree.ParseOne(src)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, t)
	}
	return trees, nil
}

func (o *HTTPOracle) do(req *http.Request, result any) error {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("parser error %d: %s", resp.StatusCode, string(body))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}
	return nil
}
