// Package oracle talks to the local effort-estimation service. The planner
// treats it as an opaque capability: a query in, a minute count or a tagged
// failure out.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/ports"
)

const systemInstruction = "You estimate how long academic tasks take. " +
	"Respond with a single JSON object of the form {\"minutes\": N} where N " +
	"is a whole number of minutes of focused work. No other text."

// Client implements ports.EffortOracle against an Ollama-compatible local
// inference endpoint.
type Client struct {
	endpoint string
	model    string
	http     *http.Client
}

var _ ports.EffortOracle = (*Client)(nil)

// NewClient builds a reusable client. Per-call deadlines come from the
// caller's context, so the underlying http.Client carries no timeout here.
func NewClient(endpoint, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		http:     httpClient,
	}
}

// EstimateEffort prompts the model for a minute estimate. Failures carry one
// of the Unavailable/Timeout/InvalidResponse tags.
func (c *Client) EstimateEffort(ctx context.Context, q ports.EffortQuery) (int, error) {
	body, err := json.Marshal(map[string]any{
		"model":  c.model,
		"prompt": buildPrompt(q),
		"system": systemInstruction,
		"format": "json",
		"stream": false,
	})
	if err != nil {
		return 0, &domain.OracleError{Tag: domain.OracleInvalidResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return 0, &domain.OracleError{Tag: domain.OracleUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		tag := domain.OracleUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			tag = domain.OracleTimeout
		}
		return 0, &domain.OracleError{Tag: tag, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &domain.OracleError{
			Tag: domain.OracleUnavailable,
			Err: fmt.Errorf("status %s", resp.Status),
		}
	}

	var generated struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return 0, &domain.OracleError{Tag: domain.OracleInvalidResponse, Err: err}
	}

	var estimate struct {
		Minutes *int `json:"minutes"`
	}
	if err := json.Unmarshal([]byte(generated.Response), &estimate); err != nil {
		return 0, &domain.OracleError{
			Tag: domain.OracleInvalidResponse,
			Err: fmt.Errorf("model response is not the expected JSON: %w", err),
		}
	}
	if estimate.Minutes == nil || *estimate.Minutes < 0 {
		return 0, &domain.OracleError{
			Tag: domain.OracleInvalidResponse,
			Err: errors.New("missing or negative minutes"),
		}
	}

	return *estimate.Minutes, nil
}

func buildPrompt(q ports.EffortQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task kind: %s\nTitle: %s\n", q.Kind, q.Title)
	if q.CourseCode != "" {
		fmt.Fprintf(&b, "Course: %s\n", q.CourseCode)
	}
	b.WriteString("How many minutes of focused work does this task need?")
	return b.String()
}
