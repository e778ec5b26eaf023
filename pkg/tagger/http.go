package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/catset/pkg/core"
)

// HTTP asks a remote tagging service for the CAT.
//
// Request:  POST {"code": "<normalized code>"}
// Response: {"cat": ["...", ...]} or {"error": "..."} with a non-2xx status.
type HTTP struct {
	URL    string
	Client *http.Client
}

// NewHTTP returns an HTTP tagger. timeout bounds each request when the
// caller's context has no deadline.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	return &HTTP{URL: url, Client: &http.Client{Timeout: timeout}}
}

var _ core.Tagger = (*HTTP)(nil)

type tagRequest struct {
	Code string `json:"code"`
}

type tagResponse struct {
	CAT   []string `json:"cat"`
	Error string   `json:"error,omitempty"`
}

func (h *HTTP) GenerateTags(ctx context.Context, normalized string) ([]string, error) {
	body, err := json.Marshal(tagRequest{Code: normalized})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tagger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tagger: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read tagger response: %w", err)
	}

	var out tagResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("tagger returned %s: %s", resp.Status, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode tagger response: %w", decodeErr)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("tagger: %s", out.Error)
	}
	if out.CAT == nil {
		out.CAT = []string{}
	}
	return out.CAT, nil
}

func (h *HTTP) ComponentType() string { return "http" }
