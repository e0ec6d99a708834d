package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pinch/internal/domain"
)

// ClaimRequest is the body of POST /agents/claim.
type ClaimRequest struct {
	ClaimCode   string `json:"claim_code"`
	AdminSecret string `json:"admin_secret"`
}

// ClaimResponse is the body of a successful claim.
type ClaimResponse struct {
	Address string `json:"address"`
	Status  string `json:"status"`
}

// StatusError is returned for non-2xx relay responses. Text is the trimmed
// response body.
type StatusError struct {
	Code int
	Text string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("claim failed (%d): %s", e.Code, e.Text)
}

// HTTPClient is the relay's administration client.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at relayURL, which may be the
// WebSocket URL agents use.
func NewHTTP(relayURL string) *HTTPClient {
	return &HTTPClient{
		Base: BaseURL(relayURL),
		HTTP: http.DefaultClient,
	}
}

var _ domain.RelayClient = (*HTTPClient)(nil)

// Claim approves the pending registration identified by claimCode.
func (c *HTTPClient) Claim(ctx context.Context, claimCode, adminSecret string) (domain.Address, error) {
	var out ClaimResponse
	err := c.post(ctx, "/agents/claim", ClaimRequest{ClaimCode: claimCode, AdminSecret: adminSecret}, &out)
	if err != nil {
		return "", err
	}
	return domain.Address(out.Address), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Text: strings.TrimSpace(string(body))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
