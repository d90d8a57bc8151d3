// Package transmitter posts punch batches to the remote API and normalizes
// every response, including network failures, into an Outcome.
package transmitter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/livinlefevreloca/biosync/internal/metrics"
)

// Maximum response body read from the API
const maxResponseBytes = 10 << 20

// Outcome is the normalized result of one API call
type Outcome struct {
	Success bool
	Message string
	TxnIDs  []string
}

// Client sends punch batches to the remote API
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a client. It fails with apperr.ErrConfig when the endpoint or
// credentials are missing.
func New(config Config, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// Send wraps batch in the envelope and posts it. It never returns an error:
// HTTP, parsing and network failures all come back as a failed Outcome.
func (c *Client) Send(ctx context.Context, batch string) Outcome {
	if c == nil || c.http == nil || c.config.Validate() != nil {
		return Outcome{Success: false, Message: "Configuration incomplete"}
	}

	payload, valid := BuildEnvelope(batch)
	if !valid {
		c.logger.Warn("constructed payload is not valid JSON, proceeding anyway but API might fail")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		c.logger.Error("API request failed", "error", err)
		metrics.APIRequests.WithLabelValues("network_error").Inc()
		return Outcome{Success: false, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password)

	c.logger.Info("sending data to API", "url", c.config.URL, "bytes", len(payload))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("API request failed", "error", err)
		metrics.APIRequests.WithLabelValues("network_error").Inc()
		return Outcome{Success: false, Message: err.Error()}
	}
	defer resp.Body.Close()

	c.logger.Info("API response status", "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		metrics.APIRequests.WithLabelValues("http_error").Inc()
		return Outcome{Success: false, Message: fmt.Sprintf("Http Error: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Error("failed to read API response", "error", err)
		metrics.APIRequests.WithLabelValues("invalid_response").Inc()
		return Outcome{Success: false, Message: "Invalid API Response"}
	}

	outcome, err := interpret(body)
	if err != nil {
		c.logger.Error("failed to parse API response", "error", err)
		metrics.APIRequests.WithLabelValues("invalid_response").Inc()
		return Outcome{Success: false, Message: "Invalid API Response"}
	}

	if outcome.Success {
		metrics.APIRequests.WithLabelValues("accepted").Inc()
	} else {
		metrics.APIRequests.WithLabelValues("rejected").Inc()
	}
	return outcome
}
