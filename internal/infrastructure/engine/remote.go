package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/hashicorp/go-retryablehttp"
)

// Manifest describes a versioned remote engine bundle. The bundle is
// considered to expose the engine only when its name matches the expected
// symbol and it advertises a render endpoint.
type Manifest struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	RenderURL string   `json:"renderUrl"`
	Features  []string `json:"features,omitempty"`
}

// RemoteInstaller fetches the pinned engine bundle manifest over HTTP and,
// when the manifest exposes the expected engine, installs a remote engine
// client into the host environment.
type RemoteInstaller struct {
	manifestURL string
	symbol      string
	client      *retryablehttp.Client
	logger      *logging.ChanneledLogger
}

// NewRemoteInstaller creates an installer for the given pinned manifest URL.
func NewRemoteInstaller(manifestURL, symbol string, timeout time.Duration, logger *logging.ChanneledLogger) *RemoteInstaller {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = timeout
	client.Logger = nil // retryablehttp's own logging is too chatty; the engine channel covers it

	return &RemoteInstaller{
		manifestURL: manifestURL,
		symbol:      symbol,
		client:      client,
		logger:      logger,
	}
}

// Install performs the remote fetch. A returned error means the fetch itself
// failed (network error or malformed resource). When the fetch completes but
// the manifest does not expose the expected engine, Install returns nil
// without installing anything; the loader then reports the symbol as missing.
func (ri *RemoteInstaller) Install(ctx context.Context, env *HostEnv) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ri.manifestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build manifest request: %w", err)
	}

	start := time.Now()
	resp, err := ri.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch engine manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine manifest fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read engine manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return fmt.Errorf("malformed engine manifest: %w", err)
	}

	ri.logger.Engine().Info("Engine manifest fetched",
		"name", manifest.Name, "version", manifest.Version, "duration", time.Since(start))

	if manifest.Name != ri.symbol || manifest.RenderURL == "" {
		// Fetch completed but the resource does not expose the engine.
		ri.logger.Engine().Warn("Fetched bundle does not expose expected engine symbol",
			"expected", ri.symbol, "got", manifest.Name)
		return nil
	}

	env.Install(ri.symbol, newRemoteEngine(manifest, ri.client))
	return nil
}

// NewEndpointEngine creates an engine client for a pre-provisioned render
// endpoint, bypassing manifest discovery. The embedding application installs
// it into the host environment ahead of acquisition; the loader then adopts
// it directly.
func NewEndpointEngine(renderURL string, timeout time.Duration) Engine {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return newRemoteEngine(Manifest{RenderURL: renderURL, Version: "endpoint"}, client)
}

// remoteEngine is the client for an engine reached over HTTP. Configuration
// is held locally and submitted with every render request; the remote side
// treats repeated identical configuration as idempotent.
type remoteEngine struct {
	renderURL string
	version   string
	client    *retryablehttp.Client

	mu   sync.RWMutex
	opts diagram.EngineOptions
}

func newRemoteEngine(manifest Manifest, client *retryablehttp.Client) *remoteEngine {
	return &remoteEngine{
		renderURL: manifest.RenderURL,
		version:   manifest.Version,
		client:    client,
	}
}

// Configure stores the options applied to subsequent render calls.
func (e *remoteEngine) Configure(ctx context.Context, opts diagram.EngineOptions) error {
	switch opts.SecurityLevel {
	case "strict", "loose", "antiscript", "sandbox":
	default:
		return fmt.Errorf("unsupported security level %q", opts.SecurityLevel)
	}

	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
	return nil
}

// renderPayload is the wire format for one render attempt.
type renderPayload struct {
	ID      string                `json:"id"`
	Text    string                `json:"text"`
	Options diagram.EngineOptions `json:"options"`
}

// renderResult is the wire format of the engine's render response.
type renderResult struct {
	SVG   string `json:"svg"`
	Error string `json:"error,omitempty"`
}

// Render submits one attempt to the remote engine. The diagram text is sent
// verbatim; any sanitization is the engine's own security posture.
func (e *remoteEngine) Render(ctx context.Context, req diagram.RenderRequest) (string, error) {
	e.mu.RLock()
	payload := renderPayload{ID: req.ID, Text: req.Text, Options: e.opts}
	e.mu.RUnlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal render request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.renderURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read render response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render returned status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	var result renderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("malformed render response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("engine rejected diagram: %s", result.Error)
	}

	return result.SVG, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
