package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteInstallerInstallsEngineFromManifest(t *testing.T) {
	var renderURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Manifest{
			Name:      testSymbol,
			Version:   "10.9.1",
			RenderURL: renderURL,
		})
	})
	mux.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) {
		var payload renderPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(renderResult{SVG: "<svg>" + payload.Text + "</svg>"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	renderURL = srv.URL + "/render"

	installer := NewRemoteInstaller(srv.URL+"/manifest.json", testSymbol, 5*time.Second, quietLogger(t))
	env := NewHostEnv()
	require.NoError(t, installer.Install(context.Background(), env))

	eng, ok := env.Lookup(testSymbol)
	require.True(t, ok, "the expected symbol must appear after a successful fetch")

	require.NoError(t, eng.Configure(context.Background(), diagram.EngineOptions{SecurityLevel: "strict"}))
	svg, err := eng.Render(context.Background(), diagram.RenderRequest{ID: "r-1", Text: "graph TD; A"})
	require.NoError(t, err)
	assert.Equal(t, "<svg>graph TD; A</svg>", svg)
}

func TestRemoteInstallerRejectsForeignManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Manifest{Name: "plantuml", Version: "1.0", RenderURL: "http://x/render"})
	}))
	defer srv.Close()

	installer := NewRemoteInstaller(srv.URL, testSymbol, 5*time.Second, quietLogger(t))
	env := NewHostEnv()

	// A completed fetch that does not expose the engine is not a fetch error.
	require.NoError(t, installer.Install(context.Background(), env))
	_, ok := env.Lookup(testSymbol)
	assert.False(t, ok)
}

func TestRemoteInstallerMalformedManifestIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	installer := NewRemoteInstaller(srv.URL, testSymbol, 5*time.Second, quietLogger(t))
	err := installer.Install(context.Background(), NewHostEnv())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestRemoteEngineRejectsUnknownSecurityLevel(t *testing.T) {
	eng := newRemoteEngine(Manifest{RenderURL: "http://x/render"}, nil)
	err := eng.Configure(context.Background(), diagram.EngineOptions{SecurityLevel: "yolo"})
	require.Error(t, err)
}

func TestRemoteEngineSurfacesEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(renderResult{Error: "lexical error on line 1"})
	}))
	defer srv.Close()

	eng := NewEndpointEngine(srv.URL, 5*time.Second)
	require.NoError(t, eng.Configure(context.Background(), diagram.EngineOptions{SecurityLevel: "strict"}))

	_, err := eng.Render(context.Background(), diagram.RenderRequest{ID: "r-1", Text: "???"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lexical error")
}
