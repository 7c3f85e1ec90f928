package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FezVrasta/hassflow/pkg/graph"
	"github.com/FezVrasta/hassflow/pkg/pipeline"
)

const sampleDoc = `
alias: Evening lights
triggers:
  - trigger: state
    entity_id: sensor.motion
    to: "on"
actions:
  - action: light.turn_on
    target:
      entity_id: light.living_room
`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	srv := New(pipeline.NewRunner(nil, nil, logger), logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postParse(t *testing.T, ts *httptest.Server, body string) (*http.Response, parseResponse) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/parse", "application/yaml", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out parseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealthz(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVersion(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out["version"])
}

func TestParse(t *testing.T) {
	ts := testServer(t)

	resp, out := postParse(t, ts, sampleDoc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, out.Success)
	require.NotNil(t, out.Graph)
	assert.Len(t, out.Graph.Nodes, 2)
	assert.Len(t, out.Graph.Edges, 1)
}

func TestParse_EmptyBody(t *testing.T) {
	ts := testServer(t)

	resp, out := postParse(t, ts, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, out.Success)
}

func TestParse_MalformedDocument(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/parse", "application/yaml", strings.NewReader("actions: []\n"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "STRUCTURAL_ERROR", out.Code)
	assert.NotEmpty(t, out.Errors)
}

func TestTranspile(t *testing.T) {
	ts := testServer(t)

	_, parsed := postParse(t, ts, sampleDoc)
	require.True(t, parsed.Success)

	body, err := json.Marshal(transpileRequest{Graph: parsed.Graph})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/transpile", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out transpileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Success)
	assert.Equal(t, "native", out.Strategy)
	assert.Contains(t, out.YAML, "light.turn_on")
}

func TestTranspile_ForcedStrategy(t *testing.T) {
	ts := testServer(t)

	_, parsed := postParse(t, ts, sampleDoc)
	require.True(t, parsed.Success)

	body, err := json.Marshal(transpileRequest{Graph: parsed.Graph, Strategy: "state-machine"})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/transpile", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out transpileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Success)
	assert.Equal(t, "state-machine", out.Strategy)
}

func TestTranspile_UnknownStrategy(t *testing.T) {
	ts := testServer(t)

	_, parsed := postParse(t, ts, sampleDoc)
	require.True(t, parsed.Success)

	body, err := json.Marshal(transpileRequest{Graph: parsed.Graph, Strategy: "bogus"})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/transpile", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranspile_MissingGraph(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/transpile", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranspile_InvalidGraph(t *testing.T) {
	ts := testServer(t)

	// No trigger node: fails validation.
	g := &graph.Graph{Nodes: []graph.Node{{ID: "a1", Type: graph.NodeAction}}}
	body, err := json.Marshal(transpileRequest{Graph: g})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/transpile", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRender_DOT(t *testing.T) {
	ts := testServer(t)

	_, parsed := postParse(t, ts, sampleDoc)
	require.True(t, parsed.Success)

	body, err := json.Marshal(transpileRequest{Graph: parsed.Graph, Format: "dot"})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/render", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(out), "digraph G")
}

func TestRender_UnknownFormat(t *testing.T) {
	ts := testServer(t)

	_, parsed := postParse(t, ts, sampleDoc)
	require.True(t, parsed.Success)

	body, err := json.Marshal(transpileRequest{Graph: parsed.Graph, Format: "png"})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/render", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
