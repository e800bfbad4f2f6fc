package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brain-ml/brain/internal/activation"
	"github.com/brain-ml/brain/internal/metrics"
	"github.com/brain-ml/brain/internal/nn"
)

const (
	networkXML = `<network inputs="2">
  <layers>
    <layer neurons="1"/>
  </layers>
</network>`

	settingsXML = `<settings cost-function="Quadratic" activation-function="Sigmoid" seed="7">
  <training iterations="200" error="0.0001">
    <backprop learning-rate="1.12" momentum="0.0"/>
  </training>
</settings>`

	dataXML = `<data repository="or.csv" input-length="2" output-length="1" format="InputFirst"
      parser="csv" tokenizer="," labels="false" training-ratio="1"/>`

	orCSV = "0,0,0\n0,1,1\n1,0,1\n1,1,1\n"
)

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"network.xml":  networkXML,
		"settings.xml": settingsXML,
		"data.xml":     dataXML,
		"or.csv":       orCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainAndPredict(t *testing.T) {
	dir := writeFixtures(t)
	weights := filepath.Join(dir, "or.brain")

	out, err := run(t, "train",
		"--network", filepath.Join(dir, "network.xml"),
		"--settings", filepath.Join(dir, "settings.xml"),
		"--data", filepath.Join(dir, "data.xml"),
		"--out", weights,
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BRAIN_SUCCESS iterations=200"), out)
	assert.FileExists(t, weights)

	out, err = run(t, "predict",
		"--network", filepath.Join(dir, "network.xml"),
		"--weights", weights,
		"--input", "0,1",
	)
	require.NoError(t, err)
	signal, err := parseSignal(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Len(t, signal, 1)
	assert.Greater(t, signal[0], 0.5)
}

func TestTrainXMLWeights(t *testing.T) {
	dir := writeFixtures(t)
	weights := filepath.Join(dir, "or.xml")

	_, err := run(t, "train",
		"--network", filepath.Join(dir, "network.xml"),
		"--settings", filepath.Join(dir, "settings.xml"),
		"--data", filepath.Join(dir, "data.xml"),
		"--out", weights,
		"--seed", "3",
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(weights)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<neuron bias=")
}

func TestPredictUsesStoredActivationAndNormalization(t *testing.T) {
	dir := writeFixtures(t)
	for name, content := range map[string]string{
		"tanh.xml": `<settings cost-function="Quadratic" activation-function="TanH" seed="7">
  <training iterations="50" error="0.0001">
    <backprop learning-rate="0.5" momentum="0.0"/>
  </training>
</settings>`,
		"scaled.xml": `<data repository="scaled.csv" input-length="2" output-length="1"
      labels="false" training-ratio="1"><preprocess type="GaussianNormalization"/></data>`,
		"scaled.csv": "0,100,0\n0,300,1\n10,100,1\n10,300,1\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	for _, weights := range []string{"scaled.brain", "scaled-weights.xml"} {
		t.Run(weights, func(t *testing.T) {
			path := filepath.Join(dir, weights)
			_, err := run(t, "train",
				"--network", filepath.Join(dir, "network.xml"),
				"--settings", filepath.Join(dir, "tanh.xml"),
				"--data", filepath.Join(dir, "scaled.xml"),
				"--out", path,
			)
			require.NoError(t, err)

			// Loaded without settings: activation and scaling come from the weights.
			net, _, err := loadNetwork(filepath.Join(dir, "network.xml"), "", path, 0)
			require.NoError(t, err)
			assert.Equal(t, activation.TanH, net.Layer(0).Neuron(0).Activation())
			norm := net.Normalization()
			require.Len(t, norm, 1)
			assert.InDeltaSlice(t, []float64{5, 200}, norm[0].Offset, 1e-12)

			want, err := net.Predict(norm.Apply([]float64{10, 100}))
			require.NoError(t, err)

			out, err := run(t, "predict",
				"--network", filepath.Join(dir, "network.xml"),
				"--weights", path,
				"--input", "10,100",
			)
			require.NoError(t, err)
			assert.Equal(t, formatSignal(want), strings.TrimSpace(out))
		})
	}
}

func TestTrainMissingFlags(t *testing.T) {
	_, err := run(t, "train", "--network", "network.xml")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "Brain "+version+"\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--log-level", "loud", "version"})
	cmd.SetOut(&bytes.Buffer{})
	require.Error(t, cmd.Execute())
}

func TestParseSignal(t *testing.T) {
	got, err := parseSignal("1, 0.5 -2")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.5, -2}, got)

	_, err = parseSignal("")
	require.Error(t, err)

	_, err = parseSignal("1,x")
	require.Error(t, err)

	assert.Equal(t, "1,0.25,-3", formatSignal([]float64{1, 0.25, -3}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := prometheus.NewRegistry()
	net, err := nn.New(2, []nn.LayerSpec{{Neurons: 2}}, nn.WithSeed(1), nn.WithObserver(metrics.NewObserver(registry)))
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(net, registry))
	t.Cleanup(srv.Close)
	return srv
}

func TestServePredict(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(`{"input":[1,0]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body predictResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Output, 2)
}

func TestServePredictErrors(t *testing.T) {
	srv := newTestServer(t)

	for name, payload := range map[string]string{
		"wrong size": `{"input":[1,0,1]}`,
		"not json":   `{"input":`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(payload))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}

	resp, err := http.Get(srv.URL + "/predict")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServeMetricsAndHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(`{"input":[0,1]}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "brain_predictions_total 1")

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
