package nn

import (
	"bytes"
	"context"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brain-ml/brain/internal/activation"
	"github.com/brain-ml/brain/internal/config"
	"github.com/brain-ml/brain/internal/cost"
	"github.com/brain-ml/brain/internal/data"
	"github.com/brain-ml/brain/internal/metrics"
	"github.com/brain-ml/brain/internal/optim"
	"github.com/brain-ml/brain/internal/parallel"
	"github.com/brain-ml/brain/internal/serialization"
)

func newTestNetwork(t *testing.T, inputs int, layers ...LayerSpec) *Network {
	t.Helper()
	n, err := New(inputs, layers, WithSeed(1), WithParallel(parallel.Sequential()))
	require.NoError(t, err)
	return n
}

// orData is the logical OR truth table.
func orData(t *testing.T) *data.Data {
	t.Helper()
	set := data.Dataset{
		Inputs:  [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
		Outputs: [][]float64{{0}, {1}, {1}, {1}},
	}
	d, err := data.New(set, data.Dataset{}, 2, 1)
	require.NoError(t, err)
	return d
}

func TestNewShape(t *testing.T) {
	n := newTestNetwork(t, 3, LayerSpec{Neurons: 4}, LayerSpec{Neurons: 2})

	assert.Equal(t, 3, n.NumInputs())
	assert.Equal(t, 2, n.NumLayers())
	assert.Equal(t, 2, n.NumOutputs())
	assert.Equal(t, 4, n.Layer(0).NumNeurons())
	assert.Equal(t, 3, n.Layer(0).NumInputs())
	assert.Equal(t, 4, n.Layer(1).NumInputs())

	limit := 1 / math.Sqrt(3)
	for i := range 4 {
		neuron := n.Layer(0).Neuron(i)
		require.Equal(t, 3, neuron.NumInputs())
		assert.LessOrEqual(t, math.Abs(neuron.Bias()), limit)
		for _, w := range neuron.Weights() {
			assert.LessOrEqual(t, math.Abs(w), limit)
		}
		assert.Equal(t, activation.Sigmoid, neuron.Activation())
		assert.Equal(t, optim.BackPropagation, neuron.Learning())
	}
}

func TestNewInvalidShape(t *testing.T) {
	tests := []struct {
		name   string
		inputs int
		layers []LayerSpec
	}{
		{"no inputs", 0, []LayerSpec{{Neurons: 1}}},
		{"no layers", 2, nil},
		{"empty layer", 2, []LayerSpec{{Neurons: 2}, {Neurons: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.inputs, tt.layers)
			assert.ErrorIs(t, err, ErrInvalidShape)
		})
	}
}

func TestNewFromDescriptor(t *testing.T) {
	n, err := NewFromDescriptor(config.NetworkDescriptor{
		Inputs: 2,
		Layers: []LayerSpec{{Neurons: 3, Activation: activation.TanH}, {Neurons: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, activation.TanH, n.Layer(0).Neuron(0).Activation())
	assert.Equal(t, activation.Sigmoid, n.Layer(1).Neuron(0).Activation())

	_, err = NewFromDescriptor(config.NetworkDescriptor{Inputs: 2})
	require.ErrorIs(t, err, ErrInvalidShape)
	require.ErrorIs(t, err, config.ErrInvalidNetwork)
}

func TestSameSeedSameWeights(t *testing.T) {
	a := newTestNetwork(t, 2, LayerSpec{Neurons: 3})
	b := newTestNetwork(t, 2, LayerSpec{Neurons: 3})
	for i := range 3 {
		assert.Equal(t, a.Layer(0).Neuron(i).Weights(), b.Layer(0).Neuron(i).Weights())
	}
}

func TestConfigure(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 2, Activation: activation.ReLU}, LayerSpec{Neurons: 1})

	s := config.Defaults()
	s.Activation = activation.TanH
	s.Learning = optim.Resilient
	s.Cost = cost.CrossEntropy
	require.NoError(t, n.Configure(s))

	assert.Equal(t, activation.ReLU, n.Layer(0).Neuron(0).Activation())
	assert.Equal(t, activation.TanH, n.Layer(1).Neuron(0).Activation())
	assert.Equal(t, optim.Resilient, n.Layer(1).Neuron(0).Learning())
	assert.Equal(t, s, n.Settings())

	s.Iterations = 0
	require.ErrorIs(t, n.Configure(s), config.ErrInvalidSettings)
}

func TestPredict(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 2}, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.Activation = activation.Identity
	require.NoError(t, n.Configure(s))

	doc := `<network>
  <layer>
    <neuron bias="0.5"><weight>1</weight><weight>2</weight></neuron>
    <neuron bias="-1"><weight>-1</weight><weight>0.5</weight></neuron>
  </layer>
  <layer>
    <neuron bias="0.25"><weight>2</weight><weight>-3</weight></neuron>
  </layer>
</network>`
	require.NoError(t, n.DeserializeXML(strings.NewReader(doc)))

	out, err := n.Predict([]float64{1, 2})
	require.NoError(t, err)

	// Hidden: 1+4+0.5 = 5.5 and -1+1-1 = -1. Output: 11+3+0.25.
	require.Len(t, out, 1)
	assert.InDelta(t, 14.25, out[0], 1e-12)
	assert.Equal(t, []float64{5.5, -1}, n.Layer(0).Output())
	assert.Equal(t, out, n.Output())

	// The returned slice is a copy.
	out[0] = 0
	assert.InDelta(t, 14.25, n.Output()[0], 1e-12)

	_, err = n.Predict([]float64{1})
	require.ErrorIs(t, err, ErrInputSize)
}

func TestTotalError(t *testing.T) {
	n := newTestNetwork(t, 1, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.Activation = activation.Identity
	require.NoError(t, n.Configure(s))
	require.NoError(t, n.DeserializeXML(strings.NewReader(
		`<network><layer><neuron bias="0"><weight>1</weight></neuron></layer></network>`)))

	samples := data.Dataset{
		Inputs:  [][]float64{{1}, {3}},
		Outputs: [][]float64{{0}, {1}},
	}
	got, err := n.TotalError(samples)
	require.NoError(t, err)
	// Quadratic: (0.5·1 + 0.5·4) / 2.
	assert.InDelta(t, 1.25, got, 1e-12)

	got, err = n.TotalError(data.Dataset{})
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = n.TotalError(data.Dataset{Inputs: [][]float64{{1}}, Outputs: [][]float64{{1, 2}}})
	require.ErrorIs(t, err, ErrOutputSize)
}

// TestGradients compares backpropagated gradients with finite differences
// of the cost.
func TestGradients(t *testing.T) {
	for _, c := range []cost.Type{cost.Quadratic, cost.CrossEntropy} {
		t.Run(c.String(), func(t *testing.T) {
			n := newTestNetwork(t, 3, LayerSpec{Neurons: 4, Activation: activation.TanH}, LayerSpec{Neurons: 2})
			s := config.Defaults()
			s.Cost = c
			require.NoError(t, n.Configure(s))

			input := []float64{0.3, -0.7, 0.9}
			target := []float64{0.2, 0.9}
			sample := data.Dataset{Inputs: [][]float64{input}, Outputs: [][]float64{target}}

			n.forward(input, false)
			n.backpropagate(target)

			const h = 1e-6
			for li, l := range n.layers {
				for ni, neuron := range l.neurons {
					for k := range neuron.param.Values {
						orig := neuron.param.Values[k]
						neuron.param.Values[k] = orig + h
						plus := n.totalError(sample)
						neuron.param.Values[k] = orig - h
						minus := n.totalError(sample)
						neuron.param.Values[k] = orig

						numeric := (plus - minus) / (2 * h)
						assert.InDelta(t, numeric, neuron.param.Grads[k], 1e-6,
							"layer %d neuron %d value %d", li, ni, k)
					}
				}
			}
		})
	}
}

// TestParallelMatchesSequential runs wide layers across goroutines and
// expects the same outputs, gradients and updates as a sequential run.
func TestParallelMatchesSequential(t *testing.T) {
	layers := []LayerSpec{
		{Neurons: 128, Activation: activation.TanH},
		{Neurons: 128},
		{Neurons: 8},
	}
	seq, err := New(3, layers, WithSeed(11), WithParallel(parallel.Sequential()))
	require.NoError(t, err)
	par, err := New(3, layers, WithSeed(11), WithParallel(parallel.Config{Enabled: true, Workers: 4, MinChunk: 4}))
	require.NoError(t, err)

	input := []float64{0.4, -0.1, 0.8}
	target := []float64{1, 0, 0, 1, 0, 1, 1, 0}
	for _, n := range []*Network{seq, par} {
		for range 3 {
			n.forward(input, false)
			n.backpropagate(target)
		}
	}

	assert.Equal(t, seq.layers[2].output, par.layers[2].output)
	for li := range seq.layers {
		assert.Equal(t, seq.layers[li].errors, par.layers[li].errors, "layer %d errors", li)
		for ni := range seq.layers[li].neurons {
			assert.Equal(t, seq.layers[li].neurons[ni].param.Grads, par.layers[li].neurons[ni].param.Grads,
				"layer %d neuron %d", li, ni)
		}
	}

	seq.update(3)
	par.update(3)
	for li := range seq.layers {
		assert.Equal(t, seq.layers[li].values(), par.layers[li].values(), "layer %d", li)
	}
}

func TestTrainBackProp(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.Iterations = 2000
	s.TargetError = 0
	require.NoError(t, n.Configure(s))

	d := orData(t)
	before, err := n.TotalError(d.Training())
	require.NoError(t, err)

	var calls int
	report, err := n.Train(context.Background(), d, WithProgress(func(int, float64) { calls++ }))
	require.NoError(t, err)

	assert.Equal(t, 2000, report.Iterations)
	assert.Equal(t, 2000, calls)
	assert.False(t, report.Converged)
	assert.Less(t, report.Error, before)
	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Equal(t, report.RunID, n.LastRunID())

	for i, in := range d.Training().Inputs {
		out, err := n.Predict(in)
		require.NoError(t, err)
		assert.InDelta(t, d.Training().Outputs[i][0], out[0], 0.4, "input %v", in)
	}
}

func TestTrainResilient(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.Learning = optim.Resilient
	s.Resilient.EtaNegative = 0.5
	s.Iterations = 2000
	s.TargetError = 0.01
	require.NoError(t, n.Configure(s))

	d := orData(t)
	report, err := n.Train(context.Background(), d)
	require.NoError(t, err)

	assert.True(t, report.Converged)
	assert.LessOrEqual(t, report.Error, 0.01)
	assert.Less(t, report.Iterations, 2000)
}

func TestTrainStopsAtTarget(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.TargetError = 10 // already reached
	require.NoError(t, n.Configure(s))

	report, err := n.Train(context.Background(), orData(t))
	require.NoError(t, err)
	assert.Zero(t, report.Iterations)
	assert.True(t, report.Converged)
}

func TestTrainErrors(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})

	empty, err := data.New(data.Dataset{}, data.Dataset{}, 2, 1)
	require.NoError(t, err)
	_, err = n.Train(context.Background(), empty)
	require.ErrorIs(t, err, ErrNoSamples)

	wide, err := data.New(data.Dataset{Inputs: [][]float64{{1, 2, 3}}, Outputs: [][]float64{{1}}}, data.Dataset{}, 3, 1)
	require.NoError(t, err)
	_, err = n.Train(context.Background(), wide)
	require.ErrorIs(t, err, ErrInputSize)

	_, err = n.Train(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoSamples)

	tall, err := data.New(data.Dataset{Inputs: [][]float64{{1, 2}}, Outputs: [][]float64{{1, 0}}}, data.Dataset{}, 2, 2)
	require.NoError(t, err)
	_, err = n.Train(context.Background(), tall)
	require.ErrorIs(t, err, ErrOutputSize)
}

func TestTrainCancelled(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.TargetError = 0
	require.NoError(t, n.Configure(s))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := n.Train(ctx, orData(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Iterations)
}

func TestDropout(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 64}, LayerSpec{Neurons: 4})
	s := config.Defaults()
	s.Dropout = true
	s.DropoutRatio = 0.5
	require.NoError(t, n.Configure(s))

	n.forward([]float64{1, 1}, true)

	var dropped int
	for i, active := range n.layers[0].active {
		if !active {
			dropped++
			assert.Zero(t, n.layers[0].output[i])
		}
	}
	assert.Greater(t, dropped, 0)
	assert.Less(t, dropped, 64)

	// The output layer is never masked.
	for _, active := range n.layers[1].active {
		assert.True(t, active)
	}

	// Prediction ignores dropout.
	n.forward([]float64{1, 1}, false)
	for _, active := range n.layers[0].active {
		assert.True(t, active)
	}
}

func TestXMLRoundTrip(t *testing.T) {
	a := newTestNetwork(t, 2, LayerSpec{Neurons: 3}, LayerSpec{Neurons: 2})
	var buf bytes.Buffer
	require.NoError(t, a.SerializeXML(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	b, err := New(2, []LayerSpec{{Neurons: 3}, {Neurons: 2}}, WithSeed(99))
	require.NoError(t, err)
	require.NoError(t, b.DeserializeXML(&buf))

	for li := range a.layers {
		for ni := range a.layers[li].neurons {
			assert.Equal(t, a.Layer(li).Neuron(ni).Weights(), b.Layer(li).Neuron(ni).Weights())
			assert.Equal(t, a.Layer(li).Neuron(ni).Bias(), b.Layer(li).Neuron(ni).Bias())
		}
	}
}

func TestDeserializeShapeMismatch(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	tests := map[string]string{
		"layers":  `<network></network>`,
		"neurons": `<network><layer></layer></network>`,
		"weights": `<network><layer><neuron bias="0"><weight>1</weight></neuron></layer></network>`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, n.DeserializeXML(strings.NewReader(doc)), ErrShapeMismatch)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"weights.xml", "weights.brain"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			a := newTestNetwork(t, 3, LayerSpec{Neurons: 4}, LayerSpec{Neurons: 2})
			require.NoError(t, a.Save(path))

			b, err := New(3, []LayerSpec{{Neurons: 4}, {Neurons: 2}}, WithSeed(5))
			require.NoError(t, err)
			require.NoError(t, b.Load(path))

			input := []float64{0.1, 0.2, 0.3}
			want, err := a.Predict(input)
			require.NoError(t, err)
			got, err := b.Predict(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			c, err := New(3, []LayerSpec{{Neurons: 5}, {Neurons: 2}})
			require.NoError(t, err)
			assert.ErrorIs(t, c.Load(path), ErrShapeMismatch)
		})
	}
}

func TestLoadRestoresActivation(t *testing.T) {
	for _, name := range []string{"weights.xml", "weights.brain"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			a := newTestNetwork(t, 2, LayerSpec{Neurons: 3}, LayerSpec{Neurons: 1})
			s := config.Defaults()
			s.Activation = activation.TanH
			require.NoError(t, a.Configure(s))
			require.NoError(t, a.Save(path))

			b := newTestNetwork(t, 2, LayerSpec{Neurons: 3}, LayerSpec{Neurons: 1})
			require.Equal(t, activation.Sigmoid, b.Layer(0).Neuron(0).Activation())
			require.NoError(t, b.Load(path))

			for li := range b.layers {
				for ni := range b.layers[li].neurons {
					assert.Equal(t, activation.TanH, b.Layer(li).Neuron(ni).Activation())
				}
			}

			input := []float64{0.7, -0.3}
			want, err := a.Predict(input)
			require.NoError(t, err)
			got, err := b.Predict(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// Configuring again keeps the activation the weights were trained with.
			require.NoError(t, b.Configure(config.Defaults()))
			assert.Equal(t, activation.TanH, b.Layer(1).Neuron(0).Activation())
		})
	}
}

func TestDeserializeUnknownActivation(t *testing.T) {
	n := newTestNetwork(t, 1, LayerSpec{Neurons: 1})
	before := n.Layer(0).Neuron(0).Weights()

	doc := `<network><layer activation="Bogus"><neuron bias="0"><weight>3</weight></neuron></layer></network>`
	require.ErrorIs(t, n.DeserializeXML(strings.NewReader(doc)), activation.ErrUnknown)
	assert.Equal(t, before, n.Layer(0).Neuron(0).Weights())
	assert.Equal(t, activation.Sigmoid, n.Layer(0).Neuron(0).Activation())
}

func TestDeserializeInvalidNormalization(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	doc := `<network>
  <preprocess type="GaussianNormalization"><column offset="1" scale="2"/></preprocess>
  <layer><neuron bias="0"><weight>1</weight><weight>1</weight></neuron></layer>
</network>`
	require.ErrorIs(t, n.DeserializeXML(strings.NewReader(doc)), serialization.ErrScaling)
	assert.Empty(t, n.Normalization())
}

func TestNormalizationSavedWithWeights(t *testing.T) {
	rows := "10,100,0\n20,300,1\n30,200,1\n40,400,0\n"
	d, err := data.Load(strings.NewReader(rows), data.Options{
		InputLength:   2,
		OutputLength:  1,
		TrainingRatio: 1,
		Preprocess:    []data.Preprocessing{data.GaussianNormalization},
	}, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	a := newTestNetwork(t, 2, LayerSpec{Neurons: 3}, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.Iterations = 3
	s.TargetError = 0
	require.NoError(t, a.Configure(s))
	_, err = a.Train(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, d.Normalization(), a.Normalization())

	raw := []float64{20, 300}
	normalized := d.Normalization().Apply(raw)
	want, err := a.Predict(normalized)
	require.NoError(t, err)
	got, err := a.PredictRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, name := range []string{"weights.xml", "weights.brain"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, a.Save(path))

			b := newTestNetwork(t, 2, LayerSpec{Neurons: 3}, LayerSpec{Neurons: 1})
			require.NoError(t, b.Load(path))
			assert.Equal(t, d.Normalization(), b.Normalization())

			got, err := b.PredictRaw(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err = a.PredictRaw([]float64{1})
	require.ErrorIs(t, err, ErrInputSize)
}

func TestPredictRawWithoutNormalization(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	want, err := n.Predict([]float64{1, 2})
	require.NoError(t, err)
	got, err := n.PredictRaw([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveKeepsRunID(t *testing.T) {
	n := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	s := config.Defaults()
	s.Iterations = 1
	s.TargetError = 0
	require.NoError(t, n.Configure(s))

	id := uuid.New()
	_, err := n.Train(context.Background(), orData(t), WithRunID(id))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "weights.brain")
	require.NoError(t, n.Save(path))

	m := newTestNetwork(t, 2, LayerSpec{Neurons: 1})
	require.NoError(t, m.Load(path))
	assert.Equal(t, id, m.LastRunID())
}

func TestObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := metrics.NewObserver(reg)

	n, err := New(2, []LayerSpec{{Neurons: 1}}, WithSeed(3), WithObserver(o))
	require.NoError(t, err)
	s := config.Defaults()
	s.Iterations = 5
	s.TargetError = 0
	require.NoError(t, n.Configure(s))

	_, err = n.Train(context.Background(), orData(t))
	require.NoError(t, err)
	_, err = n.Predict([]float64{0, 1})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[f.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[f.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	assert.InDelta(t, 5, values["brain_training_iterations_total"], 1e-12)
	assert.InDelta(t, 1, values["brain_training_runs_total"], 1e-12)
	assert.InDelta(t, 1, values["brain_predictions_total"], 1e-12)

	count, err := testutil.GatherAndCount(reg, "brain_training_error")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestResult(t *testing.T) {
	assert.Equal(t, Success, ResultOf(nil))
	assert.Equal(t, Failed, ResultOf(ErrNoSamples))
	assert.Equal(t, "BRAIN_SUCCESS", Success.String())
	assert.Equal(t, "BRAIN_FAILED", Failed.String())
	assert.Equal(t, 0, int(Failed))
	assert.Equal(t, 1, int(Success))
}
