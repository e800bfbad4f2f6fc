package nn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brain-ml/brain/internal/data"
	"github.com/brain-ml/brain/internal/metrics"
)

// Report summarizes a training run.
type Report struct {
	RunID      uuid.UUID     // Identifier of the run, also found in logs and weight files
	Iterations int           // Iterations run
	Error      float64       // Error after the last iteration
	Converged  bool          // Whether Error reached the target error
	Duration   time.Duration // Wall time of the run
}

// TrainOption configures a training run.
type TrainOption func(*trainOptions)

type trainOptions struct {
	runID    uuid.UUID
	progress func(iteration int, err float64)
}

// WithRunID sets the identifier of the run instead of a random one.
func WithRunID(id uuid.UUID) TrainOption {
	return func(o *trainOptions) {
		o.runID = id
	}
}

// WithProgress calls fn after every iteration with the current error.
func WithProgress(fn func(iteration int, err float64)) TrainOption {
	return func(o *trainOptions) {
		o.progress = fn
	}
}

// Train fits the network to samples.
//
// Each iteration accumulates the gradients of MiniBatch training samples
// drawn at random with replacement, updates every neuron, then measures the
// error on the evaluating set (the training set when it is empty). Training
// stops once the error is at or below TargetError, after Iterations
// iterations, or when ctx is done. The network keeps the input
// normalization of samples for PredictRaw and Save.
//
// Example:
//
//	report, err := net.Train(ctx, samples)
//	if err != nil {
//	    return err
//	}
//	log.Info().Float64("error", report.Error).Msg("trained")
func (n *Network) Train(ctx context.Context, samples *data.Data, opts ...TrainOption) (Report, error) {
	o := trainOptions{runID: uuid.New()}
	for _, opt := range opts {
		opt(&o)
	}

	if samples == nil || samples.Training().Len() == 0 {
		n.observer.Run(metrics.ResultFailed)
		return Report{RunID: o.runID}, ErrNoSamples
	}
	if samples.InputLength() != len(n.input) {
		n.observer.Run(metrics.ResultFailed)
		return Report{RunID: o.runID}, fmt.Errorf("%w: data has %d inputs, want %d",
			ErrInputSize, samples.InputLength(), len(n.input))
	}
	if samples.OutputLength() != n.outputs() {
		n.observer.Run(metrics.ResultFailed)
		return Report{RunID: o.runID}, fmt.Errorf("%w: data has %d outputs, want %d",
			ErrOutputSize, samples.OutputLength(), n.outputs())
	}
	train, eval := samples.Training(), samples.Evaluating()
	if eval.Len() == 0 {
		eval = train
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.normalization = append(data.Normalization(nil), samples.Normalization()...)

	s := n.settings
	logger := log.With().Str("run_id", o.runID.String()).Logger()
	logEvery := max(s.Iterations/10, 1)
	start := time.Now()

	report := Report{RunID: o.runID, Error: n.totalError(eval)}
	n.lastRunID = o.runID

	logger.Info().
		Int("training", train.Len()).
		Int("evaluating", eval.Len()).
		Str("learning", s.Learning.String()).
		Float64("error", report.Error).
		Msg("training started")

	for report.Iterations < s.Iterations && report.Error > s.TargetError {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			n.observer.Run(metrics.ResultCancelled)
			logger.Warn().Err(err).Int("iteration", report.Iterations).Msg("training cancelled")
			return report, err
		}

		for range s.MiniBatch {
			in, out := train.Sample(n.rng.IntN(train.Len()))
			n.forward(in, true)
			n.backpropagate(out)
		}
		n.update(s.MiniBatch)

		report.Iterations++
		report.Error = n.totalError(eval)
		n.observer.Iteration(report.Error)
		if o.progress != nil {
			o.progress(report.Iterations, report.Error)
		}

		if report.Iterations%logEvery == 0 {
			logger.Info().
				Int("iteration", report.Iterations).
				Float64("error", report.Error).
				Msg("training progress")
		}
	}

	report.Converged = report.Error <= s.TargetError
	report.Duration = time.Since(start)

	result := metrics.ResultExhausted
	if report.Converged {
		result = metrics.ResultConverged
	}
	n.observer.Run(result)

	logger.Info().
		Int("iterations", report.Iterations).
		Float64("error", report.Error).
		Bool("converged", report.Converged).
		Dur("duration", report.Duration).
		Msg("training finished")

	return report, nil
}

// LastRunID returns the identifier of the latest training run, or uuid.Nil.
func (n *Network) LastRunID() uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastRunID
}
