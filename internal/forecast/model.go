package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// MedianLevel is the quantile used as point estimate for quantile predictions
const MedianLevel = 0.5

// Model is a batch forecasting capability.
// Sequences in a batch keep their own length; a model that needs a rectangular
// input pads them itself. Predict returns one Prediction per input sequence, in input order.
type Model interface {
	Predict(ctx context.Context, batch [][]float64, horizon int) ([]Prediction, error)
}

// Prediction is the model output for one sequence.
// Either Samples ([step][sample]) or Quantiles (level -> value per step) is set.
type Prediction struct {
	Samples   [][]float64
	Quantiles map[float64][]float64
}

// Point reduces the prediction to one value per future step: the sample mean,
// or the median quantile when the model returned quantiles.
func (p Prediction) Point(horizon int) ([]float64, error) {
	if len(p.Samples) > 0 {
		if len(p.Samples) < horizon {
			return nil, fmt.Errorf("expected %d steps, got %d", horizon, len(p.Samples))
		}
		point := make([]float64, horizon)
		for step := 0; step < horizon; step++ {
			samples := p.Samples[step]
			if len(samples) == 0 {
				return nil, fmt.Errorf("step %d has no samples", step)
			}
			var sum float64
			for _, v := range samples {
				sum += v
			}
			point[step] = sum / float64(len(samples))
		}
		return point, nil
	}
	return p.Quantile(MedianLevel, horizon)
}

// Quantile returns the given quantile per step. Sample predictions are
// interpolated from the empirical distribution of each step.
func (p Prediction) Quantile(level float64, horizon int) ([]float64, error) {
	if len(p.Samples) > 0 {
		if len(p.Samples) < horizon {
			return nil, fmt.Errorf("expected %d steps, got %d", horizon, len(p.Samples))
		}
		out := make([]float64, horizon)
		for step := 0; step < horizon; step++ {
			q, err := empiricalQuantile(p.Samples[step], level)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", step, err)
			}
			out[step] = q
		}
		return out, nil
	}

	values, ok := p.Quantiles[level]
	if !ok {
		return nil, fmt.Errorf("quantile %.2f not in prediction", level)
	}
	if len(values) < horizon {
		return nil, fmt.Errorf("expected %d steps, got %d", horizon, len(values))
	}
	return append([]float64(nil), values[:horizon]...), nil
}

func empiricalQuantile(samples []float64, level float64) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("no samples")
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	pos := level * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, nil
}
