package forecast

import (
	"context"
	"math"

	"github.com/sartorproj/goarima/autoarima"
	"github.com/sartorproj/goarima/timeseries"
	"github.com/sirupsen/logrus"
)

// minARIMAPoints is the shortest sequence handed to the ARIMA search
const minARIMAPoints = 24

// z-score of the 10% and 90% quantiles of a normal distribution
const z90 = 1.2816

// ARIMAModel forecasts in process with an automatically selected ARIMA model.
// Sequences too short for a fit fall back to the mean of the trailing year.
type ARIMAModel struct {
	config *autoarima.Config
	log    *logrus.Logger
}

// NewARIMAModel initializes the in-process model
func NewARIMAModel(log *logrus.Logger) *ARIMAModel {
	config := autoarima.DefaultConfig()
	config.MaxP = 2
	config.MaxQ = 2
	return &ARIMAModel{config: config, log: log}
}

// Predict returns 10/50/90 quantile curves for every sequence.
// It returns ctx.Err() as soon as ctx is done; a fit already in progress finishes in the background.
func (m *ARIMAModel) Predict(ctx context.Context, batch [][]float64, horizon int) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan []Prediction, 1)
	go func() { done <- m.predictAll(ctx, batch, horizon) }()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case predictions := <-done:
		if predictions == nil {
			return nil, ctx.Err()
		}
		return predictions, nil
	}
}

// predictAll returns nil when ctx ends between sequences
func (m *ARIMAModel) predictAll(ctx context.Context, batch [][]float64, horizon int) []Prediction {
	predictions := make([]Prediction, len(batch))
	for i, values := range batch {
		if ctx.Err() != nil {
			return nil
		}
		point, spread := m.fit(values, horizon)
		low := make([]float64, horizon)
		high := make([]float64, horizon)
		for step := range point {
			width := z90 * spread * math.Sqrt(float64(step+1))
			low[step] = point[step] - width
			high[step] = point[step] + width
		}
		predictions[i] = Prediction{Quantiles: map[float64][]float64{
			0.1:         low,
			MedianLevel: point,
			0.9:         high,
		}}
	}
	return predictions
}

func (m *ARIMAModel) fit(values []float64, horizon int) (point []float64, spread float64) {
	if len(values) >= minARIMAPoints {
		result, err := autoarima.AutoARIMA(timeseries.New(values), m.config)
		if err == nil && result != nil {
			forecasts, err := result.Predict(horizon)
			if err == nil && len(forecasts) == horizon && finite(forecasts) {
				return forecasts, stdDev(result.Residuals())
			}
		}
		m.log.WithField("points", len(values)).Debug("ARIMA fit failed, using trailing mean")
	}

	tail := values
	if len(tail) > 12 {
		tail = tail[len(tail)-12:]
	}
	mean := meanOf(tail)
	point = make([]float64, horizon)
	for i := range point {
		point[i] = mean
	}
	return point, stdDev(tail)
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
