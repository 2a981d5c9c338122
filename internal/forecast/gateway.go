package forecast

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultMinHistory is the number of monthly points an account must exceed to be forecast
const DefaultMinHistory = 3

// Gateway adapts monthly series to the forecasting model and back
type Gateway struct {
	model      Model
	minHistory int
	log        *logrus.Logger
}

// NewGateway initializes a new forecast gateway
func NewGateway(model Model, minHistory int, log *logrus.Logger) *Gateway {
	return &Gateway{model: model, minHistory: minHistory, log: log}
}

// Forecast returns horizon point forecasts for every account in histories.
// Accounts with minHistory points or fewer get a zero forecast without calling the model.
// Any model failure is reported as models.ErrModelUnavailable.
func (g *Gateway) Forecast(ctx context.Context, histories map[int]models.MonthlySeries, horizon int) (map[int][]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1, got %d", horizon)
	}

	accounts := make([]int, 0, len(histories))
	for acc := range histories {
		accounts = append(accounts, acc)
	}
	sort.Ints(accounts)

	result := make(map[int][]float64, len(histories))
	var included []int
	var batch [][]float64
	for _, acc := range accounts {
		series := histories[acc]
		if series.Len() <= g.minHistory {
			g.log.WithFields(logrus.Fields{
				"account": acc,
				"points":  series.Len(),
			}).Warn("Insufficient history, using zero forecast")
			result[acc] = make([]float64, horizon)
			continue
		}
		included = append(included, acc)
		batch = append(batch, series.Values)
	}

	if len(batch) == 0 {
		return result, nil
	}

	predictions, err := g.model.Predict(ctx, batch, horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, err)
	}
	if len(predictions) != len(batch) {
		return nil, fmt.Errorf("%w: expected %d predictions, got %d", models.ErrModelUnavailable, len(batch), len(predictions))
	}

	for i, acc := range included {
		point, err := predictions[i].Point(horizon)
		if err != nil {
			return nil, fmt.Errorf("%w: account %d: %w", models.ErrModelUnavailable, acc, err)
		}
		result[acc] = point
	}

	g.log.WithFields(logrus.Fields{
		"accounts": len(included),
		"horizon":  horizon,
	}).Debug("Forecast completed")
	return result, nil
}

// Quantiles forecasts a single series and returns the requested quantile curves in level order
func (g *Gateway) Quantiles(ctx context.Context, series models.MonthlySeries, horizon int, levels ...float64) ([][]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1, got %d", horizon)
	}
	predictions, err := g.model.Predict(ctx, [][]float64{series.Values}, horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, err)
	}
	if len(predictions) != 1 {
		return nil, fmt.Errorf("%w: expected 1 prediction, got %d", models.ErrModelUnavailable, len(predictions))
	}

	curves := make([][]float64, len(levels))
	for i, level := range levels {
		curve, err := predictions[0].Quantile(level, horizon)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrModelUnavailable, err)
		}
		curves[i] = curve
	}
	return curves, nil
}
