package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPModel calls a remote forecasting service
type HTTPModel struct {
	url        string
	numSamples int
	client     *http.Client
	log        *logrus.Logger
}

// NewHTTPModel initializes a client for the forecasting service at url
func NewHTTPModel(url string, timeout time.Duration, numSamples int, log *logrus.Logger) *HTTPModel {
	return &HTTPModel{
		url:        url,
		numSamples: numSamples,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type predictRequest struct {
	Inputs           [][]float64 `json:"inputs"`
	PredictionLength int         `json:"prediction_length"`
	NumSamples       int         `json:"num_samples"`
}

type predictResponse struct {
	Predictions []struct {
		Samples   [][]float64          `json:"samples,omitempty"`
		Quantiles map[string][]float64 `json:"quantiles,omitempty"`
	} `json:"predictions"`
}

// Predict sends the batch to the service and decodes one prediction per sequence
func (m *HTTPModel) Predict(ctx context.Context, batch [][]float64, horizon int) ([]Prediction, error) {
	payload, err := json.Marshal(predictRequest{
		Inputs:           Pad(batch),
		PredictionLength: horizon,
		NumSamples:       m.numSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	m.log.WithFields(logrus.Fields{
		"sequences": len(batch),
		"horizon":   horizon,
		"elapsed":   time.Since(start).String(),
	}).Debug("Forecast service responded")

	var decoded predictResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	predictions := make([]Prediction, len(decoded.Predictions))
	for i, p := range decoded.Predictions {
		predictions[i].Samples = p.Samples
		if len(p.Quantiles) == 0 {
			continue
		}
		predictions[i].Quantiles = make(map[float64][]float64, len(p.Quantiles))
		for key, values := range p.Quantiles {
			level, err := strconv.ParseFloat(key, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid quantile level %q: %w", key, err)
			}
			predictions[i].Quantiles[level] = values
		}
	}
	return predictions, nil
}

// Pad left-pads every sequence with zeros to the length of the longest one,
// keeping the most recent month last in every row.
func Pad(batch [][]float64) [][]float64 {
	var longest int
	for _, seq := range batch {
		if len(seq) > longest {
			longest = len(seq)
		}
	}
	padded := make([][]float64, len(batch))
	for i, seq := range batch {
		row := make([]float64, longest)
		copy(row[longest-len(seq):], seq)
		padded[i] = row
	}
	return padded
}
