// Package service runs a prediction request end to end: predict, save,
// publish.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pricecast/collector"
	"pricecast/db"
	"pricecast/ml"
	"pricecast/monitoring"
)

// Publisher receives every successfully saved prediction.
type Publisher interface {
	Publish(rec db.PredictionRecord) error
}

// Summary is the formatted indicator readout shown next to a prediction.
type Summary struct {
	RSI         string `json:"rsi"`
	DailyReturn string `json:"daily_return"`
	Volatility  string `json:"volatility"`
}

func summarize(rec ml.FeatureRecord) Summary {
	return Summary{
		RSI:         fmt.Sprintf("%.2f", rec.RSI),
		DailyReturn: fmt.Sprintf("%.2f%%", rec.Return*100),
		Volatility:  fmt.Sprintf("%.2f", rec.Volatility),
	}
}

// Outcome is the result of one request. A failed save leaves Saved false and
// SaveErr set; the prediction is still valid.
type Outcome struct {
	Prediction  float64                `json:"prediction"`
	Saved       bool                   `json:"saved"`
	SaveErr     error                  `json:"-"`
	SaveError   string                 `json:"save_error,omitempty"`
	Adjustments []collector.Adjustment `json:"adjustments,omitempty"`
	Metrics     Summary                `json:"metrics"`
	Record      ml.FeatureRecord       `json:"record"`
}

// Service runs a prediction, records it and tells subscribers about it.
type Service struct {
	predictor *ml.Predictor
	store     db.Store
	publisher Publisher
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher broadcasts every saved prediction through p.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithMetrics records prediction outcomes and latencies in m.
func WithMetrics(m *monitoring.Metrics) Option { return func(s *Service) { s.metrics = m } }

// New builds a Service. The publisher and metrics are optional.
func New(predictor *ml.Predictor, store db.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		predictor: predictor,
		store:     store,
		logger:    logger.Named("service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict scores rec and saves it. Invalid input and model failures are
// returned as errors; a save failure is reported on the Outcome only.
func (s *Service) Predict(ctx context.Context, rec ml.FeatureRecord) (*Outcome, error) {
	start := s.now()
	price, err := s.predictor.Predict(ctx, rec)
	took := s.now().Sub(start)
	if err != nil {
		if errors.Is(err, ml.ErrInvalidInput) {
			s.observe(monitoring.OutcomeInvalidInput, took)
		} else {
			s.observe(monitoring.OutcomeModelError, took)
			s.logger.Error("prediction failed", zap.Error(err))
		}
		return nil, err
	}

	out := &Outcome{
		Prediction: price,
		Metrics:    summarize(rec),
		Record:     rec,
	}

	if err := s.store.Save(ctx, rec, price); err != nil {
		out.SaveErr = err
		out.SaveError = err.Error()
		s.observe(monitoring.OutcomeUnsaved, took)
		s.persistenceFailed("save")
		s.logger.Warn("prediction not saved", zap.Float64("predicted_price", price), zap.Error(err))
		return out, nil
	}
	out.Saved = true
	s.observe(monitoring.OutcomeSaved, took)
	s.logger.Info("prediction saved",
		zap.Float64("predicted_price", price),
		zap.Duration("took", took),
	)

	if s.publisher != nil {
		saved := db.PredictionRecord{Features: rec, PredictedPrice: price, PredictionDate: s.now().UTC()}
		if err := s.publisher.Publish(saved); err != nil {
			s.logger.Warn("publish failed", zap.Error(err))
		}
	}
	return out, nil
}

// History returns all saved predictions, most recent first. On failure it
// returns an empty, non-nil slice together with the error.
func (s *Service) History(ctx context.Context) ([]db.PredictionRecord, error) {
	history, err := s.store.LoadHistory(ctx)
	if err != nil {
		s.persistenceFailed("load_history")
		s.logger.Warn("history unavailable", zap.Error(err))
		return []db.PredictionRecord{}, err
	}
	if s.metrics != nil {
		s.metrics.HistorySize.Set(float64(len(history)))
	}
	return history, nil
}

func (s *Service) observe(outcome string, took time.Duration) {
	if s.metrics != nil {
		s.metrics.ObservePrediction(outcome, took)
	}
}

func (s *Service) persistenceFailed(op string) {
	if s.metrics != nil {
		s.metrics.PersistenceFailed(op)
	}
}
