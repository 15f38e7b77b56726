package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pkgkafka "FinBack/pkg/kafka"
)

// KafkaBacktestHandler runs backtests requested over Kafka. Outcomes reach clients
// through the results topic, so only retryable failures are returned as plain errors.
type KafkaBacktestHandler struct {
	topic  string
	runner *BacktestRunner
}

func NewKafkaBacktestHandler(topic string, runner *BacktestRunner) *KafkaBacktestHandler {
	return &KafkaBacktestHandler{topic: topic, runner: runner}
}

func (h *KafkaBacktestHandler) Topic() string { return h.topic }

func (h *KafkaBacktestHandler) Handle(ctx context.Context, msg []byte) error {
	var p RunParams
	if err := json.Unmarshal(msg, &p); err != nil {
		return fmt.Errorf("%w: decode backtest request: %v", pkgkafka.ErrPermanent, err)
	}
	p.Source = SourceKafka

	_, err := h.runner.Run(ctx, p)
	switch {
	case err == nil:
		return nil
	case IsInvalid(err):
		return fmt.Errorf("%w: %w", pkgkafka.ErrPermanent, err)
	case errors.Is(err, ErrRunInProgress):
		// another replica owns the id, retry once its lock is gone
		return err
	default:
		return fmt.Errorf("run backtest %s: %w", p.ID, err)
	}
}
