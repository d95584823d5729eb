package batch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/service"
)

// Runner runs one record through inference.
type Runner interface {
	Run(ctx context.Context, raw domain.PatientRecord) (*domain.PredictionResult, error)
}

// Outcome is the result of one row. Exactly one of Result and Err is set.
type Outcome struct {
	Row    int
	Result *domain.PredictionResult
	Err    error
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Total  int
	Scored int
	Failed int
	ByRisk map[domain.RiskLevel]int
}

// Processor scores rows one after another.
type Processor struct {
	logger   *logrus.Logger
	runner   Runner
	recorder *audit.Recorder
}

// NewProcessor creates a processor. recorder may be nil.
func NewProcessor(logger *logrus.Logger, runner Runner, recorder *audit.Recorder) *Processor {
	return &Processor{logger: logger, runner: runner, recorder: recorder}
}

// Process scores every row. A failed row is reported in its outcome and the
// batch continues. Cancelling ctx stops before the next row and returns the
// outcomes so far with the context error.
func (p *Processor) Process(ctx context.Context, batchID string, rows []Row) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		if row.Err != nil {
			outcomes = append(outcomes, Outcome{Row: row.Number, Err: row.Err})
			continue
		}

		rowCtx := service.ContextWithRequestID(ctx, fmt.Sprintf("%s-row-%d", batchID, row.Number))
		result, err := p.runner.Run(rowCtx, row.Record)
		if err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"batch_id": batchID,
				"row":      row.Number,
			}).Warn("Batch row failed")
			outcomes = append(outcomes, Outcome{Row: row.Number, Err: err})
			continue
		}

		if p.recorder != nil {
			p.recorder.Record(ctx, result, audit.SourceBatch)
		}
		outcomes = append(outcomes, Outcome{Row: row.Number, Result: result})
	}

	summary := Summarize(outcomes)
	p.logger.WithFields(logrus.Fields{
		"batch_id": batchID,
		"total":    summary.Total,
		"scored":   summary.Scored,
		"failed":   summary.Failed,
	}).Info("Batch completed")

	return outcomes, nil
}

// Summarize counts outcomes by status and risk level.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), ByRisk: make(map[domain.RiskLevel]int)}
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failed++
			continue
		}
		s.Scored++
		s.ByRisk[o.Result.RiskAssessment.Level]++
	}
	return s
}
