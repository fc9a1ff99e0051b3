package scheduler

import (
	"context"
	"time"

	service "rental-reconciliation-backend/internal/services/reconciliation"

	"github.com/rs/zerolog"
)

type autoReconciler interface {
	Auto(ctx context.Context, req service.AutoRequest) (*service.AutoResult, error)
}

// AutoReconcileJob runs amount and date matching over every unreconciled row.
type AutoReconcileJob struct {
	svc     autoReconciler
	timeout time.Duration
	log     zerolog.Logger
}

func NewAutoReconcileJob(svc autoReconciler, timeout time.Duration, log zerolog.Logger) *AutoReconcileJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &AutoReconcileJob{
		svc:     svc,
		timeout: timeout,
		log:     log.With().Str("job", "auto_reconcile").Logger(),
	}
}

func (j *AutoReconcileJob) Name() string { return "auto_reconcile" }

func (j *AutoReconcileJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	res, err := j.svc.Auto(ctx, service.AutoRequest{})
	if err != nil {
		return err
	}
	j.log.Info().
		Int("proposed", len(res.Matches)).
		Int("confirmed", res.Confirmed).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("auto reconcile finished")
	return nil
}
