package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-reconciliation-backend/internal/models"
	service "rental-reconciliation-backend/internal/services/reconciliation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuto struct {
	calls int
	err   error
}

func (f *fakeAuto) Auto(ctx context.Context, req service.AutoRequest) (*service.AutoResult, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &service.AutoResult{
		Matches:       []models.ProposedMatch{{}},
		ConfirmResult: service.ConfirmResult{Confirmed: 1},
	}, nil
}

func TestAutoReconcileJob_Run(t *testing.T) {
	fake := &fakeAuto{}
	job := NewAutoReconcileJob(fake, time.Second, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "auto_reconcile", job.Name())
}

func TestAutoReconcileJob_PropagatesError(t *testing.T) {
	fake := &fakeAuto{err: errors.New("db down")}
	job := NewAutoReconcileJob(fake, 0, zerolog.Nop())

	assert.EqualError(t, job.Run(), "db down")
}

func TestScheduler_AddJobValidatesSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewAutoReconcileJob(&fakeAuto{}, time.Second, zerolog.Nop())

	assert.NoError(t, s.AddJob("0 3 * * *", job))
	assert.NoError(t, s.AddJob("@every 1h", job))
	assert.Error(t, s.AddJob("not a schedule", job))
}

func TestScheduler_RunNow(t *testing.T) {
	fake := &fakeAuto{}
	s := New(zerolog.Nop())

	require.NoError(t, s.RunNow(NewAutoReconcileJob(fake, time.Second, zerolog.Nop())))
	assert.Equal(t, 1, fake.calls)
}
