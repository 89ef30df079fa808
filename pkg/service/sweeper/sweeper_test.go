package sweeper_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/civicpulse/pulse/pkg/service/sweeper"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// fakeArchive counts Sweep calls
type fakeArchive struct {
	mu     sync.Mutex
	sweeps int
	err    error
}

func (f *fakeArchive) Sweep(ctx context.Context) (*model.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	if f.err != nil {
		return nil, f.err
	}
	return &model.SweepResult{}, nil
}

func (f *fakeArchive) ArchiveWeek(ctx context.Context, week types.WeekID) (*model.ArchiveResult, error) {
	return &model.ArchiveResult{WeekID: week}, nil
}

func (f *fakeArchive) ResetCurrentWeek(ctx context.Context) (*model.ArchiveResult, error) {
	return &model.ArchiveResult{}, nil
}

func (f *fakeArchive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

var _ interfaces.Archive = (*fakeArchive)(nil)

func TestSweeperRunsImmediatelyAndOnTicks(t *testing.T) {
	archive := &fakeArchive{}
	s := sweeper.New(archive, 10*time.Millisecond)

	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for archive.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 sweeps, got %d", archive.count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()
}

func TestSweeperStopHaltsTicks(t *testing.T) {
	archive := &fakeArchive{}
	s := sweeper.New(archive, 10*time.Millisecond)

	s.Start(context.Background())
	s.Stop()

	// Stop has waited for the goroutine, so the count is now stable
	settled := archive.count()
	time.Sleep(50 * time.Millisecond)
	gt.Equal(t, archive.count(), settled)
}

func TestSweeperKeepsTickingAfterFailure(t *testing.T) {
	archive := &fakeArchive{err: goerr.New("simulated sweep failure")}
	s := sweeper.New(archive, 10*time.Millisecond)

	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for archive.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected sweeper to keep running after a failure, got %d sweeps", archive.count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	archive := &fakeArchive{}
	s := sweeper.New(archive, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		settled := archive.count()
		time.Sleep(50 * time.Millisecond)
		if archive.count() == settled {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweeper kept ticking after context cancellation")
		}
	}
}
