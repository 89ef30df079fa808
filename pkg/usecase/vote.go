package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/civicpulse/pulse/pkg/domain/types"
	"github.com/civicpulse/pulse/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
)

// VoteUseCase handles weekly vote submission and the live results read path
type VoteUseCase struct {
	repo        interfaces.Repository
	registry    *model.IssueRegistry
	broadcaster interfaces.Broadcaster
	loc         *time.Location
	clock       func() time.Time
}

// VoteOption configures a VoteUseCase
type VoteOption func(*VoteUseCase)

// WithVoteClock overrides the time source (used by tests)
func WithVoteClock(clock func() time.Time) VoteOption {
	return func(uc *VoteUseCase) {
		uc.clock = clock
	}
}

// NewVoteUseCase creates a new VoteUseCase instance
func NewVoteUseCase(repo interfaces.Repository, registry *model.IssueRegistry, broadcaster interfaces.Broadcaster, loc *time.Location, opts ...VoteOption) *VoteUseCase {
	uc := &VoteUseCase{
		repo:        repo,
		registry:    registry,
		broadcaster: broadcaster,
		loc:         loc,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Submit validates the submission, upserts the voter's ballot for the
// current week (last-write-wins until the week is archived), and kicks off
// a best-effort live tally broadcast. Validation failures mutate nothing.
func (uc *VoteUseCase) Submit(ctx context.Context, email string, issues []types.IssueID) (*model.Vote, bool, error) {
	voterHash, err := model.HashEmail(email)
	if err != nil {
		return nil, false, err
	}

	for _, id := range issues {
		if !uc.registry.IsActive(id) {
			return nil, false, goerr.Wrap(model.ErrInvalidVote, "issue is not open for voting",
				goerr.V("issueID", id))
		}
	}

	now := uc.clock()
	week := model.WeekIDFor(now, uc.loc)

	vote, err := model.NewVote(voterHash, issues, week, now)
	if err != nil {
		return nil, false, err
	}

	created, err := uc.repo.PutVote(ctx, vote)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to store vote",
			goerr.V("weekID", week))
	}

	// Recompute the tally from the ledger and hand it to the broadcaster
	// off the request path. Delivery is best-effort; a broadcast failure
	// must never fail the vote it is attached to.
	async.Dispatch(ctx, func(ctx context.Context) error {
		return uc.publishTally(ctx, week)
	})

	return vote, created, nil
}

// Status returns the voter's ballot for the current week, or nil when the
// voter has not voted this week. Pure read, no mutation.
func (uc *VoteUseCase) Status(ctx context.Context, email string) (*model.Vote, error) {
	voterHash, err := model.HashEmail(email)
	if err != nil {
		return nil, err
	}

	week := model.WeekIDFor(uc.clock(), uc.loc)
	vote, err := uc.repo.GetVote(ctx, voterHash, week)
	if err != nil {
		if errors.Is(err, model.ErrVoteNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to check vote status",
			goerr.V("weekID", week))
	}

	return vote, nil
}

// LiveResults recomputes the current week's tally from persisted vote rows.
// There is no in-process counter to drift from the store.
func (uc *VoteUseCase) LiveResults(ctx context.Context) (*model.ResultsEvent, error) {
	now := uc.clock()
	week := model.WeekIDFor(now, uc.loc)

	votes, err := uc.repo.ListVotesByWeek(ctx, week)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list votes for live results",
			goerr.V("weekID", week))
	}

	return model.NewTallyEvent(week, uc.registry, votes, now), nil
}

func (uc *VoteUseCase) publishTally(ctx context.Context, week types.WeekID) error {
	votes, err := uc.repo.ListVotesByWeek(ctx, week)
	if err != nil {
		return goerr.Wrap(err, "failed to recompute tally for broadcast",
			goerr.V("weekID", week))
	}

	uc.broadcaster.Publish(ctx, model.NewTallyEvent(week, uc.registry, votes, uc.clock()))
	return nil
}

var _ interfaces.Vote = (*VoteUseCase)(nil)
