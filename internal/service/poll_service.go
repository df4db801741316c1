package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/cache"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/events"
	"github.com/spec-kit/poll-service/internal/observability"
	"github.com/spec-kit/poll-service/internal/repository"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// PollService owns the poll lifecycle and vote submission rules.
type PollService struct {
	polls   repository.PollRepository
	votes   repository.VoteLedger
	users   repository.UserRepository
	gate    *auth.Gate
	guard   *cache.VoteGuard
	metrics *observability.Metrics
	logger  *zap.Logger
	events  publisher
	clock   func() time.Time
}

// PollDependencies bundles collaborators for the poll service.
type PollDependencies struct {
	PollRepo   repository.PollRepository
	VoteLedger repository.VoteLedger
	UserRepo   repository.UserRepository
	Gate       *auth.Gate
	VoteGuard  *cache.VoteGuard
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Clock returns the current time in the zone end dates are evaluated in.
	Clock func() time.Time
}

// PollCreateInput describes poll creation payload.
type PollCreateInput struct {
	Title       string
	Description string
	Options     []string
	EndDate     string
	CreatorID   *string
}

// VoteResult is the poll state right after an accepted vote.
type VoteResult struct {
	Poll  *domain.Poll
	Tally []TallyEntry
}

// PollSummary is a poll with its lazily derived state.
type PollSummary struct {
	Poll   domain.Poll
	Status domain.PollStatus
	Active bool
	Tally  []TallyEntry
}

// NewPollService constructs the service.
func NewPollService(deps PollDependencies) *PollService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	gate := deps.Gate
	if gate == nil {
		gate = auth.NewGate()
	}
	return &PollService{
		polls:   deps.PollRepo,
		votes:   deps.VoteLedger,
		users:   deps.UserRepo,
		gate:    gate,
		guard:   deps.VoteGuard,
		metrics: deps.Metrics,
		logger:  logger,
		events:  publisher{dispatcher: deps.Dispatcher, logger: logger},
		clock:   clock,
	}
}

// Now returns the service clock reading.
func (s *PollService) Now() time.Time {
	return s.clock()
}

// CreatePoll validates input and publishes a new active-or-expired poll.
func (s *PollService) CreatePoll(ctx context.Context, input PollCreateInput) (*domain.Poll, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	if len(input.Options) < domain.MinPollOptions {
		return nil, apperrors.NewValidationError("at least two options are required", map[string]any{"field": "options"})
	}
	texts := make([]string, len(input.Options))
	for i, raw := range input.Options {
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, apperrors.NewValidationError("options must not be empty", map[string]any{"field": "options", "index": i})
		}
		texts[i] = text
	}
	endDate, err := domain.ParseDate(input.EndDate)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "endDate"})
	}

	poll := &domain.Poll{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		EndDate:     endDate,
	}
	if input.CreatorID != nil && *input.CreatorID != "" {
		creator, err := s.users.GetByID(ctx, *input.CreatorID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewValidationError("unknown creator", map[string]any{"field": "creatorId"})
			}
			return nil, err
		}
		id := creator.ID
		poll.CreatorID = &id
		poll.CreatorName = creator.Name
	}
	poll.Options = make([]domain.Option, len(texts))
	for i, text := range texts {
		poll.Options[i] = domain.Option{
			ID:       uuid.NewString(),
			PollID:   poll.ID,
			Text:     text,
			Position: i,
		}
	}

	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}

	s.logger.Info("poll created",
		zap.String("poll_id", poll.ID),
		zap.Int("options", len(poll.Options)),
		zap.String("end_date", poll.EndDate.Format(domain.DateLayout)))
	s.events.publish(ctx, events.New(events.EventPollCreated, poll.ID, creatorActor(poll), events.PollCreatedPayload{
		Title:       poll.Title,
		OptionCount: len(poll.Options),
		EndDate:     poll.EndDate.Format(domain.DateLayout),
		CreatorName: poll.CreatorName,
	}))
	return poll, nil
}

// CreatePollAs creates a poll on behalf of actor after the gate allows it.
func (s *PollService) CreatePollAs(ctx context.Context, actor *domain.User, input PollCreateInput) (*domain.Poll, error) {
	if err := s.gate.Authorize(actor, auth.CapCreatePoll); err != nil {
		return nil, err
	}
	id := actor.ID
	input.CreatorID = &id
	return s.CreatePoll(ctx, input)
}

// SubmitVote records exactly one vote per (user, poll). Checks run inside the
// poll's mutation scope in this order: existence, active, option, identity,
// prior vote.
func (s *PollService) SubmitVote(ctx context.Context, pollID, optionID, userID string) (*VoteResult, error) {
	userID = strings.TrimSpace(userID)
	release := s.guard.Acquire(ctx, pollID, userID)
	defer release()

	now := s.clock()
	vote := &domain.VoteRecord{UserID: userID, PollID: pollID, OptionID: optionID}
	poll, err := s.polls.ApplyVote(ctx, vote, func(p *domain.Poll, alreadyVoted bool) error {
		if !p.ActiveAt(now) {
			return apperrors.NewPollClosed(p.ID)
		}
		if _, ok := p.Option(optionID); !ok {
			return apperrors.NewInvalidOption(p.ID, optionID)
		}
		if userID == "" {
			return apperrors.NewUnauthenticated("a user is required to vote")
		}
		if alreadyVoted {
			return apperrors.NewAlreadyVoted(p.ID)
		}
		return nil
	})
	if err != nil {
		de := apperrors.ToDomainError(err)
		s.metrics.RecordVote(de.Code)
		if de.HTTPStatus >= 500 {
			s.logger.Error("vote failed", zap.String("poll_id", pollID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordVote("")
	s.logger.Debug("vote recorded", zap.String("poll_id", pollID), zap.String("option_id", optionID))
	id := userID
	s.events.publish(ctx, events.New(events.EventVoteCast, pollID, events.Actor{UserID: &id}, events.VoteCastPayload{
		OptionID:   optionID,
		TotalVotes: poll.TotalVotes(),
	}))
	return &VoteResult{Poll: poll, Tally: ComputeTally(poll)}, nil
}

// CastVote submits a vote for actor. A nil actor reaches the ordered checks
// with no identity and is rejected there.
func (s *PollService) CastVote(ctx context.Context, actor *domain.User, pollID, optionID string) (*VoteResult, error) {
	userID := ""
	if actor != nil {
		if err := s.gate.Authorize(actor, auth.CapVote); err != nil {
			s.metrics.RecordVote(apperrors.ToDomainError(err).Code)
			return nil, err
		}
		userID = actor.ID
	}
	return s.SubmitVote(ctx, pollID, optionID, userID)
}

// GetPoll loads a single poll.
func (s *PollService) GetPoll(ctx context.Context, pollID string) (*domain.Poll, error) {
	return s.polls.GetByID(ctx, pollID)
}

// ListPolls returns every poll, newest first.
func (s *PollService) ListPolls(ctx context.Context) ([]domain.Poll, error) {
	return s.polls.List(ctx)
}

// ListPollsByCreator returns the polls a user created, newest first.
func (s *PollService) ListPollsByCreator(ctx context.Context, creatorID string) ([]domain.Poll, error) {
	return s.polls.ListByCreator(ctx, creatorID)
}

// Summarize derives the lifecycle status and tally at the service clock.
func (s *PollService) Summarize(poll domain.Poll) PollSummary {
	status := poll.StatusAt(s.clock())
	return PollSummary{
		Poll:   poll,
		Status: status,
		Active: status == domain.PollStatusActive,
		Tally:  ComputeTally(&poll),
	}
}

// ClosePoll sets the explicit closed override. Closing a closed poll is a no-op.
func (s *PollService) ClosePoll(ctx context.Context, actor *domain.User, pollID string) (*domain.Poll, error) {
	if err := s.gate.Authorize(actor, auth.CapModerateAnyPoll); err != nil {
		return nil, err
	}
	changed := false
	poll, err := s.polls.UpdateLifecycle(ctx, pollID, func(p *domain.Poll) error {
		changed = !p.Closed
		p.Closed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("poll closed", zap.String("poll_id", pollID), zap.String("actor_id", actor.ID))
		s.events.publish(ctx, events.New(events.EventPollClosed, pollID, events.ActorOf(actor), events.PollLifecyclePayload{
			Title:   poll.Title,
			EndDate: poll.EndDate.Format(domain.DateLayout),
		}))
	}
	return poll, nil
}

// ReopenPoll clears the closed override and extends the end date. Reopening
// without a later end date is POLL_CLOSED; an earlier one is a validation error.
func (s *PollService) ReopenPoll(ctx context.Context, actor *domain.User, pollID, newEndDate string) (*domain.Poll, error) {
	if err := s.gate.Authorize(actor, auth.CapReopenPoll); err != nil {
		return nil, err
	}
	var endDate *time.Time
	if strings.TrimSpace(newEndDate) != "" {
		d, err := domain.ParseDate(newEndDate)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "endDate"})
		}
		endDate = &d
	}

	now := s.clock()
	poll, err := s.polls.UpdateLifecycle(ctx, pollID, func(p *domain.Poll) error {
		if endDate == nil || !endDate.After(p.EndDate) {
			if endDate != nil && endDate.Before(p.EndDate) {
				return apperrors.NewValidationError("end date cannot move backwards", map[string]any{
					"field":   "endDate",
					"current": p.EndDate.Format(domain.DateLayout),
				})
			}
			return apperrors.NewPollClosed(p.ID)
		}
		p.EndDate = *endDate
		p.Closed = false
		if !p.ActiveAt(now) {
			return apperrors.NewPollClosed(p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("poll reopened",
		zap.String("poll_id", pollID),
		zap.String("end_date", poll.EndDate.Format(domain.DateLayout)))
	s.events.publish(ctx, events.New(events.EventPollReopened, pollID, events.ActorOf(actor), events.PollLifecyclePayload{
		Title:   poll.Title,
		EndDate: poll.EndDate.Format(domain.DateLayout),
	}))
	return poll, nil
}

// ResetTallies zeroes every option counter. The ledger is left untouched.
func (s *PollService) ResetTallies(ctx context.Context, actor *domain.User, pollID string) (*domain.Poll, error) {
	if err := s.gate.Authorize(actor, auth.CapPurgeData); err != nil {
		return nil, err
	}
	before, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	poll, err := s.polls.ResetTallies(ctx, pollID)
	if err != nil {
		return nil, err
	}
	s.logger.Warn("poll tallies reset", zap.String("poll_id", pollID), zap.Int64("previous_total", before.TotalVotes()))
	s.events.publish(ctx, events.New(events.EventTalliesReset, pollID, events.ActorOf(actor), events.TalliesResetPayload{
		PreviousTotal: before.TotalVotes(),
	}))
	return poll, nil
}

// PurgeVotes removes every ledger record of the poll. Counters are left untouched.
func (s *PollService) PurgeVotes(ctx context.Context, actor *domain.User, pollID string) (int64, error) {
	if err := s.gate.Authorize(actor, auth.CapPurgeData); err != nil {
		return 0, err
	}
	if _, err := s.polls.GetByID(ctx, pollID); err != nil {
		return 0, err
	}
	removed, err := s.votes.Purge(ctx, pollID)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("poll votes purged", zap.String("poll_id", pollID), zap.Int64("removed", removed))
	s.events.publish(ctx, events.New(events.EventVotesPurged, pollID, events.ActorOf(actor), events.VotesPurgedPayload{
		Removed: removed,
	}))
	return removed, nil
}

func creatorActor(poll *domain.Poll) events.Actor {
	if poll.CreatorID == nil {
		return events.Actor{}
	}
	id := *poll.CreatorID
	return events.Actor{UserID: &id}
}
