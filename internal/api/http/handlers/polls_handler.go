package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/poll-service/internal/api/dto"
	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/service"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

const (
	actionCreate = "create"
	actionVote   = "vote"
)

// PollsHandler exposes poll listing, creation, voting and moderation.
type PollsHandler struct {
	polls    *service.PollService
	settings *service.SettingsService
	users    auth.UserFinder
}

// NewPollsHandler constructs handler.
func NewPollsHandler(polls *service.PollService, settings *service.SettingsService, users auth.UserFinder) *PollsHandler {
	return &PollsHandler{polls: polls, settings: settings, users: users}
}

// ListPolls GET /polls.
func (h *PollsHandler) ListPolls(c *fiber.Ctx) error {
	polls, err := h.polls.ListPolls(c.UserContext())
	if err != nil {
		return err
	}
	hide, err := h.hideCreator(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.PollListResponse{Polls: pollList(polls, h.polls.Summarize, hide)})
}

// GetPoll GET /polls/:id.
func (h *PollsHandler) GetPoll(c *fiber.Ctx) error {
	poll, err := h.polls.GetPoll(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	hide, err := h.hideCreator(c)
	if err != nil {
		return err
	}
	return c.JSON(pollResponse(h.polls.Summarize(*poll), hide))
}

// Action POST /polls dispatches on the action field.
func (h *PollsHandler) Action(c *fiber.Ctx) error {
	var req dto.PollActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actor, err := h.resolveActor(c, req.UserID)
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case actionCreate:
		poll, err := h.polls.CreatePollAs(c.UserContext(), actor, service.PollCreateInput{
			Title:       req.Title,
			Description: req.Description,
			Options:     req.Options,
			EndDate:     req.EndDate,
		})
		if err != nil {
			return err
		}
		return c.Status(http.StatusCreated).JSON(dto.PollCreatedResponse{Success: true, PollID: poll.ID})
	case actionVote:
		if req.PollID == "" || req.OptionID == "" {
			return apperrors.NewValidationError("pollId and optionId required", nil)
		}
		result, err := h.polls.CastVote(c.UserContext(), actor, req.PollID, req.OptionID)
		if err != nil {
			return err
		}
		hide, err := h.hideCreator(c)
		if err != nil {
			return err
		}
		poll := pollResponse(service.PollSummary{Poll: *result.Poll, Active: result.Poll.ActiveAt(h.polls.Now()), Tally: result.Tally}, hide)
		return c.JSON(dto.VoteResponse{Success: true, Poll: &poll})
	default:
		return apperrors.NewValidationError("unknown action", map[string]any{"action": req.Action})
	}
}

// ClosePoll POST /polls/:id/close.
func (h *PollsHandler) ClosePoll(c *fiber.Ctx) error {
	poll, err := h.polls.ClosePoll(c.UserContext(), auth.UserFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(pollResponse(h.polls.Summarize(*poll), false))
}

// ReopenPoll POST /polls/:id/reopen.
func (h *PollsHandler) ReopenPoll(c *fiber.Ctx) error {
	var req dto.ReopenPollRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	poll, err := h.polls.ReopenPoll(c.UserContext(), auth.UserFromContext(c), c.Params("id"), req.EndDate)
	if err != nil {
		return err
	}
	return c.JSON(pollResponse(h.polls.Summarize(*poll), false))
}

// ResetTallies POST /polls/:id/reset.
func (h *PollsHandler) ResetTallies(c *fiber.Ctx) error {
	poll, err := h.polls.ResetTallies(c.UserContext(), auth.UserFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(pollResponse(h.polls.Summarize(*poll), false))
}

// PurgeVotes DELETE /polls/:id/votes.
func (h *PollsHandler) PurgeVotes(c *fiber.Ctx) error {
	removed, err := h.polls.PurgeVotes(c.UserContext(), auth.UserFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.PurgeVotesResponse{Success: true, Removed: removed})
}

// resolveActor prefers the bearer token principal and falls back to the body
// userId. An unknown userId resolves to no actor.
func (h *PollsHandler) resolveActor(c *fiber.Ctx, bodyUserID string) (*domain.User, error) {
	if user := auth.UserFromContext(c); user != nil {
		return user, nil
	}
	bodyUserID = strings.TrimSpace(bodyUserID)
	if bodyUserID == "" || h.users == nil {
		return nil, nil
	}
	user, err := h.users.GetByID(c.UserContext(), bodyUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (h *PollsHandler) hideCreator(c *fiber.Ctx) (bool, error) {
	if h.settings == nil {
		return false, nil
	}
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return false, err
	}
	return settings.AnonymousVoting, nil
}
