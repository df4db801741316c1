package domain

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for poll end dates.
const DateLayout = "2006-01-02"

// MinPollOptions is the smallest option set a poll may be published with.
const MinPollOptions = 2

// PollStatus is the externally observable lifecycle state.
type PollStatus string

const (
	PollStatusActive PollStatus = "ACTIVE"
	PollStatusClosed PollStatus = "CLOSED"
)

// Option is one selectable answer of a poll.
type Option struct {
	ID       string
	PollID   string
	Text     string
	Votes    int64
	Position int
}

// Poll is the aggregate for a question and its ordered options.
type Poll struct {
	ID          string
	Title       string
	Description string
	Options     []Option
	EndDate     time.Time
	Closed      bool
	CreatorID   *string
	CreatorName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TotalVotes is always derived from the option counters.
func (p *Poll) TotalVotes() int64 {
	var total int64
	for _, opt := range p.Options {
		total += opt.Votes
	}
	return total
}

// ActiveAt reports whether the poll accepts votes at now. The explicit closed
// flag wins over the end date; the end date is inclusive.
func (p *Poll) ActiveAt(now time.Time) bool {
	if p.Closed {
		return false
	}
	return !DateOf(now).After(p.EndDate)
}

// StatusAt maps ActiveAt onto the lifecycle state.
func (p *Poll) StatusAt(now time.Time) PollStatus {
	if p.ActiveAt(now) {
		return PollStatusActive
	}
	return PollStatusClosed
}

// Option returns the option with the given id.
func (p *Poll) Option(optionID string) (*Option, bool) {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so stored polls are never shared with callers.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = append([]Option(nil), p.Options...)
	if p.CreatorID != nil {
		id := *p.CreatorID
		cp.CreatorID = &id
	}
	return &cp
}

// DateOf truncates t to its calendar date, expressed at midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns the date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is empty")
	}
	if d, err := time.Parse(DateLayout, raw); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD or RFC 3339")
	}
	return DateOf(ts), nil
}
