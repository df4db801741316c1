package service

import "github.com/spec-kit/poll-service/internal/domain"

// TallyEntry is one option's share of the votes.
type TallyEntry struct {
	OptionID   string
	Text       string
	Votes      int64
	Percentage int64
}

// ComputeTally derives per-option percentages in poll option order. Percentages
// round half up and are all zero when nobody voted.
func ComputeTally(poll *domain.Poll) []TallyEntry {
	if poll == nil {
		return nil
	}
	total := poll.TotalVotes()
	entries := make([]TallyEntry, len(poll.Options))
	for i, opt := range poll.Options {
		entries[i] = TallyEntry{OptionID: opt.ID, Text: opt.Text, Votes: opt.Votes}
		if total > 0 {
			entries[i].Percentage = (200*opt.Votes + total) / (2 * total)
		}
	}
	return entries
}
