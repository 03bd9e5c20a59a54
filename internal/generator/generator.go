// Package generator produces blog posts and account content summaries
// through chat-completion providers, with automatic failover from the
// primary provider to a fallback.
package generator

import (
	"context"

	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
)

// Feedback carries signals from the previous publishing attempt so the
// next post improves on it instead of repeating it.
type Feedback struct {
	PreviousTitle string
	Scores        schedule.ContentScores
	Suggestions   []string
}

// Request is the input for one post generation call.
type Request struct {
	Config schedule.ContentConfig
	// Summary is the cached account digest, as stored on the schedule
	Summary string
	// Feedback is nil on the first run of a schedule
	Feedback *Feedback
}

// Generator creates content. Implementations must be safe for
// concurrent use.
type Generator interface {
	// Summarize builds a digest of the account's content focus from
	// its configuration. The digest is cached by callers.
	Summarize(ctx context.Context, cfg schedule.ContentConfig) (schedule.Summary, error)
	// Generate produces one complete post.
	Generate(ctx context.Context, req Request) (schedule.GeneratedPost, error)
}
