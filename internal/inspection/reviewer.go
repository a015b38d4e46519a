package inspection

import "context"

// Segment is one source/target cell pair submitted for review.
type Segment struct {
	Sheet      string
	Cell       string
	Source     string
	Target     string
	SourceLang string
	TargetLang string
	TargetCode string
	Model      string
}

// Verdict is a reviewer's assessment of a Segment.
type Verdict struct {
	OK         bool     `json:"ok"`
	Issues     []string `json:"issues,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Reviewer judges a single translated segment.
type Reviewer interface {
	Review(ctx context.Context, seg Segment) (Verdict, error)
}

// ReviewerFunc adapts a function to the Reviewer interface.
type ReviewerFunc func(ctx context.Context, seg Segment) (Verdict, error)

// Review calls f(ctx, seg).
func (f ReviewerFunc) Review(ctx context.Context, seg Segment) (Verdict, error) {
	return f(ctx, seg)
}
