package scoring

import (
	"context"

	"go.uber.org/zap"
)

// Engine produces content scores for notes, preferring the classifier and
// degrading to the rule scorer. ScoreContent never fails: a note must always
// leave a mutation with a usable score.
type Engine struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewEngine constructs an engine. A nil classifier means every score comes
// from the rule scorer, which is how boards run without an API key.
func NewEngine(classifier Classifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{classifier: classifier, logger: logger}
}

// ScoreContent rates the note text. The classifier gets exactly one retry;
// after that the deterministic fallback takes over.
func (e *Engine) ScoreContent(ctx context.Context, note NoteContext) ContentScore {
	if e.classifier == nil {
		return RuleScore(note.Content)
	}
	verdict, err := e.classifier.Classify(ctx, note)
	if err == nil {
		return verdict
	}
	e.logger.Warn("classifier call failed, retrying once", zap.Error(err))
	verdict, err = e.classifier.Classify(ctx, note)
	if err == nil {
		return verdict
	}
	e.logger.Warn("classifier retry failed, using fallback", zap.Error(err))
	return RuleScore(note.Content)
}

// Priority combines a content score with vote standing into the note's
// board-wide priority.
func (e *Engine) Priority(contentScore float64, upvotes, maxBoardUpvotes int, aiWeight float64) float64 {
	return Clamp(CombinedScore(contentScore, VoteScore(upvotes, maxBoardUpvotes), aiWeight))
}
