package profile

import (
	"strings"

	"github.com/mindpath-ai/mindpath/config"
	"github.com/mindpath-ai/mindpath/internal/store"
)

// Ladder maps level labels to numeric scores. Labels of the form "A->B"
// score the target level B. Labels outside the ladder get the placeholder
// score so an unrecognized or reversed label can never fail a write.
type Ladder struct {
	scores map[string]int
}

// NewLadder builds a Ladder from configuration.
func NewLadder(levels []config.LevelConfig) Ladder {
	scores := make(map[string]int, len(levels))
	for _, l := range levels {
		scores[strings.TrimSpace(l.Label)] = l.Score
	}
	return Ladder{scores: scores}
}

// ScoreFor resolves a level label to its numeric score.
func (l Ladder) ScoreFor(label string) int {
	label = strings.TrimSpace(label)
	if idx := strings.LastIndex(label, "->"); idx >= 0 {
		label = strings.TrimSpace(label[idx+2:])
	}
	if s, ok := l.scores[label]; ok {
		return s
	}
	return store.PlaceholderScore
}
