package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindpath-ai/mindpath/internal/store"
)

// Snapshot is the read-side view of one user's profile, consumed for prompt
// injection and the profile display endpoints. It never participates in the
// mutation path.
type Snapshot struct {
	Assessments []store.AssessmentRecord
	Priorities  []store.DomainPriorityRecord
}

// LoadSnapshot reads all assessment and priority rows for a user.
func LoadSnapshot(ctx context.Context, st *store.Store, userID string) (Snapshot, error) {
	assessments, err := st.ListAssessments(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list assessments: %w", err)
	}
	priorities, err := st.ListDomainPriorities(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list domain priorities: %w", err)
	}
	return Snapshot{Assessments: assessments, Priorities: priorities}, nil
}

// FormatForPrompt renders the snapshot as the compact text block injected
// into the advisor's system prompt: one header line per domain followed by
// its sub-dimensions, strongest first.
func (s Snapshot) FormatForPrompt() string {
	prioByDomain := make(map[int]store.DomainPriorityRecord, len(s.Priorities))
	for _, p := range s.Priorities {
		prioByDomain[p.DomainID] = p
	}

	lines := []string{"=== 用户学习档案 ==="}
	currentDomain := -1
	for _, a := range s.Assessments {
		if a.DomainID != currentDomain {
			currentDomain = a.DomainID
			prioText := "?"
			if p, ok := prioByDomain[a.DomainID]; ok {
				prioText = fmt.Sprintf("%d", p.PriorityScore)
			}
			lines = append(lines, fmt.Sprintf("\n【%s】优先级:%s/10 | 层:%s | 性质:%s | 认知:%s | 意愿:%s",
				a.DomainName, prioText, a.ContentLayer, deref(a.LearningNature), deref(a.CognitiveState), deref(a.MotivationState)))
		}
		custom := ""
		if a.IsCustom {
			custom = "[个性化]"
		}
		lines = append(lines, fmt.Sprintf("  - %s%s: %s(%d/10)", a.SubDimension, custom, a.LevelLabel, a.LevelScore))
	}
	lines = append(lines, "\n=== 档案结束 ===")
	return strings.Join(lines, "\n")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
