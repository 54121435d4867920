package profile

import (
	"context"
	"fmt"
	"log"

	"github.com/mindpath-ai/mindpath/internal/store"
)

// Writer merges validated updates into persistent profile rows. Assessment
// rows are upserted by identity; evidence rows are append-only. Failures are
// collected, never thrown: durability here is best-effort relative to the
// conversational reply.
type Writer struct {
	Store  *store.Store
	Ladder Ladder
	Logger *log.Logger
}

// WriteResult reports what the writer attempted and what failed, so callers
// and tests can assert on degraded outcomes instead of reading logs.
type WriteResult struct {
	Attempted          []Update
	AssessmentsWritten bool
	Errs               []error
}

// Failed reports whether any storage step went wrong.
func (r WriteResult) Failed() bool { return len(r.Errs) > 0 }

// Apply upserts assessment rows in one conflict-aware statement, then appends
// evidence rows for every update that carried evidence text.
func (w *Writer) Apply(ctx context.Context, userID string, updates []Update) WriteResult {
	res := WriteResult{Attempted: updates}
	if len(updates) == 0 {
		return res
	}

	ups := make([]store.AssessmentUpsert, 0, len(updates))
	var evidence []store.EvidenceRecord
	for _, u := range updates {
		ups = append(ups, store.AssessmentUpsert{
			DomainID:        u.DomainID,
			SubDimension:    u.SubDimension,
			LevelLabel:      u.LevelLabel,
			LevelScore:      w.Ladder.ScoreFor(u.LevelLabel),
			ContentLayer:    u.ContentLayer,
			CognitiveState:  nilIfEmpty(u.CognitiveState),
			MotivationState: nilIfEmpty(u.MotivationState),
		})
		if u.Evidence != "" {
			evidence = append(evidence, store.EvidenceRecord{
				UserID:       userID,
				DomainID:     u.DomainID,
				SubDimension: u.SubDimension,
				EvidenceText: u.Evidence,
				Source:       store.EvidenceSourceConversation,
			})
		}
	}

	if err := w.Store.UpsertAssessments(ctx, userID, ups); err != nil {
		w.Logger.Printf("assessment upsert failed for user %s: %v", userID, err)
		persistFailures.Inc()
		res.Errs = append(res.Errs, fmt.Errorf("assessment upsert: %w", err))
	} else {
		res.AssessmentsWritten = true
		appliedUpdates.Add(float64(len(ups)))
	}

	if err := w.Store.InsertEvidence(ctx, evidence); err != nil {
		w.Logger.Printf("evidence insert failed for user %s: %v", userID, err)
		persistFailures.Inc()
		res.Errs = append(res.Errs, fmt.Errorf("evidence insert: %w", err))
	}
	return res
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
