package profile

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mindpath-ai/mindpath/internal/store"
)

// SnapshotCache is the slice of the cache the pipeline needs: dropping a
// user's cached prompt text after their profile changed.
type SnapshotCache interface {
	Invalidate(ctx context.Context, userID string)
}

// Pipeline wires the parse → normalize → reconcile chain for one inbound
// message and records the conversation turn. Persistence problems degrade the
// result, never the response: the user always gets the reply back.
type Pipeline struct {
	Store      *store.Store
	Normalizer *Normalizer
	Writer     *Writer
	Cache      SnapshotCache
	Logger     *log.Logger
}

// Result is what the caller sees: the reply, the updates that were accepted
// (and attempted against storage), and any persistence failures. Rejected and
// PersistErrs are diagnostics for the handler and never serialize.
type Result struct {
	Response    string      `json:"response"`
	Updates     []Update    `json:"updates"`
	Rejected    []Rejection `json:"-"`
	PersistErrs []error     `json:"-"`
}

// Handle runs one completion through the pipeline. The only error it returns
// is ErrEmptyCompletion; everything past parsing recovers locally.
func (p *Pipeline) Handle(ctx context.Context, userID, userMessage, completion string) (Result, error) {
	parsed, err := Parse(completion)
	if err != nil {
		return Result{}, err
	}
	if parsed.Skipped > 0 {
		p.Logger.Printf("skipped %d malformed update block(s) for user %s", parsed.Skipped, userID)
	}

	accepted, rejected := p.Normalizer.NormalizeBatch(parsed.Updates)
	for _, rej := range rejected {
		p.Logger.Printf("rejected update record %d for user %s: %s", rej.Index, userID, rej.Reason)
	}

	res := Result{Response: parsed.Response, Updates: accepted, Rejected: rejected}

	if len(accepted) > 0 {
		wr := p.Writer.Apply(ctx, userID, accepted)
		res.PersistErrs = append(res.PersistErrs, wr.Errs...)
		if wr.AssessmentsWritten && p.Cache != nil {
			p.Cache.Invalidate(ctx, userID)
		}
	}

	var attached json.RawMessage
	if len(accepted) > 0 {
		attached, _ = json.Marshal(accepted)
	}
	turns := []store.ConversationTurn{
		{UserID: userID, Role: "user", Content: userMessage, TriggerMode: store.TriggerModeFreeInput},
		{UserID: userID, Role: "assistant", Content: res.Response, TriggerMode: store.TriggerModeFreeInput, ProfileUpdate: attached},
	}
	if err := p.Store.InsertConversationTurns(ctx, turns); err != nil {
		p.Logger.Printf("conversation log insert failed for user %s: %v", userID, err)
		persistFailures.Inc()
		res.PersistErrs = append(res.PersistErrs, err)
	}
	return res, nil
}
