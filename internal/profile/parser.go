package profile

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Parsed is the dual-track split of one raw completion: the user-facing reply
// plus whatever structured updates survived decoding.
type Parsed struct {
	Response string
	Updates  []RawUpdate
	// Skipped counts update blocks dropped because their body was not valid JSON.
	Skipped int
}

var (
	responseRe = regexp.MustCompile(`(?is)<response>(.*?)</response>`)
	updateRe   = regexp.MustCompile(`(?is)<update>(.*?)</update>`)
)

// Parse splits a raw model completion into display text and raw update
// records. A missing <response> block falls back to the whole trimmed input;
// malformed <update> blocks are skipped without aborting the others. The only
// hard failure is a completely empty completion.
func Parse(raw string) (Parsed, error) {
	if strings.TrimSpace(raw) == "" {
		return Parsed{}, ErrEmptyCompletion
	}

	var p Parsed
	if m := responseRe.FindStringSubmatch(raw); m != nil {
		p.Response = strings.TrimSpace(m[1])
	} else {
		p.Response = strings.TrimSpace(raw)
	}

	for _, m := range updateRe.FindAllStringSubmatch(raw, -1) {
		body := strings.TrimSpace(m[1])
		if body == "" {
			continue
		}
		recs, ok := decodeUpdateBlock(body)
		if !ok {
			p.Skipped++
			malformedBlocks.Inc()
			continue
		}
		p.Updates = append(p.Updates, recs...)
	}
	return p, nil
}

// decodeUpdateBlock accepts either a single update object or an array of
// them. Only a body that is not valid JSON fails the block; an array element
// that is not an object is kept as a nil record so the normalizer rejects it
// on its own index while its siblings survive.
func decodeUpdateBlock(body string) ([]RawUpdate, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(body), &elems); err == nil {
		recs := make([]RawUpdate, 0, len(elems))
		for _, e := range elems {
			var r RawUpdate
			if err := json.Unmarshal(e, &r); err != nil {
				r = nil
			}
			recs = append(recs, r)
		}
		return recs, true
	}
	var one RawUpdate
	if err := json.Unmarshal([]byte(body), &one); err == nil {
		return []RawUpdate{one}, true
	}
	return nil, false
}
