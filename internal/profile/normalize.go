package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var validCognitive = map[string]bool{
	CognitiveClear:   true,
	CognitiveSensing: true,
	CognitiveAware:   true,
	CognitiveUnaware: true,
}

var validMotivation = map[string]bool{
	MotivationDriven:     true,
	MotivationInterested: true,
	MotivationPassive:    true,
	MotivationNone:       true,
}

// Normalizer validates raw update records and caps the accepted batch.
type Normalizer struct {
	MaxUpdates   int
	DefaultLayer string
}

// NewNormalizer applies the standard cap of 3 updates per reply when max <= 0.
func NewNormalizer(max int, defaultLayer string) *Normalizer {
	if max <= 0 {
		max = 3
	}
	if defaultLayer == "" {
		defaultLayer = DefaultContentLayer
	}
	return &Normalizer{MaxUpdates: max, DefaultLayer: defaultLayer}
}

// NormalizeBatch converts raw records into canonical updates. A record missing
// a required field is rejected on its own; the rest of the batch proceeds.
// The accepted list is truncated to MaxUpdates preserving emission order.
func (n *Normalizer) NormalizeBatch(raw []RawUpdate) ([]Update, []Rejection) {
	var accepted []Update
	var rejected []Rejection
	for i, r := range raw {
		u, err := n.normalize(r)
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, Reason: err.Error()})
			rejectedRecords.Inc()
			continue
		}
		accepted = append(accepted, u)
	}
	if len(accepted) > n.MaxUpdates {
		truncatedRecords.Add(float64(len(accepted) - n.MaxUpdates))
		accepted = accepted[:n.MaxUpdates]
	}
	return accepted, rejected
}

func (n *Normalizer) normalize(r RawUpdate) (Update, error) {
	if r == nil {
		return Update{}, fmt.Errorf("record must be a JSON object")
	}
	domainID, err := coerceDomainID(r["domain_id"])
	if err != nil {
		return Update{}, err
	}
	sub, err := requiredString(r, "sub_dimension")
	if err != nil {
		return Update{}, err
	}
	label, err := requiredString(r, "level_label")
	if err != nil {
		return Update{}, err
	}

	u := Update{
		DomainID:     domainID,
		SubDimension: sub,
		LevelLabel:   label,
		Evidence:     optionalString(r, "evidence"),
		ContentLayer: optionalString(r, "content_layer"),
	}
	if u.ContentLayer == "" {
		u.ContentLayer = n.DefaultLayer
	}
	// Unknown state labels are dropped, not fatal, so new advisor vocabulary
	// cannot reject an otherwise valid record.
	if cs := strings.ToLower(optionalString(r, "cognitive_state")); validCognitive[cs] {
		u.CognitiveState = cs
	}
	if ms := strings.ToLower(optionalString(r, "motivation_state")); validMotivation[ms] {
		u.MotivationState = ms
	}
	return u, nil
}

// requiredString rejects the record when the field is missing, blank, or not
// a string.
func requiredString(r RawUpdate, key string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// optionalString ignores a wrong-typed value instead of rejecting the record.
func optionalString(r RawUpdate, key string) string {
	if s, ok := r[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// coerceDomainID accepts JSON numbers and numeric strings. Fractional values
// and anything else are rejections.
func coerceDomainID(v interface{}) (int, error) {
	switch x := v.(type) {
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("domain_id must be an integer, got %v", x)
		}
		return int(x), nil
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("domain_id must be an integer, got %q", x.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("domain_id must be an integer, got %q", x)
		}
		return i, nil
	case nil:
		return 0, fmt.Errorf("domain_id is required")
	default:
		return 0, fmt.Errorf("domain_id must be an integer, got %T", v)
	}
}
