package profile

import "errors"

// ErrEmptyCompletion is returned when the model produced nothing usable at all.
var ErrEmptyCompletion = errors.New("empty completion")

// Cognitive states the advisor may attach to an update.
const (
	CognitiveClear   = "clear"
	CognitiveSensing = "sensing"
	CognitiveAware   = "aware"
	CognitiveUnaware = "unaware"
)

// Motivation states the advisor may attach to an update.
const (
	MotivationDriven     = "driven"
	MotivationInterested = "interested"
	MotivationPassive    = "passive"
	MotivationNone       = "none"
)

// DefaultContentLayer is used when an update does not carry a layer.
const DefaultContentLayer = "universal"

// RawUpdate is one loosely-decoded <update> record. It stays untyped so that
// a wrong-typed field can only reject this record during normalization, never
// the sibling records in the same block. A nil RawUpdate marks an element
// that was not a JSON object at all.
type RawUpdate map[string]interface{}

// Update is one validated profile mutation. Identity within a user's profile
// is (DomainID, SubDimension); repeated updates to the same identity
// overwrite, never duplicate.
type Update struct {
	DomainID        int    `json:"domain_id"`
	SubDimension    string `json:"sub_dimension"`
	LevelLabel      string `json:"level_label"`
	Evidence        string `json:"evidence,omitempty"`
	CognitiveState  string `json:"cognitive_state,omitempty"`
	MotivationState string `json:"motivation_state,omitempty"`
	ContentLayer    string `json:"content_layer"`
}

// Rejection explains why one raw record was dropped during normalization.
type Rejection struct {
	Index  int
	Reason string
}
