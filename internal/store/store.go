package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// Evidence sources persisted on evidence_logs rows.
const (
	EvidenceSourceConversation = "conversation"
	EvidenceSourceImport       = "import"
)

// Conversation trigger modes.
const (
	TriggerModeFreeInput = "free_input"
)

// PlaceholderScore is written when a level label is outside the configured
// ladder. Kept at 1 so unrated rows sort below every rated one.
const PlaceholderScore = 1

// AssessmentRecord is one current-state profile row, joined with its domain name.
type AssessmentRecord struct {
	DomainID        int
	DomainName      string
	SubDimension    string
	IsCustom        bool
	LevelLabel      string
	LevelScore      int
	ContentLayer    string
	LearningNature  *string
	CognitiveState  *string
	MotivationState *string
	UpdatedAt       time.Time
}

// AssessmentUpsert carries the writable fields of one assessment row.
type AssessmentUpsert struct {
	DomainID        int
	SubDimension    string
	LevelLabel      string
	LevelScore      int
	ContentLayer    string
	CognitiveState  *string
	MotivationState *string
}

// EvidenceRecord is one append-only audit row backing a level judgment.
type EvidenceRecord struct {
	UserID       string
	DomainID     int
	SubDimension string
	EvidenceText string
	Source       string
}

// DomainPriorityRecord is the per-user ranking of a domain.
type DomainPriorityRecord struct {
	DomainID      int
	DomainName    string
	PriorityScore int
	PriorityNotes *string
}

// ConversationTurn is one immutable chat-log row. ProfileUpdate holds the
// accepted updates attached to an assistant turn, nil otherwise.
type ConversationTurn struct {
	UserID        string
	Role          string
	Content       string
	TriggerMode   string
	ProfileUpdate json.RawMessage
}

// ConversationRecord is a stored chat-log row as read back for history.
type ConversationRecord struct {
	ID            string
	Role          string
	Content       string
	TriggerMode   string
	ProfileUpdate json.RawMessage
	CreatedAt     time.Time
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (id, email, password_hash) VALUES ($1,$2,$3)`, id, email, hash)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// ListAssessments returns all current assessment rows for a user, grouped by
// domain and strongest sub-dimension first within each domain.
func (s *Store) ListAssessments(ctx context.Context, userID string) ([]AssessmentRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT a.domain_id, d.name, a.sub_dimension, a.is_custom, a.level_label, a.level_score,
       a.content_layer, a.learning_nature, a.cognitive_state, a.motivation_state, a.updated_at
FROM profile_assessments a
JOIN domains d ON d.id = a.domain_id
WHERE a.user_id=$1
ORDER BY a.domain_id, a.level_score DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AssessmentRecord
	for rows.Next() {
		var r AssessmentRecord
		if err := rows.Scan(&r.DomainID, &r.DomainName, &r.SubDimension, &r.IsCustom, &r.LevelLabel,
			&r.LevelScore, &r.ContentLayer, &r.LearningNature, &r.CognitiveState, &r.MotivationState, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDomainPriorities returns the user's domain rankings, highest first.
func (s *Store) ListDomainPriorities(ctx context.Context, userID string) ([]DomainPriorityRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT p.domain_id, d.name, p.priority_score, p.priority_notes
FROM domain_priorities p
JOIN domains d ON d.id = p.domain_id
WHERE p.user_id=$1
ORDER BY p.priority_score DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DomainPriorityRecord
	for rows.Next() {
		var r DomainPriorityRecord
		if err := rows.Scan(&r.DomainID, &r.DomainName, &r.PriorityScore, &r.PriorityNotes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertAssessments writes a batch of assessment rows in one statement.
// Conflicts on (user_id, domain_id, sub_dimension) overwrite the current
// state in place; is_custom is left untouched for existing rows.
func (s *Store) UpsertAssessments(ctx context.Context, userID string, ups []AssessmentUpsert) error {
	if len(ups) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO profile_assessments (user_id, domain_id, sub_dimension, level_label, level_score, content_layer, cognitive_state, motivation_state, updated_at) VALUES `)
	args := make([]interface{}, 0, len(ups)*8)
	for i, u := range ups {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 8
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,NOW())",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, userID, u.DomainID, u.SubDimension, u.LevelLabel, u.LevelScore, u.ContentLayer, u.CognitiveState, u.MotivationState)
	}
	sb.WriteString(` ON CONFLICT (user_id, domain_id, sub_dimension) DO UPDATE SET
  level_label      = EXCLUDED.level_label,
  level_score      = EXCLUDED.level_score,
  content_layer    = EXCLUDED.content_layer,
  cognitive_state  = EXCLUDED.cognitive_state,
  motivation_state = EXCLUDED.motivation_state,
  updated_at       = NOW()`)
	_, err := s.DB.ExecContext(ctx, sb.String(), args...)
	return err
}

// InsertEvidence appends audit rows. Existing evidence is never touched.
func (s *Store) InsertEvidence(ctx context.Context, recs []EvidenceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO evidence_logs (user_id, domain_id, sub_dimension, evidence_text, source) VALUES `)
	args := make([]interface{}, 0, len(recs)*5)
	for i, r := range recs {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 5
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, r.UserID, r.DomainID, r.SubDimension, r.EvidenceText, r.Source)
	}
	_, err := s.DB.ExecContext(ctx, sb.String(), args...)
	return err
}

// InsertConversationTurns appends chat-log rows in order.
func (s *Store) InsertConversationTurns(ctx context.Context, turns []ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO conversations (user_id, role, content, trigger_mode, profile_update) VALUES `)
	args := make([]interface{}, 0, len(turns)*5)
	for i, t := range turns {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 5
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5))
		var upd interface{}
		if len(t.ProfileUpdate) > 0 {
			upd = []byte(t.ProfileUpdate)
		}
		args = append(args, t.UserID, t.Role, t.Content, t.TriggerMode, upd)
	}
	_, err := s.DB.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListConversations returns the newest turns for a user, oldest first so the
// caller can render them top-down.
func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]ConversationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, role, content, trigger_mode, profile_update, created_at FROM (
  SELECT id, role, content, trigger_mode, profile_update, created_at
  FROM conversations WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2
) recent ORDER BY created_at ASC
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConversationRecord
	for rows.Next() {
		var r ConversationRecord
		var upd []byte
		if err := rows.Scan(&r.ID, &r.Role, &r.Content, &r.TriggerMode, &upd, &r.CreatedAt); err != nil {
			return nil, err
		}
		if len(upd) > 0 {
			r.ProfileUpdate = json.RawMessage(upd)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
