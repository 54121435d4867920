package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestUpsertAssessmentsBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	cog := "clear"
	ups := []AssessmentUpsert{
		{DomainID: 2, SubDimension: "debugging", LevelLabel: "探索->运用", LevelScore: 6, ContentLayer: "universal", CognitiveState: &cog},
		{DomainID: 3, SubDimension: "user_research", LevelLabel: "感知", LevelScore: 2, ContentLayer: "work"},
	}

	mock.ExpectExec(`INSERT INTO profile_assessments .+ ON CONFLICT \(user_id, domain_id, sub_dimension\) DO UPDATE SET`).
		WithArgs(
			"user-1", int64(2), "debugging", "探索->运用", int64(6), "universal", "clear", nil,
			"user-1", int64(3), "user_research", "感知", int64(2), "work", nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := st.UpsertAssessments(context.Background(), "user-1", ups); err != nil {
		t.Fatalf("UpsertAssessments: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertAssessmentsEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	if err := st.UpsertAssessments(context.Background(), "user-1", nil); err != nil {
		t.Fatalf("UpsertAssessments: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertConversationTurns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	updates := json.RawMessage(`[{"domain_id":2,"sub_dimension":"debugging","level_label":"运用","content_layer":"universal"}]`)
	turns := []ConversationTurn{
		{UserID: "user-1", Role: "user", Content: "I fixed it", TriggerMode: TriggerModeFreeInput},
		{UserID: "user-1", Role: "assistant", Content: "Nice!", TriggerMode: TriggerModeFreeInput, ProfileUpdate: updates},
	}

	mock.ExpectExec(`INSERT INTO conversations`).
		WithArgs(
			"user-1", "user", "I fixed it", TriggerModeFreeInput, nil,
			"user-1", "assistant", "Nice!", TriggerModeFreeInput, []byte(updates),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := st.InsertConversationTurns(context.Background(), turns); err != nil {
		t.Fatalf("InsertConversationTurns: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListAssessments(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	now := time.Now()
	mock.ExpectQuery(`SELECT a.domain_id, d.name, a.sub_dimension`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"domain_id", "name", "sub_dimension", "is_custom", "level_label", "level_score",
			"content_layer", "learning_nature", "cognitive_state", "motivation_state", "updated_at",
		}).
			AddRow(1, "编程", "debugging", false, "运用", 6, "universal", nil, "clear", "driven", now).
			AddRow(1, "编程", "shell_fu", true, "探索", 4, "universal", nil, nil, nil, now))

	recs, err := st.ListAssessments(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListAssessments: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recs))
	}
	if recs[0].CognitiveState == nil || *recs[0].CognitiveState != "clear" {
		t.Fatalf("unexpected cognitive state: %+v", recs[0])
	}
	if !recs[1].IsCustom {
		t.Fatalf("expected custom flag on second row")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListConversationsDefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	st := &Store{DB: db}

	now := time.Now()
	mock.ExpectQuery(`FROM conversations WHERE user_id=\$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("user-1", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "content", "trigger_mode", "profile_update", "created_at"}).
			AddRow("c1", "user", "hello", TriggerModeFreeInput, nil, now))

	recs, err := st.ListConversations(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(recs) != 1 || recs[0].Role != "user" {
		t.Fatalf("unexpected rows: %+v", recs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
