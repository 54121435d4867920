package profile

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mindpath-ai/mindpath/internal/store"
)

func testPipeline(db *store.Store) *Pipeline {
	logger := log.New(io.Discard, "", 0)
	return &Pipeline{
		Store:      db,
		Normalizer: NewNormalizer(3, "universal"),
		Writer:     &Writer{Store: db, Ladder: testLadder(), Logger: logger},
		Logger:     logger,
	}
}

const sampleCompletion = `<response>Great progress!</response><update>[{"domain_id":2,"sub_dimension":"debugging","level_label":"探索->运用","evidence":"fixed a race condition alone"}]</update>`

func TestPipelineEndToEnd(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	p := testPipeline(&store.Store{DB: db})

	mock.ExpectExec(`INSERT INTO profile_assessments`).
		WithArgs("user-1", int64(2), "debugging", "探索->运用", int64(6), "universal", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO evidence_logs`).
		WithArgs("user-1", int64(2), "debugging", "fixed a race condition alone", store.EvidenceSourceConversation).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO conversations`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := p.Handle(context.Background(), "user-1", "I fixed it myself", sampleCompletion)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Response != "Great progress!" {
		t.Fatalf("unexpected response: %q", res.Response)
	}
	if len(res.Updates) != 1 {
		t.Fatalf("expected 1 accepted update, got %d", len(res.Updates))
	}
	u := res.Updates[0]
	if u.DomainID != 2 || u.SubDimension != "debugging" || u.ContentLayer != "universal" {
		t.Fatalf("unexpected update: %+v", u)
	}
	if len(res.PersistErrs) != 0 {
		t.Fatalf("unexpected persist errors: %v", res.PersistErrs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPipelinePersistFailureStillReturnsResponse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	p := testPipeline(&store.Store{DB: db})

	mock.ExpectExec(`INSERT INTO profile_assessments`).
		WillReturnError(errors.New("database is down"))
	mock.ExpectExec(`INSERT INTO evidence_logs`).
		WillReturnError(errors.New("database is down"))
	mock.ExpectExec(`INSERT INTO conversations`).
		WillReturnError(errors.New("database is down"))

	res, err := p.Handle(context.Background(), "user-1", "hi", sampleCompletion)
	if err != nil {
		t.Fatalf("persist failures must not fail the request: %v", err)
	}
	if res.Response != "Great progress!" {
		t.Fatalf("response lost on persist failure: %q", res.Response)
	}
	if len(res.Updates) != 1 {
		t.Fatalf("updates should reflect what was attempted, got %d", len(res.Updates))
	}
	if len(res.PersistErrs) != 3 {
		t.Fatalf("expected 3 persist errors, got %v", res.PersistErrs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPipelineNoUpdates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	p := testPipeline(&store.Store{DB: db})

	// no assessment or evidence writes expected, only the conversation log
	mock.ExpectExec(`INSERT INTO conversations`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := p.Handle(context.Background(), "user-1", "随便聊聊", `<response>聊聊就好</response><update>[]</update>`)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Updates) != 0 {
		t.Fatalf("expected no updates, got %+v", res.Updates)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

type recordingCache struct {
	invalidated []string
}

func (r *recordingCache) Invalidate(ctx context.Context, userID string) {
	r.invalidated = append(r.invalidated, userID)
}

func TestPipelineInvalidatesCacheAfterWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	p := testPipeline(&store.Store{DB: db})
	rc := &recordingCache{}
	p.Cache = rc

	mock.ExpectExec(`INSERT INTO profile_assessments`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO evidence_logs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO conversations`).WillReturnResult(sqlmock.NewResult(0, 2))

	if _, err := p.Handle(context.Background(), "user-1", "hi", sampleCompletion); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(rc.invalidated) != 1 || rc.invalidated[0] != "user-1" {
		t.Fatalf("cache should be invalidated once for user-1, got %v", rc.invalidated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPipelineKeepsCacheWhenWriteFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	p := testPipeline(&store.Store{DB: db})
	rc := &recordingCache{}
	p.Cache = rc

	mock.ExpectExec(`INSERT INTO profile_assessments`).WillReturnError(errors.New("database is down"))
	mock.ExpectExec(`INSERT INTO evidence_logs`).WillReturnError(errors.New("database is down"))
	mock.ExpectExec(`INSERT INTO conversations`).WillReturnResult(sqlmock.NewResult(0, 2))

	if _, err := p.Handle(context.Background(), "user-1", "hi", sampleCompletion); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(rc.invalidated) != 0 {
		t.Fatalf("cache must stay put when nothing was written, got %v", rc.invalidated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPipelineEmptyCompletion(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	p := testPipeline(&store.Store{DB: db})

	if _, err := p.Handle(context.Background(), "user-1", "hi", "   "); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}
