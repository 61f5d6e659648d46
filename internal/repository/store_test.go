package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ragchat/internal/app"
	"ragchat/internal/chunker"
	"ragchat/internal/extract"
	"ragchat/internal/model"
	"ragchat/internal/rank"
	"ragchat/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)

	s := NewStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestListChunks_InsertionOrderPerOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, owner := range []uint{1, 2, 1, 1} {
		chunk := &model.Chunk{OwnerID: owner, DocumentID: 1, SourceChunkID: fmt.Sprintf("tok_a.txt_%d", i), Ordinal: i, Text: fmt.Sprintf("text %d", i)}
		if err := s.PutChunk(ctx, chunk); err != nil {
			t.Fatalf("PutChunk() failed: %v", err)
		}
	}

	got, err := s.ListChunks(ctx, 1)
	if err != nil {
		t.Fatalf("ListChunks() failed: %v", err)
	}
	var texts []string
	for _, c := range got {
		texts = append(texts, c.Text)
	}
	if want := "text 0,text 2,text 3"; strings.Join(texts, ",") != want {
		t.Errorf("ListChunks(1) = %v, want %s", texts, want)
	}

	other, err := s.ListChunks(ctx, 3)
	if err != nil || len(other) != 0 {
		t.Errorf("ListChunks(3) = %v, %v; want empty", other, err)
	}
}

func TestPutChunk_DuplicateSourceIDKeepsOriginal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &model.Chunk{OwnerID: 1, DocumentID: 1, SourceChunkID: "tok_a.txt_0", Text: "original"}
	if err := s.PutChunk(ctx, first); err != nil {
		t.Fatalf("PutChunk() failed: %v", err)
	}
	dup := &model.Chunk{OwnerID: 1, DocumentID: 2, SourceChunkID: "tok_a.txt_0", Text: "replacement"}
	if err := s.PutChunk(ctx, dup); err == nil {
		t.Fatal("PutChunk() with duplicate source id succeeded, want error")
	}

	got, err := s.ListChunks(ctx, 1)
	if err != nil {
		t.Fatalf("ListChunks() failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "original" {
		t.Errorf("ListChunks() = %+v, want only the original chunk", got)
	}
}

func TestSettings_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetTemplate(ctx, 1); ok || err != nil {
		t.Fatalf("GetTemplate() on empty store = ok %v, err %v", ok, err)
	}
	for _, tpl := range []string{"first {context}", "second {question}"} {
		if err := s.SetTemplate(ctx, 1, tpl); err != nil {
			t.Fatalf("SetTemplate(%q) failed: %v", tpl, err)
		}
	}
	if err := s.SetTemplate(ctx, 2, "other"); err != nil {
		t.Fatalf("SetTemplate() failed: %v", err)
	}
	tpl, ok, err := s.GetTemplate(ctx, 1)
	if err != nil || !ok || tpl != "second {question}" {
		t.Errorf("GetTemplate(1) = %q, %v, %v; want the second template", tpl, ok, err)
	}

	for _, id := range []string{"m1", "m2"} {
		if err := s.SetModelSelection(ctx, 1, id); err != nil {
			t.Fatalf("SetModelSelection(%q) failed: %v", id, err)
		}
	}
	id, ok, err := s.GetModelSelection(ctx, 1)
	if err != nil || !ok || id != "m2" {
		t.Errorf("GetModelSelection(1) = %q, %v, %v; want m2", id, ok, err)
	}

	var rows int64
	s.db.Model(&model.PromptTemplate{}).Count(&rows)
	if rows != 2 {
		t.Errorf("prompt template rows = %d, want 2", rows)
	}
	s.db.Model(&model.ModelSelection{}).Count(&rows)
	if rows != 1 {
		t.Errorf("model selection rows = %d, want 1", rows)
	}
}

func TestClearChat_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, owner := range []uint{1, 2, 1} {
		turn := &model.ChatTurn{OwnerID: owner, UserMessage: fmt.Sprintf("q%d", i), AssistantResponse: fmt.Sprintf("a%d", i)}
		if err := s.AppendChat(ctx, turn); err != nil {
			t.Fatalf("AppendChat() failed: %v", err)
		}
	}
	if err := s.ClearChat(ctx, 1); err != nil {
		t.Fatalf("ClearChat() failed: %v", err)
	}

	mine, err := s.ListChat(ctx, 1)
	if err != nil || len(mine) != 0 {
		t.Errorf("ListChat(1) = %v, %v; want empty", mine, err)
	}
	theirs, err := s.ListChat(ctx, 2)
	if err != nil || len(theirs) != 1 || theirs[0].UserMessage != "q1" {
		t.Errorf("ListChat(2) = %+v, %v; want the untouched turn", theirs, err)
	}
}

func TestReingest_KeepsBothRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}
	ch, err := chunker.New(4, 1)
	if err != nil {
		t.Fatalf("chunker.New() failed: %v", err)
	}
	svc := app.NewIngestService(s, s, files, extract.NewRegistry(), ch, app.IngestOptions{MaxBytes: 1 << 20})

	const body = "go is fast and go is fun"
	var perRun int
	for range 2 {
		res, err := svc.Ingest(ctx, app.IngestInput{OwnerID: 7, Filename: "notes.txt", Body: strings.NewReader(body)})
		if err != nil {
			t.Fatalf("Ingest() failed: %v", err)
		}
		perRun = res.ChunkCount
	}
	if perRun != 2 {
		t.Fatalf("chunks per run = %d, want 2", perRun)
	}

	chunks, err := s.ListChunks(ctx, 7)
	if err != nil {
		t.Fatalf("ListChunks() failed: %v", err)
	}
	if len(chunks) != 2*perRun {
		t.Fatalf("stored chunks = %d, want %d", len(chunks), 2*perRun)
	}
	seen := map[string]bool{}
	for _, c := range chunks {
		seen[c.SourceChunkID] = true
	}
	if len(seen) != len(chunks) {
		t.Errorf("source chunk ids %v are not distinct", seen)
	}

	results, err := rank.NewRanker(s, rank.KeywordScorer{}).Rank(ctx, 7, "go", 10)
	if err != nil {
		t.Fatalf("Rank() failed: %v", err)
	}
	if len(results) != len(chunks) {
		t.Errorf("Rank() returned %d chunks, want all %d", len(results), len(chunks))
	}
}
