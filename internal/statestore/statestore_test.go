package statestore

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/svgview/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "svgview-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM panels`).Scan(&count); err != nil {
		t.Fatalf("panels table missing: %v", err)
	}
}

func TestSaveAndGet(t *testing.T) {
	db := testDB(t)
	rec := Record{
		ID:       "p1",
		ViewType: "svg.preview",
		Column:   "Beside",
		Title:    "Preview a.svg",
		State:    json.RawMessage(`{"resource":"file:///w/a.svg","zoom":2}`),
	}
	if err := db.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := db.Get("p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ViewType != rec.ViewType || got.Column != rec.Column || got.Title != rec.Title {
		t.Errorf("got %+v", got)
	}
	if string(got.State) != string(rec.State) {
		t.Errorf("state = %s", got.State)
	}
	if got.UpdatedAt.IsZero() {
		t.Errorf("updated_at not set")
	}
}

func TestSaveUpserts(t *testing.T) {
	db := testDB(t)
	_ = db.Save(Record{ID: "p1", ViewType: "svg.preview", State: json.RawMessage(`{"zoom":1}`)})
	if err := db.Save(Record{ID: "p1", ViewType: "svg.preview", State: json.RawMessage(`{"zoom":3}`)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	recs, err := db.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || string(recs[0].State) != `{"zoom":3}` {
		t.Errorf("records = %+v", recs)
	}
}

func TestSaveDefaultsEmptyState(t *testing.T) {
	db := testDB(t)
	if err := db.Save(Record{ID: "p1", ViewType: "svg.export"}); err != nil {
		t.Fatal(err)
	}
	got, _ := db.Get("p1")
	if string(got.State) != `{}` {
		t.Errorf("state = %s", got.State)
	}
	if err := db.Save(Record{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Save(Record{ID: "p1", ViewType: "svg.preview"})
	if err := db.Delete("p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get("p1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := db.Delete("p1"); err != nil {
		t.Errorf("deleting twice: %v", err)
	}
}

func TestListOrder(t *testing.T) {
	db := testDB(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_ = db.Save(Record{ID: "b", ViewType: "svg.export", UpdatedAt: base.Add(time.Minute)})
	_ = db.Save(Record{ID: "a", ViewType: "svg.preview", UpdatedAt: base})

	recs, err := db.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "a" || recs[1].ID != "b" {
		t.Errorf("records = %+v", recs)
	}
}
