package schema_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/cache"
	"github.com/S2-group/swim-HTTP/internal/infra/observability"
	"github.com/S2-group/swim-HTTP/internal/infra/schema"

	"go.uber.org/zap"
)

func newLoader(t *testing.T, dir string) *schema.FileLoader {
	t.Helper()
	c := cache.New[[]byte](time.Minute)
	t.Cleanup(c.Close)
	return schema.NewFileLoader(dir, c, observability.NewMetrics(), zap.NewNop())
}

func TestFileLoader_Verbatim(t *testing.T) {
	dir := t.TempDir()
	doc := "{\n  \"type\": \"object\",\n  \"required\": [\"servers\"]\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "monitor_schema.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	l := newLoader(t, dir)
	got, err := l.Load(context.Background(), domain.DocMonitorSchema)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(got) != doc {
		t.Errorf("expected verbatim document, got %q", got)
	}
}

func TestFileLoader_CachesDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "execute_schema.json")
	if err := os.WriteFile(path, []byte(`{"v":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	l := newLoader(t, dir)
	if _, err := l.Load(context.Background(), domain.DocExecuteSchema); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	got, err := l.Load(context.Background(), domain.DocExecuteSchema)
	if err != nil {
		t.Fatalf("expected cached document, got %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Errorf("unexpected cached document %s", got)
	}
}

func TestFileLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "adaptation_options.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := newLoader(t, dir)

	var docErr *domain.ErrDocument
	if _, err := l.Load(context.Background(), domain.DocAdaptationOptions); !errors.As(err, &docErr) {
		t.Errorf("expected ErrDocument for invalid JSON, got %v", err)
	}
	if _, err := l.Load(context.Background(), domain.DocAdaptationOptionsSchema); !errors.As(err, &docErr) {
		t.Errorf("expected ErrDocument for missing file, got %v", err)
	}

	var unknown *domain.ErrUnknownDocument
	if _, err := l.Load(context.Background(), "license"); !errors.As(err, &unknown) {
		t.Errorf("expected ErrUnknownDocument, got %v", err)
	}
}

func TestFileLoader_ShippedDocuments(t *testing.T) {
	l := newLoader(t, filepath.Join("..", "..", "..", "specification"))
	if err := l.Check(context.Background()); err != nil {
		t.Fatalf("expected shipped documents to load, got %v", err)
	}
}
