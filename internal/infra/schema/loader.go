// Package schema serves the static JSON documents describing the control
// interface (monitor/execute schemas and adaptation options).
package schema

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/observability"
	"github.com/S2-group/swim-HTTP/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("schema")

// files maps document keys to file names under the document directory.
var files = map[string]string{
	domain.DocMonitorSchema:           "monitor_schema.json",
	domain.DocExecuteSchema:           "execute_schema.json",
	domain.DocAdaptationOptions:       "adaptation_options.json",
	domain.DocAdaptationOptionsSchema: "adaptation_options_schema.json",
}

// Keys returns every document key the loader knows about.
func Keys() []string {
	return []string{
		domain.DocMonitorSchema,
		domain.DocExecuteSchema,
		domain.DocAdaptationOptions,
		domain.DocAdaptationOptionsSchema,
	}
}

// FileLoader reads documents from a directory and caches them.
type FileLoader struct {
	dir     string
	cache   port.Cache[[]byte]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewFileLoader creates a loader rooted at dir.
func NewFileLoader(dir string, cache port.Cache[[]byte], metrics *observability.Metrics, logger *zap.Logger) *FileLoader {
	return &FileLoader{dir: dir, cache: cache, metrics: metrics, logger: logger}
}

// Load returns the document bytes verbatim. Read failures and invalid JSON
// are reported as ErrDocument and never cached.
func (l *FileLoader) Load(ctx context.Context, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "FileLoader.Load")
	defer span.End()
	span.SetAttributes(attribute.String("document.key", key))

	name, ok := files[key]
	if !ok {
		return nil, &domain.ErrUnknownDocument{Key: key}
	}

	if doc, ok := l.cache.Get(key); ok {
		l.metrics.IncrCacheHit("documents")
		return doc, nil
	}
	l.metrics.IncrCacheMiss("documents")

	path := filepath.Join(l.dir, name)
	doc, err := os.ReadFile(path)
	if err != nil {
		l.logger.Error("document read failed", zap.String("path", path), zap.Error(err))
		return nil, &domain.ErrDocument{Key: key, Err: err}
	}
	if !json.Valid(doc) {
		l.logger.Error("document is not valid JSON", zap.String("path", path))
		return nil, &domain.ErrDocument{Key: key, Err: errors.New("invalid JSON")}
	}

	l.cache.Set(key, doc)
	return doc, nil
}

// Check verifies every document can be loaded, for readiness probes.
func (l *FileLoader) Check(ctx context.Context) error {
	var errs []error
	for _, key := range Keys() {
		if _, err := l.Load(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
