// Package ingest feeds the download manager from a spool directory: the
// capture process drops one JSON event per file, the watcher validates it
// against the event schema and hands it to the manager. Processed files are
// removed; files that fail validation are renamed aside with an .invalid
// suffix so they can be inspected.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/errgroup"

	"github.com/chatvault/mediadl/internal/logging"
	"github.com/chatvault/mediadl/internal/model"
)

// eventSchema is the contract for spooled event files. Unknown fields are
// allowed; the pointer object must carry at least one field.
const eventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "pointer"],
  "properties": {
    "id": {"type": "string"},
    "type": {"type": "string", "minLength": 1},
    "mimetype": {"type": "string"},
    "size": {"type": "integer", "minimum": 0},
    "filename": {"type": "string"},
    "from": {"type": "string"},
    "pointer": {
      "type": "object",
      "minProperties": 1,
      "properties": {
        "mediaKey": {"type": "string"},
        "fileHash": {"type": "string"},
        "directPath": {"type": "string"},
        "url": {"type": "string"}
      }
    }
  }
}`

// sweepInterval backs up fsnotify: a periodic directory scan picks up files
// dropped while the watcher was not running or whose events were lost.
const sweepInterval = 30 * time.Second

// Processor receives validated events. *download.Manager satisfies it.
type Processor interface {
	ProcessEvent(ctx context.Context, e model.MediaEvent) model.MediaEvent
}

// Watcher watches a spool directory and forwards events to a Processor.
type Watcher struct {
	dir    string
	proc   Processor
	log    logging.Logger
	schema *jsonschema.Schema
}

// NewWatcher builds a watcher for dir. The directory is created if needed.
func NewWatcher(dir string, proc Processor, log logging.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(eventSchema))
	if err != nil {
		return nil, fmt.Errorf("event schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("event.json", doc); err != nil {
		return nil, fmt.Errorf("event schema: %w", err)
	}
	schema, err := compiler.Compile("event.json")
	if err != nil {
		return nil, fmt.Errorf("event schema: %w", err)
	}

	return &Watcher{dir: dir, proc: proc, log: log, schema: schema}, nil
}

// Run watches until the context is cancelled. Files already present in the
// spool are processed on startup.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.sweep(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-fw.Events:
				if !ok {
					return nil
				}
				if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
					w.handleFile(ctx, event.Name)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				w.log.Warn(ctx, "spool watch error", "err", err)
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	})

	err = g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// sweep processes every spooled event file currently in the directory.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn(ctx, "spool sweep failed", "err", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.handleFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) handleFile(ctx context.Context, path string) {
	if !strings.HasSuffix(path, ".json") {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// racing with the producer or another sweep; the next pass
		// picks it up
		return
	}

	event, err := w.parse(data)
	if err != nil {
		w.log.Warn(ctx, "invalid spool file", "file", filepath.Base(path), "err", err)
		w.quarantine(ctx, path)
		return
	}

	w.proc.ProcessEvent(ctx, *event)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		w.log.Warn(ctx, "spool file not removed", "file", filepath.Base(path), "err", err)
	}
}

func (w *Watcher) parse(data []byte) (*model.MediaEvent, error) {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := w.schema.Validate(instance); err != nil {
		return nil, err
	}

	var event model.MediaEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (w *Watcher) quarantine(ctx context.Context, path string) {
	if err := os.Rename(path, path+".invalid"); err != nil && !os.IsNotExist(err) {
		w.log.Warn(ctx, "spool file not quarantined", "file", filepath.Base(path), "err", err)
	}
}
