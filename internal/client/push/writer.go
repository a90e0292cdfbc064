// Package push implements the Push Writer: the fire-and-forget mirror of
// local mutations. A local write has already committed by the time Push is
// called; the remote upsert runs on its own goroutine and its failure is
// logged and swallowed. There is no queue, no batching and no retry — a
// dropped write reaches the mirror only when the entity is mutated again.
// Two rapid pushes to the same id carry no ordering guarantee either: if
// the second call's transport completes first, the mirror keeps the earlier
// value. Callers treat both as known hazards of the design.
package push

import (
	"context"
	"sync"

	"github.com/obralink/obralink/internal/client/remote"
	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/logging"
)

type Writer struct {
	remote remote.Client
	log    logging.Logger
	wg     sync.WaitGroup
}

func NewWriter(rc remote.Client, log logging.Logger) *Writer {
	return &Writer{remote: rc, log: log.With("module", "push")}
}

// Push mirrors the freshly written entity without blocking the caller.
func (w *Writer) Push(kind entity.Kind, e entity.Entity) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		// deliberately not the caller's context: the UI mutation is done,
		// the mirror write outlives it
		if err := w.remote.Upsert(context.Background(), kind, e); err != nil {
			w.log.Warn(context.Background(), "mirror upsert failed, local write kept",
				"kind", kind, "id", e.ID, "error", err)
		}
	}()
}

// Wait blocks until every in-flight push has finished. Used on shutdown and
// in tests.
func (w *Writer) Wait() {
	w.wg.Wait()
}
