package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/nstop/reddit-topics/internal/domain"
)

// WriterService drains aggregated posts onto disk as NDJSON. Single consumer
// goroutine, so no locking beyond the channel itself.
type WriterService struct {
	FilePath string
}

func (w *WriterService) Start(wg *sync.WaitGroup, input <-chan domain.PostSummary) {
	defer wg.Done()

	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Error("open output file", "path", w.FilePath, "err", err)
		// Drain the channel so producers don't block
		for range input {
		}
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)

	for post := range input {
		// Write as NDJSON
		if err := enc.Encode(post); err != nil {
			slog.Error("write post", "id", post.ID, "err", err)
		}
	}
}
