package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/receipt-scanner/internal/extraction"
)

// stdinName marks the standard input in the source list
const stdinName = "-"

// record is one line of output
type record struct {
	Source string             `json:"source"`
	Result *extraction.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// batch runs the engine over a list of sources
type batch struct {
	engine   *extraction.Engine
	jobs     int
	stdin    io.Reader
	readFile func(string) ([]byte, error)
}

func newBatch(engine *extraction.Engine, jobs int, stdin io.Reader) *batch {
	return &batch{
		engine:   engine,
		jobs:     max(jobs, 1),
		stdin:    stdin,
		readFile: os.ReadFile,
	}
}

// run extracts every source concurrently and writes one JSON record per source
// to w in input order. It returns the number of sources that could not be read.
func (b *batch) run(ctx context.Context, sources []string, w io.Writer) (int, error) {
	if len(sources) == 0 {
		sources = []string{stdinName}
	}

	records := make([]record, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.jobs)

	for i, source := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = b.extractOne(source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("extracting: %w", err)
	}

	failed := 0
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if rec.Error != "" {
			failed++
		}
		if err := enc.Encode(rec); err != nil {
			return failed, fmt.Errorf("writing result for %s: %w", rec.Source, err)
		}
	}
	return failed, nil
}

func (b *batch) extractOne(source string) record {
	var (
		data []byte
		err  error
	)
	if source == stdinName {
		data, err = io.ReadAll(b.stdin)
	} else {
		data, err = b.readFile(source)
	}
	if err != nil {
		slog.Error("Failed to read input", "source", source, "error", err)
		return record{Source: source, Error: err.Error()}
	}

	res := b.engine.Extract(string(data))
	slog.Debug("Extracted", "source", source, "missing", res.Missing())
	return record{Source: source, Result: &res}
}
