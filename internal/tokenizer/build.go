package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrNoSources is returned by BuildVocabulary when called without paths.
var ErrNoSources = errors.New("no vocabulary sources")

// scanChunk is the read size per file between cancellation checks.
const scanChunk = 64 << 10

// BuildVocabulary scans the given files concurrently and returns the
// vocabulary of every byte they contain. Each file is scanned into a private
// set; the sets are merged into the shared one under a mutex, and the
// vocabulary is built only after every scan has finished. The first error
// cancels the remaining scans.
func BuildVocabulary(ctx context.Context, paths ...string) (*ByteVocabulary, error) {
	if len(paths) == 0 {
		return nil, ErrNoSources
	}

	var (
		mu     sync.Mutex
		shared byteSet
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			local, err := scanFile(ctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			shared.merge(local)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shared.vocabulary(), nil
}

func scanFile(ctx context.Context, path string) (*byteSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	defer f.Close()

	var set byteSet
	buf := make([]byte, scanChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := f.Read(buf)
		set.addAll(buf[:n])
		if errors.Is(err, io.EOF) {
			return &set, nil
		}
		if err != nil {
			return nil, fmt.Errorf("vocabulary: read %s: %w", path, err)
		}
	}
}
