package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// File is one named output, for example variant-a.png.
type File struct {
	Name string
	Data []byte
}

type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// Write stores every file in sink concurrently and returns the first error.
func Write(ctx context.Context, sink Sink, files []File) error {
	if sink == nil {
		return errors.New("export sink is nil")
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := sink.Put(ctx, f.Name, f.Data); err != nil {
				return fmt.Errorf("export %s: %w", f.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// DirSink writes files into a local folder.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("export dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (s *DirSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, filepath.Base(name)), data, 0o644)
}
