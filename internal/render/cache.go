package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Artifact is a rendered file and its byte size.
type Artifact struct {
	Path     string
	ByteSize int64
}

// Cache memoizes the render pipeline for one optimization run. Each
// distinct (fps, size) pair triggers at most one GIF render and each
// distinct (fps, size, lossy) triple at most one compression, no matter
// how often a search strategy revisits them. The identity of an entry is
// its parameter key, held in an explicit map; the deterministic file
// names inside the working directory are layout, not the hit test.
//
// Safe for concurrent use: a second request for a key whose render is
// still in flight waits for the first instead of duplicating work.
type Cache struct {
	renderer Renderer
	source   string
	dir      string
	native   VideoInfo

	mu           sync.Mutex
	calls        map[string]*call
	intermediate string // set once the down-sampled source exists
}

// call tracks one render, in flight or completed.
type call struct {
	done chan struct{}
	art  Artifact
	err  error
}

const (
	paletteName      = "palette.png"
	intermediateName = "intermediate.avi"
)

// NewCache creates a cache rendering into dir, which must exist and be
// private to this run.
func NewCache(renderer Renderer, source, dir string, native VideoInfo) *Cache {
	return &Cache{
		renderer: renderer,
		source:   source,
		dir:      dir,
		native:   native,
		calls:    make(map[string]*call),
	}
}

// Intermediate materializes the down-sampled source, an optimization
// that shrinks every subsequent candidate render. It is created only
// when the requested ceilings are strictly tighter than the source's
// native fps and width, and at most once per run.
func (c *Cache) Intermediate(ctx context.Context, fpsCeil, sizeCeil int) error {
	if float64(fpsCeil) >= c.native.FPS && sizeCeil >= c.native.Width {
		return nil
	}

	art, err := c.do(ctx, intermediateName, func(dst string) error {
		slog.Info("creating intermediate file for faster processing", "fps", fpsCeil, "width", sizeCeil)
		return c.renderer.MakeIntermediate(ctx, c.source, fpsCeil, sizeCeil, dst)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.intermediate = art.Path
	c.mu.Unlock()
	return nil
}

// Palette materializes the shared color palette, computed once per run
// from the intermediate if one exists, otherwise from the source.
func (c *Cache) Palette(ctx context.Context) (string, error) {
	art, err := c.do(ctx, paletteName, func(dst string) error {
		slog.Info("generating palette")
		return c.renderer.MakePalette(ctx, c.input(), dst)
	})
	if err != nil {
		return "", err
	}
	return art.Path, nil
}

// GIF renders the uncompressed GIF for a (fps, size) pair, at most once.
func (c *Cache) GIF(ctx context.Context, fps, size int) (Artifact, error) {
	return c.do(ctx, fmt.Sprintf("%d-%d.gif", fps, size), func(dst string) error {
		palette, err := c.Palette(ctx)
		if err != nil {
			return err
		}
		return c.renderer.MakeGIF(ctx, c.input(), palette, fps, size, dst)
	})
}

// Compress renders and compresses the GIF for a full (fps, size, lossy)
// triple, at most once.
func (c *Cache) Compress(ctx context.Context, fps, size, lossy int) (Artifact, error) {
	return c.do(ctx, fmt.Sprintf("%d-%d-%d.gif", fps, size, lossy), func(dst string) error {
		gif, err := c.GIF(ctx, fps, size)
		if err != nil {
			return err
		}
		return c.renderer.Compress(ctx, gif.Path, lossy, dst)
	})
}

// do returns the cached artifact for key, or renders it exactly once.
// Concurrent callers for the same key share a single render. A failed
// render is not cached and leaves no file at the deterministic path.
func (c *Cache) do(ctx context.Context, key string, render func(dst string) error) (Artifact, error) {
	c.mu.Lock()
	if cl, ok := c.calls[key]; ok {
		c.mu.Unlock()
		// A completed entry is served even under a cancelled context,
		// so a winner can still be fetched after an interrupt.
		select {
		case <-cl.done:
			return cl.art, cl.err
		default:
		}
		select {
		case <-cl.done:
			return cl.art, cl.err
		case <-ctx.Done():
			return Artifact{}, ctx.Err()
		}
	}

	cl := &call{done: make(chan struct{})}
	c.calls[key] = cl
	c.mu.Unlock()

	cl.art, cl.err = c.render(key, render)
	close(cl.done)

	if cl.err != nil {
		c.mu.Lock()
		delete(c.calls, key)
		c.mu.Unlock()
	}
	return cl.art, cl.err
}

// render stages the output under a throwaway name and commits it to the
// deterministic path only on success.
func (c *Cache) render(key string, render func(dst string) error) (Artifact, error) {
	staging := filepath.Join(c.dir, uuid.NewString()+filepath.Ext(key))

	if err := render(staging); err != nil {
		os.Remove(staging)
		return Artifact{}, err
	}

	final := filepath.Join(c.dir, key)
	if err := os.Rename(staging, final); err != nil {
		os.Remove(staging)
		return Artifact{}, fmt.Errorf("commit render %s: %w", key, err)
	}

	st, err := os.Stat(final)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat render %s: %w", key, err)
	}

	return Artifact{Path: final, ByteSize: st.Size()}, nil
}

// input returns the preferred render input: the down-sampled
// intermediate when it exists, otherwise the original source.
func (c *Cache) input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intermediate != "" {
		return c.intermediate
	}
	return c.source
}
