package surface

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipview/internal/document"
	"flipview/internal/pdftest"
	"flipview/internal/viewer"
)

const pageContent = "BT /F1 12 Tf 72 720 Td (Headline) Tj ET"

func TestPDFProvider_RequestSurface(t *testing.T) {
	data := pdftest.Build(pdftest.Options{Pages: 3, Width: 600, Height: 800, Content: pageContent})
	p, err := NewPDFProvider(data, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 3, p.Pages())

	surf, err := p.RequestSurface(context.Background(), 1, 400, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, surf.Page)
	assert.InDelta(t, 400, surf.HeightPx, 1e-9)
	assert.InDelta(t, 300, surf.WidthPx, 1e-9)
	assert.Equal(t, 2.0, surf.Density)
	assert.Equal(t, viewer.Size{Width: 600, Height: 800}, surf.PageSize)
	assert.Equal(t, int64(len(pageContent)), surf.ContentBytes)
}

func TestOpen_ReadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edition.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Simple(6, 600, 800, 0), 0o644))

	meta, p, err := Open(context.Background(), nil, path, nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 6, meta.TotalPages)
	assert.Equal(t, "edition", meta.Title)
	assert.Equal(t, path, p.Source())
	assert.Equal(t, meta.TotalPages, p.Pages())

	_, _, err = Open(context.Background(), nil, filepath.Join(t.TempDir(), "missing.pdf"), nil)
	assert.Error(t, err)
}

func TestPDFProvider_RotatedPage(t *testing.T) {
	p, err := NewPDFProvider(pdftest.Simple(1, 600, 800, 270), nil)
	require.NoError(t, err)
	defer p.Close()

	surf, err := p.RequestSurface(context.Background(), 0, 300, 1)
	require.NoError(t, err)
	assert.Equal(t, 270, surf.Rotate)
	assert.InDelta(t, 400, surf.WidthPx, 1e-9)
	assert.Zero(t, surf.ContentBytes)
}

func TestPDFProvider_Errors(t *testing.T) {
	_, err := NewPDFProvider([]byte("plain text"), nil)
	assert.ErrorIs(t, err, document.ErrNotPDF)

	p, err := NewPDFProvider(pdftest.Simple(2, 600, 800, 0), nil)
	require.NoError(t, err)

	_, err = p.RequestSurface(context.Background(), 2, 100, 1)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = p.RequestSurface(context.Background(), 0, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.RequestSurface(ctx, 0, 100, 1)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, err = p.RequestSurface(context.Background(), 0, 100, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDedup_CollapsesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	slow := viewer.PageSurfaceProviderFunc(func(ctx context.Context, page int, h, d float64) (viewer.Surface, error) {
		calls.Add(1)
		<-release
		return viewer.Surface{Page: page, HeightPx: h, Density: d}, nil
	})
	d := NewDedup(slow)

	var wg sync.WaitGroup
	results := make([]viewer.Surface, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := d.RequestSurface(context.Background(), 4, 500, 1)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	// Let the callers pile up behind the first one.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	for _, s := range results {
		assert.Equal(t, 4, s.Page)
	}
}

func TestDedup_DistinctKeysAndErrors(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("decode error")
	d := NewDedup(viewer.PageSurfaceProviderFunc(func(ctx context.Context, page int, h, d float64) (viewer.Surface, error) {
		calls.Add(1)
		if page == 1 {
			return viewer.Surface{}, boom
		}
		return viewer.Surface{Page: page, Density: d}, nil
	}))

	s1, err := d.RequestSurface(context.Background(), 0, 500, 1)
	require.NoError(t, err)
	s2, err := d.RequestSurface(context.Background(), 0, 500, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s1.Density)
	assert.Equal(t, 2.0, s2.Density)

	_, err = d.RequestSurface(context.Background(), 1, 500, 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDedup_CallerCancelDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	d := NewDedup(viewer.PageSurfaceProviderFunc(func(ctx context.Context, page int, h, d float64) (viewer.Surface, error) {
		calls.Add(1)
		<-release
		if err := ctx.Err(); err != nil {
			return viewer.Surface{}, err
		}
		return viewer.Surface{Page: page, HeightPx: h, Density: d}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := d.RequestSurface(ctx, 2, 500, 1)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		surf viewer.Surface
		err  error
	}
	second := make(chan result, 1)
	go func() {
		s, err := d.RequestSurface(context.Background(), 2, 500, 1)
		second <- result{s, err}
	}()
	// Give the second caller time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.surf.Page)
	assert.Equal(t, int32(1), calls.Load())
}
