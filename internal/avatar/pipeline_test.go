package avatar_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-contacts/internal/avatar"
	"github.com/hugh/go-contacts/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	urls map[uuid.UUID]string
	err  error
}

func (f *fakeUpdater) UpdateAvatarURL(_ context.Context, userID uuid.UUID, url string) error {
	if f.err != nil {
		return f.err
	}
	if f.urls == nil {
		f.urls = make(map[uuid.UUID]string)
	}
	f.urls[userID] = url
	return nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type pipelineFixture struct {
	pipeline  *avatar.Pipeline
	storage   *avatar.LocalStorage
	updater   *fakeUpdater
	publicDir string
	tmpDir    string
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	publicDir := t.TempDir()
	tmpDir := filepath.Join(t.TempDir(), "tmp")

	storage, err := avatar.NewLocalStorage(publicDir)
	require.NoError(t, err)

	updater := &fakeUpdater{}
	p, err := avatar.NewPipeline(storage, updater, tmpDir, util.DiscardLogger())
	require.NoError(t, err)

	return &pipelineFixture{
		pipeline:  p,
		storage:   storage,
		updater:   updater,
		publicDir: publicDir,
		tmpDir:    tmpDir,
	}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcess_ResizesAndStores(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	url, err := f.pipeline.Process(context.Background(), userID, avatar.Upload{
		Filename: "me.PNG",
		Body:     bytes.NewReader(testPNG(t, 400, 300)),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/avatars/"+userID.String()+"_"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.Equal(t, url, f.updater.urls[userID])

	stored, err := os.Open(filepath.Join(f.publicDir, "avatars", strings.TrimPrefix(url, "/avatars/")))
	require.NoError(t, err)
	defer stored.Close()

	cfg, err := png.DecodeConfig(stored)
	require.NoError(t, err)
	assert.Equal(t, avatar.Size, cfg.Width)
	assert.Equal(t, avatar.Size, cfg.Height)

	assertDirEmpty(t, f.tmpDir)
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name    string
		upload  avatar.Upload
		wantErr error
	}{
		{
			name:    "missing body",
			upload:  avatar.Upload{Filename: "a.png"},
			wantErr: avatar.ErrMissingFile,
		},
		{
			name:    "missing filename",
			upload:  avatar.Upload{Body: bytes.NewReader([]byte("x"))},
			wantErr: avatar.ErrMissingFile,
		},
		{
			name:    "unknown extension",
			upload:  avatar.Upload{Filename: "notes.txt", Body: bytes.NewReader([]byte("hello"))},
			wantErr: avatar.ErrUnsupportedImage,
		},
		{
			name:    "corrupt image",
			upload:  avatar.Upload{Filename: "broken.png", Body: bytes.NewReader([]byte("not a png"))},
			wantErr: avatar.ErrUnsupportedImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.pipeline.Process(context.Background(), uuid.New(), tt.upload)
			assert.ErrorIs(t, err, tt.wantErr)

			assertDirEmpty(t, f.tmpDir)
			assertDirEmpty(t, filepath.Join(f.publicDir, "avatars"))
		})
	}
}

func TestProcess_RejectsOversizedDimensions(t *testing.T) {
	f := newFixture(t)

	// A flat image compresses to a few bytes whatever its declared size.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, avatar.MaxDimension+1, 8))))

	_, err := f.pipeline.Process(context.Background(), uuid.New(), avatar.Upload{
		Filename: "wide.png",
		Body:     bytes.NewReader(buf.Bytes()),
	})
	assert.ErrorIs(t, err, avatar.ErrImageTooLarge)
	assert.Empty(t, f.updater.urls)

	assertDirEmpty(t, f.tmpDir)
	assertDirEmpty(t, filepath.Join(f.publicDir, "avatars"))
}

func TestProcess_AcceptsMaxDimension(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, avatar.MaxDimension, 4))))

	_, err := f.pipeline.Process(context.Background(), uuid.New(), avatar.Upload{
		Filename: "edge.png",
		Body:     bytes.NewReader(buf.Bytes()),
	})
	assert.NoError(t, err)
}

func TestProcess_UpdateFailureRemovesStoredFile(t *testing.T) {
	f := newFixture(t)
	f.updater.err = errors.New("db down")

	_, err := f.pipeline.Process(context.Background(), uuid.New(), avatar.Upload{
		Filename: "me.png",
		Body:     bytes.NewReader(testPNG(t, 50, 50)),
	})
	require.Error(t, err)

	assertDirEmpty(t, f.tmpDir)
	assertDirEmpty(t, filepath.Join(f.publicDir, "avatars"))
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	storage, err := avatar.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	keptURL, err := storage.Put(ctx, "kept.png", bytes.NewReader([]byte("a")), "image/png")
	require.NoError(t, err)
	_, err = storage.Put(ctx, "orphan.png", bytes.NewReader([]byte("b")), "image/png")
	require.NoError(t, err)

	inUse := map[string]struct{}{keptURL: {}}

	// Nothing is old enough yet.
	removed, err := avatar.Sweep(ctx, storage, inUse, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = avatar.Sweep(ctx, storage, inUse, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	objects, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "kept.png", objects[0].Key)
	assert.Equal(t, keptURL, objects[0].URL)
}

func TestLocalStorage_DeleteMissingIsNoop(t *testing.T) {
	storage, err := avatar.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, storage.Delete(context.Background(), "nope.png"))
}
