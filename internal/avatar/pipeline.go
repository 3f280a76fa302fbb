package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	// Size is the edge length of a stored avatar in pixels.
	Size = 250

	// MaxDimension bounds the width and height an upload may declare.
	MaxDimension = 4096
)

var (
	ErrMissingFile      = errors.New("avatar file is required")
	ErrUnsupportedImage = errors.New("unsupported image")
	ErrImageTooLarge    = errors.New("image dimensions too large")
)

// AvatarUpdater persists the new avatar URL on the owning user.
type AvatarUpdater interface {
	UpdateAvatarURL(ctx context.Context, userID uuid.UUID, url string) error
}

// Upload is a single file received from a multipart form.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Pipeline turns an uploaded image into a stored 250x250 avatar.
type Pipeline struct {
	storage Storage
	users   AvatarUpdater
	tmpDir  string
	logger  *slog.Logger
}

func NewPipeline(storage Storage, users AvatarUpdater, tmpDir string, logger *slog.Logger) (*Pipeline, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating tmp dir: %w", err)
	}
	return &Pipeline{
		storage: storage,
		users:   users,
		tmpDir:  tmpDir,
		logger:  logger,
	}, nil
}

// Process stores the upload and points the user's avatar at it. The temp copy
// is removed on every path.
func (p *Pipeline) Process(ctx context.Context, userID uuid.UUID, upload Upload) (string, error) {
	if upload.Body == nil || upload.Filename == "" {
		return "", ErrMissingFile
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}

	name := uuid.NewString() + ext
	tmpPath := filepath.Join(p.tmpDir, name)

	tmp, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer p.removeTemp(tmpPath)

	_, copyErr := io.Copy(tmp, upload.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		return "", fmt.Errorf("writing temp file: %w", copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := checkDimensions(tmpPath); err != nil {
		return "", err
	}

	img, err := imaging.Open(tmpPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	resized := imaging.Resize(img, Size, Size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return "", fmt.Errorf("encoding avatar: %w", err)
	}

	key := userID.String() + "_" + name
	url, err := p.storage.Put(ctx, key, bytes.NewReader(buf.Bytes()), mime.TypeByExtension(ext))
	if err != nil {
		return "", err
	}

	if err := p.users.UpdateAvatarURL(ctx, userID, url); err != nil {
		if delErr := p.storage.Delete(ctx, key); delErr != nil {
			p.logger.Warn("failed to remove orphaned avatar", "key", key, "error", delErr)
		}
		return "", err
	}

	p.logger.Info("avatar updated", "user_id", userID, "url", url)
	return url, nil
}

// checkDimensions reads only the image header so oversized images are
// rejected before their pixels are allocated.
func checkDimensions(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening temp file: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}

func (p *Pipeline) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("failed to remove temp upload", "path", path, "error", err)
	}
}

// Sweep deletes stored avatars that no user references and that are older
// than cutoff. It returns the number of objects removed.
func Sweep(ctx context.Context, storage Storage, inUse map[string]struct{}, cutoff time.Time) (int, error) {
	objects, err := storage.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, obj := range objects {
		if _, ok := inUse[obj.URL]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		if err := storage.Delete(ctx, obj.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
