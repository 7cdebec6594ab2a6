package images

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hikarilabs/sited/internal/store"
)

// allowedMIME lists the image formats accepted for upload. The type is
// sniffed from the payload, never trusted from the client.
var allowedMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Config holds storage settings for the image service.
type Config struct {
	// Root is the directory files are stored under.
	Root string
	// MaxBytes is the largest accepted upload.
	MaxBytes int64
}

// Service stores and serves uploaded images.
type Service struct {
	st       *store.Store
	root     string
	maxBytes int64
	logger   *zap.Logger
}

// NewService creates an image service rooted at cfg.Root, creating the
// directory if needed.
func NewService(st *store.Store, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("image root directory is required")
	}
	if cfg.MaxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be > 0")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("creating image root: %w", err)
	}
	return &Service{st: st, root: cfg.Root, maxBytes: cfg.MaxBytes, logger: logger}, nil
}

// Save reads an upload, validates type and size, and stores it. Uploads
// whose bytes are already stored return the existing record.
func (s *Service) Save(ctx context.Context, name string, r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnsupportedType)
	}

	mime := http.DetectContentType(data)
	if _, ok := allowedMIME[mime]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if existing, err := s.getBySHA(ctx, hash); err == nil {
		s.logger.Debug("duplicate image upload",
			zap.String("image.id", existing.ID),
			zap.String("image.sha256", hash))
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.writeFile(hash, data); err != nil {
		return nil, err
	}

	img := &Image{
		ID:        uuid.NewString(),
		Name:      name,
		MIME:      mime,
		Size:      int64(len(data)),
		SHA256:    hash,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.st.DB().ExecContext(ctx, `
		INSERT INTO images (id, name, mime, size, sha256, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha256) DO NOTHING`,
		img.ID, img.Name, img.MIME, img.Size, img.SHA256, img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Another upload with the same bytes won the insert.
		return s.getBySHA(ctx, hash)
	}

	s.logger.Info("image stored",
		zap.String("image.id", img.ID),
		zap.String("image.mime", img.MIME),
		zap.Int64("image.size", img.Size))
	return img, nil
}

// Get returns an image's metadata by ID.
func (s *Service) Get(ctx context.Context, id string) (*Image, error) {
	row := s.st.DB().QueryRowContext(ctx, `
		SELECT id, name, mime, size, sha256, created_at
		FROM images WHERE id = ?`, id)
	return scanImage(row)
}

// Open returns the stored bytes alongside the metadata. The caller must
// close the reader.
func (s *Service) Open(ctx context.Context, id string) (io.ReadCloser, *Image, error) {
	img, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.path(img.SHA256))
	if err != nil {
		return nil, nil, fmt.Errorf("opening image file: %w", err)
	}
	return f, img, nil
}

// List returns all stored images, newest first.
func (s *Service) List(ctx context.Context) ([]*Image, error) {
	rows, err := s.st.DB().QueryContext(ctx, `
		SELECT id, name, mime, size, sha256, created_at
		FROM images ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var out []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// Delete removes an image's metadata and its file.
func (s *Service) Delete(ctx context.Context, id string) error {
	img, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.st.DB().ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if err := os.Remove(s.path(img.SHA256)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("removing image file",
			zap.String("image.id", id),
			zap.Error(err))
	}
	return nil
}

func (s *Service) getBySHA(ctx context.Context, hash string) (*Image, error) {
	row := s.st.DB().QueryRowContext(ctx, `
		SELECT id, name, mime, size, sha256, created_at
		FROM images WHERE sha256 = ?`, hash)
	return scanImage(row)
}

// path maps a hash to its file, sharded by the first two hex digits so a
// single directory never holds every image.
func (s *Service) path(hash string) string {
	return filepath.Join(s.root, hash[:2], hash)
}

func (s *Service) writeFile(hash string, data []byte) error {
	dst := s.path(hash)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing image file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing image file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing image file: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*Image, error) {
	var img Image
	err := row.Scan(&img.ID, &img.Name, &img.MIME, &img.Size, &img.SHA256, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning image: %w", err)
	}
	return &img, nil
}
