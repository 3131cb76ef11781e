package images

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/FACorreiaa/go-pokedex-api/config"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// extensions fixes the probe order when looking up a stored image.
var extensions = []string{"png", "jpg", "jpeg", "gif"}

// Store keeps at most one image per creature, named creature_{id}.{ext}.
type Store struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
}

func NewStore(fs afero.Fs, cfg config.StorageConfig) (*Store, error) {
	if err := fs.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating upload dir %s: %w", cfg.UploadDir, err)
	}
	return &Store{fs: fs, dir: cfg.UploadDir, maxBytes: cfg.MaxUploadBytes}, nil
}

func fileName(creatureID int, ext string) string {
	return fmt.Sprintf("creature_%d.%s", creatureID, ext)
}

// Extension validates an upload's declared content type and original name
// and returns the normalised extension.
func Extension(contentType, originalName string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: content type %q is not an image", api.ErrInvalidImage, contentType)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if _, ok := contentTypes[ext]; !ok {
		return "", fmt.Errorf("%w: extension %q not allowed", api.ErrInvalidImage, ext)
	}
	return ext, nil
}

// Save writes the image and removes any earlier image of the creature stored
// under another extension. It returns the file name and the bytes written.
func (s *Store) Save(creatureID int, ext string, src io.Reader) (string, int64, error) {
	name := fileName(creatureID, ext)

	// each upload writes its own temp file; only the rename publishes it
	f, err := afero.TempFile(s.fs, s.dir, name+".*.tmp")
	if err != nil {
		return "", 0, api.StorageError("create image", err)
	}
	tmp := f.Name()

	limit := s.maxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	n, err := io.Copy(f, io.LimitReader(src, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tmp)
		return "", 0, api.StorageError("write image", err)
	}
	if n == 0 {
		_ = s.fs.Remove(tmp)
		return "", 0, fmt.Errorf("%w: file is empty", api.ErrInvalidImage)
	}
	if n > limit {
		_ = s.fs.Remove(tmp)
		return "", 0, fmt.Errorf("%w: file exceeds %d bytes", api.ErrInvalidImage, limit)
	}

	for _, other := range extensions {
		if other == ext {
			continue
		}
		if err = s.fs.Remove(filepath.Join(s.dir, fileName(creatureID, other))); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = s.fs.Remove(tmp)
			return "", 0, api.StorageError("remove previous image", err)
		}
	}
	if err = s.fs.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return "", 0, api.StorageError("move image", err)
	}
	return name, n, nil
}

// Open returns the stored image and its content type, or api.ErrNotFound.
func (s *Store) Open(creatureID int) (afero.File, string, error) {
	for _, ext := range extensions {
		f, err := s.fs.Open(filepath.Join(s.dir, fileName(creatureID, ext)))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", api.StorageError("open image", err)
		}
		return f, contentTypes[ext], nil
	}
	return nil, "", fmt.Errorf("image of creature %d: %w", creatureID, api.ErrNotFound)
}

// Remove deletes every stored image of the creature and reports whether
// there was one.
func (s *Store) Remove(creatureID int) (bool, error) {
	removed := false
	for _, ext := range extensions {
		err := s.fs.Remove(filepath.Join(s.dir, fileName(creatureID, ext)))
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, api.StorageError("remove image", err)
		}
	}
	return removed, nil
}
