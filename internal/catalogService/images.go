package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"farmerconnect/internal/marketerrors"
	"farmerconnect/utils"

	"github.com/disintegration/imaging"
)

const (
	// MaxImageBytes caps a single product image upload
	MaxImageBytes = 5 << 20
	// MaxImagesPerProduct caps the gallery of one product
	MaxImagesPerProduct = 5

	thumbnailWidth = 300
)

// ImageStore writes product images and their thumbnails under a root
// directory served at URLPrefix
type ImageStore struct {
	root      string
	URLPrefix string
}

// NewImageStore creates an ImageStore rooted at dir
func NewImageStore(dir string) *ImageStore {
	return &ImageStore{root: dir, URLPrefix: "/uploads"}
}

// Root returns the directory images are written under
func (s *ImageStore) Root() string {
	return s.root
}

// StoredImage locates a saved original and its thumbnail
type StoredImage struct {
	ID           string
	URL          string
	ThumbnailURL string
	paths        []string
}

// Save decodes the upload, writes it plus a 300px wide thumbnail and returns
// their public URLs
func (s *ImageStore) Save(productID string, r io.Reader) (StoredImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return StoredImage{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return StoredImage{}, fmt.Errorf("%w: limit is %d bytes", marketerrors.ErrImageTooLarge, MaxImageBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: %v", marketerrors.ErrUnsupportedImage, err)
	}

	id := utils.GenerateID()
	fileName := id + ".jpg"
	dir := filepath.Join(s.root, "products", productID)
	thumbDir := filepath.Join(dir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return StoredImage{}, fmt.Errorf("create upload directory: %w", err)
	}

	originalPath := filepath.Join(dir, fileName)
	thumbnailPath := filepath.Join(thumbDir, fileName)

	if err := imaging.Save(img, originalPath); err != nil {
		return StoredImage{}, fmt.Errorf("save original image: %w", err)
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, thumbnailPath); err != nil {
		_ = os.Remove(originalPath)
		return StoredImage{}, fmt.Errorf("save thumbnail: %w", err)
	}

	base := path.Join(s.URLPrefix, "products", productID)
	return StoredImage{
		ID:           id,
		URL:          path.Join(base, fileName),
		ThumbnailURL: path.Join(base, "thumb", fileName),
		paths:        []string{originalPath, thumbnailPath},
	}, nil
}

// Discard removes the files of an image that could not be attached
func (s *ImageStore) Discard(img StoredImage) {
	for _, p := range img.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			utils.Warn("ImageStore: failed to remove file", map[string]any{"path": p, "error": err.Error()})
		}
	}
}
