// Package storage keeps uploaded cover images on local disk.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"folio/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// URLPrefix is the public path under which stored blobs are served.
	URLPrefix = "/media/"

	DefaultMaxUploadMB = 10
	CoverMaxEdge       = 1600
	WebPQuality        = 80
)

// BlobStore persists binary objects and hands back a public URL.
type BlobStore interface {
	Put(ctx context.Context, owner uint, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
	// Owns reports whether url names a stored blob that owner uploaded.
	Owns(ctx context.Context, url string, owner uint) (bool, error)
}

// LocalStore is a content-addressed BlobStore rooted at a directory.
type LocalStore struct {
	root     string
	maxBytes int64
}

// NewLocalStore creates a LocalStore under root. maxUploadMB <= 0 selects the default.
func NewLocalStore(root string, maxUploadMB int) (*LocalStore, error) {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultMaxUploadMB
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStore{root: root, maxBytes: int64(maxUploadMB) * 1024 * 1024}, nil
}

// Root returns the directory blobs are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// Put validates and normalises an uploaded cover, then stores it as WebP.
// Identical uploads by the same owner land on the same URL.
func (s *LocalStore) Put(ctx context.Context, owner uint, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(data)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	encoded, err := ProcessCover(data, contentType)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", models.NewTransientError(err)
	}

	name := blobName(owner, encoded)
	if err := writeAtomic(filepath.Join(s.root, name), encoded); err != nil {
		return "", models.NewInternalError(err)
	}
	return URLPrefix + name, nil
}

// Delete removes the blob behind url. URLs this store did not issue and
// blobs that are already gone are ignored.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || !isValidBlobName(name) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return models.NewInternalError(err)
	}
	return nil
}

// Owns re-derives the blob name from the stored bytes and owner, so a name
// only matches for the account that uploaded it. Missing blobs are not owned.
func (s *LocalStore) Owns(_ context.Context, url string, owner uint) (bool, error) {
	name, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || !isValidBlobName(name) {
		return false, nil
	}
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return blobName(owner, data) == name, nil
}

// ProcessCover sniffs, decodes, bounds and re-encodes an image to WebP.
func ProcessCover(data []byte, contentType string) ([]byte, error) {
	detected := http.DetectContentType(data)
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	bounded := resizeToFit(decoded, CoverMaxEdge, CoverMaxEdge)
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, bounded, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func blobName(owner uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", owner)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil)) + ".webp"
}

// isValidBlobName accepts only names blobName produces, which keeps Delete
// inside the root.
func isValidBlobName(name string) bool {
	hash, ok := strings.CutSuffix(name, ".webp")
	if !ok || len(hash) != sha256.Size*2 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p, d := normalizeContentType(provided), normalizeContentType(detected)
	return p == d || (p == "image/jpg" && d == "image/jpeg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
