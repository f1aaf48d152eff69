// Package uploads stores message image attachments on local disk.
package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"chat-backend/internal/apperr"
	"chat-backend/internal/config"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store writes attachments under <dir>/messages.
type Store struct {
	dir      string
	prefix   string
	maxBytes int64
	now      func() time.Time
}

func NewStore(cfg config.UploadConfig) (*Store, error) {
	dir := filepath.Join(cfg.Dir, "messages")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	prefix := strings.TrimRight(cfg.URLPrefix, "/") + "/messages"
	return &Store{dir: dir, prefix: prefix, maxBytes: cfg.MaxBytes, now: time.Now}, nil
}

// Dir is the directory served for message attachments.
func (s *Store) Dir() string { return s.dir }

// URLPrefix is the public path Dir is mounted on.
func (s *Store) URLPrefix() string { return s.prefix }

// URL is the public path of a stored file.
func (s *Store) URL(name string) string { return s.prefix + "/" + name }

// SaveMessageImage validates and stores an uploaded image for userID and
// returns the stored file name. The type is sniffed from content, not trusted
// from the client.
func (s *Store) SaveMessageImage(userID string, header *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return "", apperr.Invalid("File too large")
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("detect upload type: %w", err)
	}
	ext, ok := allowedImageTypes[mtype.String()]
	if !ok {
		return "", apperr.Invalid("Invalid file type")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := fmt.Sprintf("msg_%s_%d_%s%s", sanitize(userID), s.now().Unix(), uuid.NewString()[:8], ext)
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	limit := s.maxBytes
	if limit <= 0 {
		limit = header.Size
	}
	written, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = apperr.Invalid("File too large")
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		if _, ok := apperr.IsValidation(err); ok {
			return "", err
		}
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

// Reference validates a public image path sent by userID. Only files that
// exist in the upload area and were uploaded by userID are accepted.
func (s *Store) Reference(userID, publicPath string) (string, error) {
	clean := path.Clean(publicPath)
	name := strings.TrimPrefix(clean, s.prefix+"/")
	if name == clean || name == "" || strings.Contains(name, "/") ||
		!strings.HasPrefix(name, "msg_"+sanitize(userID)+"_") {
		return "", apperr.Invalid("Invalid image path")
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil || !info.Mode().IsRegular() {
		return "", apperr.Invalid("Invalid image path")
	}
	return s.URL(name), nil
}

// Remove deletes a stored file; used when the message insert fails after upload.
func (s *Store) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid upload name %q", name)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return '_'
	}, id)
}
