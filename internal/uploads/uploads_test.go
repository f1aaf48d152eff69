package uploads

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chat-backend/internal/apperr"
	"chat-backend/internal/config"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	w.Close()

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["image"][0]
}

func newStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := NewStore(config.UploadConfig{Dir: t.TempDir(), URLPrefix: "/uploads/", MaxBytes: maxBytes})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestSaveMessageImage(t *testing.T) {
	s := newStore(t, 1024)

	name, err := s.SaveMessageImage("user-1", fileHeader(t, "photo.txt", pngHeader))
	if err != nil {
		t.Fatalf("SaveMessageImage: %v", err)
	}
	if !strings.HasPrefix(name, "msg_user-1_1700000000_") || !strings.HasSuffix(name, ".png") {
		t.Errorf("unexpected name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir(), name))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Error("stored content differs from upload")
	}
	if got := s.URL(name); got != "/uploads/messages/"+name {
		t.Errorf("URL = %q", got)
	}
}

func TestSaveMessageImageRejectsNonImage(t *testing.T) {
	s := newStore(t, 1024)

	_, err := s.SaveMessageImage("u", fileHeader(t, "evil.png", []byte("#!/bin/sh\necho hi\n")))
	ve, ok := apperr.IsValidation(err)
	if !ok || ve.Errors[0] != "Invalid file type" {
		t.Fatalf("expected invalid file type, got %v", err)
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("expected no stored files, got %d", len(entries))
	}
}

func TestSaveMessageImageTooLarge(t *testing.T) {
	s := newStore(t, 16)

	_, err := s.SaveMessageImage("u", fileHeader(t, "big.png", pngHeader))
	ve, ok := apperr.IsValidation(err)
	if !ok || ve.Errors[0] != "File too large" {
		t.Fatalf("expected file too large, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := newStore(t, 1024)
	name, err := s.SaveMessageImage("u", fileHeader(t, "a.png", pngHeader))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(name); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(name); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if err := s.Remove("../escape.png"); err == nil {
		t.Error("expected error for path outside upload dir")
	}
}

func TestReference(t *testing.T) {
	s := newStore(t, 1024)
	name, err := s.SaveMessageImage("alice-1", fileHeader(t, "a.png", pngHeader))
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Reference("alice-1", "/uploads/messages/../messages/"+name)
	if err != nil {
		t.Fatalf("Reference own upload: %v", err)
	}
	if got != s.URL(name) {
		t.Errorf("Reference = %q, want %q", got, s.URL(name))
	}

	rejected := []struct {
		name   string
		userID string
		path   string
	}{
		{name: "other user", userID: "bob-2", path: s.URL(name)},
		{name: "missing file", userID: "alice-1", path: s.URL("msg_alice-1_1700000000_deadbeef.png")},
		{name: "outside upload area", userID: "alice-1", path: "/etc/passwd"},
		{name: "directory", userID: "alice-1", path: "/uploads/messages"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Reference(tt.userID, tt.path)
			if _, ok := apperr.IsValidation(err); !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
