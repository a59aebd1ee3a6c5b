package attachment

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// pngHeader is a minimal valid PNG signature followed by padding so
// http.DetectContentType identifies the content as image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func writeTempImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestStage_DetectsPNG(t *testing.T) {
	dir := t.TempDir()
	src := writeTempImage(t, "photo.png", pngHeader)

	att, err := Stage(dir, src)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer att.Release()

	if att.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", att.MIMEType)
	}
	if att.Name != "photo.png" {
		t.Errorf("Name = %q, want photo.png", att.Name)
	}
	if _, err := os.Stat(att.StagedPath()); err != nil {
		t.Errorf("staged copy missing: %v", err)
	}
}

func TestStage_ExtensionFallbackForWebP(t *testing.T) {
	// Content sniffing may not identify every format; extension fallback
	// covers the supported image types.
	dir := t.TempDir()
	src := writeTempImage(t, "pic.webp", []byte{0x00, 0x01, 0x02, 0x03})

	att, err := Stage(dir, src)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer att.Release()

	if att.MIMEType != "image/webp" {
		t.Errorf("MIMEType = %q, want image/webp", att.MIMEType)
	}
}

func TestStage_RejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	src := writeTempImage(t, "notes.txt", []byte("plain text, definitely not an image"))

	if _, err := Stage(dir, src); !errors.Is(err, ErrNotImage) {
		t.Errorf("Stage on text file = %v, want ErrNotImage", err)
	}
}

func TestStage_MissingFile(t *testing.T) {
	if _, err := Stage(t.TempDir(), filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("Stage on missing file should fail")
	}
}

func TestStage_SurvivesSourceRemoval(t *testing.T) {
	dir := t.TempDir()
	src := writeTempImage(t, "gone.png", pngHeader)

	att, err := Stage(dir, src)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer att.Release()

	if err := os.Remove(src); err != nil {
		t.Fatalf("removing source: %v", err)
	}

	payload, err := att.Encode()
	if err != nil {
		t.Fatalf("Encode after source removal: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
	if string(decoded) != string(pngHeader) {
		t.Error("payload bytes differ from source content")
	}
}

func TestEncode_AfterReleaseFails(t *testing.T) {
	dir := t.TempDir()
	att, err := Stage(dir, writeTempImage(t, "a.png", pngHeader))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	att.Release()
	if _, err := att.Encode(); !errors.Is(err, ErrReleased) {
		t.Errorf("Encode after Release = %v, want ErrReleased", err)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	dir := t.TempDir()
	att, err := Stage(dir, writeTempImage(t, "a.png", pngHeader))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	att.Release()
	att.Release() // must not panic or error
	if !att.Released() {
		t.Error("Released() = false after Release")
	}
	if _, err := os.Stat(att.StagedPath()); !os.IsNotExist(err) {
		t.Errorf("staged copy still present after Release: %v", err)
	}
}

func TestStage_NoLeaksAcrossAddRemove(t *testing.T) {
	// Staged files on disk must match live attachments at every step.
	dir := t.TempDir()
	var live []*Attachment

	countStaged := func() int {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir: %v", err)
		}
		return len(entries)
	}

	for i := 0; i < 5; i++ {
		att, err := Stage(dir, writeTempImage(t, "img.png", pngHeader))
		if err != nil {
			t.Fatalf("Stage %d: %v", i, err)
		}
		live = append(live, att)
		if got := countStaged(); got != len(live) {
			t.Fatalf("after add %d: %d staged files, %d attachments", i, got, len(live))
		}
	}

	for len(live) > 0 {
		live[0].Release()
		live = live[1:]
		if got := countStaged(); got != len(live) {
			t.Fatalf("after remove: %d staged files, %d attachments", got, len(live))
		}
	}
}
