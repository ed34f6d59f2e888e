package audiostore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestSaveAndResolve(t *testing.T) {
	fs := tempFS(t)

	url, err := fs.Save(".webm", []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, URLPrefix) {
		t.Fatalf("url = %q, want %s prefix", url, URLPrefix)
	}
	if !strings.HasSuffix(url, ".webm") {
		t.Errorf("url = %q, want .webm suffix", url)
	}

	abs, err := fs.Resolve(strings.TrimPrefix(url, URLPrefix))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestSaveNormalizesExtension(t *testing.T) {
	fs := tempFS(t)
	url, err := fs.Save("mp3", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(url, ".mp3") {
		t.Errorf("url = %q, want .mp3 suffix", url)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	fs := tempFS(t)
	if _, err := fs.Save(".webm", []byte("x")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(fs.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".voxnote-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	fs := tempFS(t)
	for _, name := range []string{"", "../etc/passwd", "a/b.webm", ".."} {
		if _, err := fs.Resolve(name); err == nil {
			t.Errorf("Resolve(%q) accepted unsafe name", name)
		}
	}
}

func TestReleaseIdempotent(t *testing.T) {
	fs := tempFS(t)
	url, err := fs.Save(".webm", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := fs.Release(url); err != nil {
		t.Fatalf("first release: %v", err)
	}
	abs := filepath.Join(fs.Root(), strings.TrimPrefix(url, URLPrefix))
	if _, err := os.Stat(abs); !os.IsNotExist(err) {
		t.Error("blob still present after release")
	}
	if err := fs.Release(url); err != nil {
		t.Errorf("second release: %v", err)
	}
}

func TestReleaseSkipsInline(t *testing.T) {
	fs := tempFS(t)
	if err := fs.Release("data:audio/webm;base64,AAAA"); err != nil {
		t.Errorf("inline release: %v", err)
	}
}

func TestIsInline(t *testing.T) {
	if !IsInline("data:audio/webm;base64,AAAA") {
		t.Error("data URL not detected as inline")
	}
	if IsInline("/uploads/abc.webm") {
		t.Error("stored URL misdetected as inline")
	}
}
