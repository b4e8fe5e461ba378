package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalemusser/waffle/pantry/storage"
)

func TestRemove_Local(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "group_work", "4", "abc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(context.Background(), Config{Type: TypeLocal, LocalPath: root})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := Remove(ctx, s, "/group_work/4/abc/report.pdf"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if err := Remove(ctx, s, "group_work/4/abc/report.pdf"); err != nil {
		t.Errorf("Remove of missing file: got %v, want nil", err)
	}
}

func TestRemove_RejectsBadPaths(t *testing.T) {
	mem := storage.NewMemory(storage.MemoryConfig{})
	for _, p := range []string{"", "../etc/passwd", "group_work/../../x"} {
		if err := Remove(context.Background(), mem, p); !errors.Is(err, storage.ErrInvalidPath) {
			t.Errorf("Remove(%q) = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := New(context.Background(), Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
	s, err := New(context.Background(), Config{Type: TypeLocal, LocalPath: t.TempDir()})
	if err != nil {
		t.Fatalf("New local failed: %v", err)
	}
	if s.Backend() != "local" {
		t.Errorf("backend = %q, want local", s.Backend())
	}
	if got := s.URL("group_work/1/a/b.pdf"); got != "/media/group_work/1/a/b.pdf" {
		t.Errorf("URL = %q", got)
	}
}

func TestSubmissionKey(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://bucket.s3.amazonaws.com/group_work/7/3f2a9c/old.pdf", "group_work/7/3f2a9c/report.pdf", true},
		{"https://bucket.s3.amazonaws.com/3f2a9c/old.pdf?X-Amz=1", "group_work/7/3f2a9c/report.pdf", true},
		{"report.pdf", "", false},
	}
	for _, tt := range tests {
		got, ok := SubmissionKey(7, tt.url, "report.pdf")
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("SubmissionKey(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsS3URL(t *testing.T) {
	if !IsS3URL("https://b.s3.amazonaws.com/x/y.pdf") {
		t.Error("expected S3 URL to be detected")
	}
	if IsS3URL("/media/group_work/1/a/b.pdf") {
		t.Error("expected local URL not to be detected as S3")
	}
}
