package filetool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meow-stack/stageflow/internal/pathsecurity"
	"github.com/meow-stack/stageflow/internal/types"
)

func newTestTool(t *testing.T) (*FileReadTool, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool, err := NewFileReadTool(dir, pathsecurity.Config{})
	if err != nil {
		t.Fatalf("NewFileReadTool returned error: %v", err)
	}
	return tool, dir
}

func TestRunToolReadsFile(t *testing.T) {
	tool, _ := newTestTool(t)
	res, err := tool.RunTool(context.Background(), types.ExecutionInput{Content: "hello.txt"})
	if err != nil {
		t.Fatalf("RunTool returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if res.Output != "hello world" {
		t.Fatalf("Output = %q", res.Output)
	}
}

func TestRunToolRejectsTraversal(t *testing.T) {
	tool, _ := newTestTool(t)
	res, err := tool.RunTool(context.Background(), types.ExecutionInput{Content: "../etc/passwd"})
	if err != nil {
		t.Fatalf("RunTool returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for traversal attempt")
	}
}

func TestRunToolRejectsMissingFile(t *testing.T) {
	tool, _ := newTestTool(t)
	res, err := tool.RunTool(context.Background(), types.ExecutionInput{Content: "missing.txt"})
	if err != nil {
		t.Fatalf("RunTool returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for missing file")
	}
}

func TestRunToolRejectsOversizedFile(t *testing.T) {
	tool, dir := newTestTool(t)
	tool.MaxFileSize = 4
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), []byte("way too big"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := tool.RunTool(context.Background(), types.ExecutionInput{Content: "big.txt"})
	if err != nil {
		t.Fatalf("RunTool returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for oversized file")
	}
}

func TestBufSizeForFileSizeEscalates(t *testing.T) {
	cases := []struct {
		size int64
		want int
	}{
		{500, 0},
		{2 * largeFileThreshold, bufSizeTiny},
		{8 * largeFileThreshold, bufSizeSmall},
		{32 * largeFileThreshold, bufSizeMedium},
		{100 * largeFileThreshold, bufSizeLarge},
	}
	for _, c := range cases {
		if got := bufSizeForFileSize(c.size); got != c.want {
			t.Errorf("bufSizeForFileSize(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestRunToolReadsLargeFileAcrossBufferBoundary(t *testing.T) {
	tool, dir := newTestTool(t)
	tool.MaxFileSize = 5 << 20
	content := strings.Repeat("x", largeFileThreshold+1024)
	if err := os.WriteFile(filepath.Join(dir, "large.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := tool.RunTool(context.Background(), types.ExecutionInput{Content: "large.txt"})
	if err != nil {
		t.Fatalf("RunTool returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	if len(res.Output) != len(content) {
		t.Fatalf("Output length = %d, want %d", len(res.Output), len(content))
	}
}
