// Package filetool implements the file-read tool: a path-validated,
// size-bounded UTF-8 text reader exposed to agents as a types.Tool.
package filetool

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/meow-stack/stageflow/internal/pathsecurity"
	"github.com/meow-stack/stageflow/internal/stageerr"
	"github.com/meow-stack/stageflow/internal/types"
)

// Buffer sizes for the escalating-buffer read strategy used on files at or
// above largeFileThreshold.
const (
	largeFileThreshold = 1 << 20 // 1 MiB
	bufSizeTiny        = 1 << 10 // 1 KiB
	bufSizeSmall       = 4 << 10 // 4 KiB
	bufSizeMedium      = 8 << 10 // 8 KiB
	bufSizeLarge       = 16 << 10
)

// DefaultMaxFileSize bounds how large a file the tool will read.
const DefaultMaxFileSize = 10 << 20 // 10 MiB

// FileReadTool reads UTF-8 text files from within a validated base
// directory. It never reads outside the directory the Validator was
// constructed with.
type FileReadTool struct {
	Validator   *pathsecurity.Validator
	MaxFileSize int64
}

// NewFileReadTool builds a tool rooted at baseDir with DefaultMaxFileSize.
func NewFileReadTool(baseDir string, cfg pathsecurity.Config) (*FileReadTool, error) {
	v, err := pathsecurity.NewValidator(baseDir, cfg)
	if err != nil {
		return nil, stageerr.Wrap(stageerr.CodeResourceFatal, "filetool: failed to construct path validator", err)
	}
	return &FileReadTool{Validator: v, MaxFileSize: DefaultMaxFileSize}, nil
}

// ToolName implements types.Tool.
func (t *FileReadTool) ToolName() string { return "file_read" }

// ToolDescription implements types.Tool.
func (t *FileReadTool) ToolDescription() string {
	return "Reads a UTF-8 text file from the sandboxed working directory, given a relative path."
}

// RunTool implements types.Tool. input.Content is the relative path to read.
func (t *FileReadTool) RunTool(ctx context.Context, input types.ExecutionInput) (types.ExecutionResult, error) {
	res := t.Validator.Validate(input.Content)
	if !res.Valid {
		return types.NewFailure(res.Reason), nil
	}

	info, err := os.Stat(res.ResolvedPath)
	if err != nil {
		return types.NewFailure("file_read: " + err.Error()), nil
	}
	if info.IsDir() {
		return types.NewFailure("file_read: path is a directory"), nil
	}
	if info.Size() > t.MaxFileSize {
		return types.NewFailure("file_read: file exceeds the configured maximum size"), nil
	}

	f, err := os.Open(res.ResolvedPath)
	if err != nil {
		return types.NewFailure("file_read: " + err.Error()), nil
	}
	defer f.Close()

	content, err := readWithEscalatingBuffer(f, info.Size())
	if err != nil {
		return types.NewFailure("file_read: " + err.Error()), nil
	}

	return types.NewSuccessWithMetadata(string(content), map[string]any{
		"path": res.ResolvedPath,
		"size": info.Size(),
	}), nil
}

// readWithEscalatingBuffer reads the full file contents. Files at or above
// largeFileThreshold use a buffered reader whose buffer size is chosen in
// four steps by file size, rather than one buffer size for every read.
func readWithEscalatingBuffer(f *os.File, size int64) ([]byte, error) {
	bufSize := bufSizeForFileSize(size)
	if bufSize == 0 {
		return io.ReadAll(f)
	}
	r := bufio.NewReaderSize(f, bufSize)
	return io.ReadAll(r)
}

// bufSizeForFileSize returns 0 for files below largeFileThreshold (no
// buffering benefit at that size), else one of four escalating sizes.
func bufSizeForFileSize(size int64) int {
	if size < largeFileThreshold {
		return 0
	}
	switch {
	case size < 4*largeFileThreshold:
		return bufSizeTiny
	case size < 16*largeFileThreshold:
		return bufSizeSmall
	case size < 64*largeFileThreshold:
		return bufSizeMedium
	default:
		return bufSizeLarge
	}
}
