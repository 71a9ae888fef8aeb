// Package fileops serves file:read requests from the UI.
package fileops

import (
	"os"
	"path/filepath"

	"github.com/hearthdesk/hearth/errors"
	"github.com/hearthdesk/hearth/pkg/models"
)

// DefaultMaxSize bounds file:read when the caller does not supply a limit.
const DefaultMaxSize = 10 * 1024 * 1024

// Read serves one file:read request. Relative paths resolve against the
// project path. Files larger than the limit fail with FILE_TOO_LARGE before
// any content is read.
func Read(req models.ReadFileRequest) (*models.ReadFileResult, error) {
	path := req.Path
	if !filepath.IsAbs(path) && req.ProjectPath != "" {
		path = filepath.Join(req.ProjectPath, path)
	}

	maxSize := req.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.FromOSError(err, path)
	}
	if info.Size() > maxSize {
		return nil, errors.FileTooLarge(path, info.Size(), maxSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FromOSError(err, path)
	}

	return &models.ReadFileResult{
		Content:  string(content),
		Path:     path,
		Size:     info.Size(),
		MimeType: MimeType(path),
	}, nil
}
