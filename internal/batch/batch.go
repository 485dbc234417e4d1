package batch

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sitelens/photo-ingest/pkg/s3client"
)

// File is one photo selected for ingestion, in batch order.
type File struct {
	Path string
	Size int64
}

// Open returns a reader over the file contents.
func (f File) Open() (io.ReadCloser, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", f.Path)
	}
	return r, nil
}

// Collect resolves CLI arguments into an ordered list of image files.
// Plain file arguments keep their command-line order; directories are
// walked recursively and contribute their images in lexical path order.
// Non-image files are skipped at selection time, not treated as errors.
func Collect(ctx context.Context, args []string) ([]File, error) {
	if len(args) == 0 {
		return nil, eris.New("batch: no input files given")
	}

	var files []File
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: stat %s", arg)
		}

		if info.IsDir() {
			dirFiles, err := collectDir(ctx, arg)
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
			continue
		}

		if !s3client.IsImageFile(arg) {
			zap.L().Warn("skipping non-image file", zap.String("path", arg))
			continue
		}
		files = append(files, File{Path: arg, Size: info.Size()})
	}

	return files, nil
}

func collectDir(ctx context.Context, dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !s3client.IsImageFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			zap.L().Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}
		files = append(files, File{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "batch: walk %s", dir)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
