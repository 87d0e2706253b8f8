// Package filestore provides a resource backend reading from a local
// directory.
//
// Resource identifiers map directly onto paths below the configured root
// directory, so the identifier "trailers/clip.mp4" resolves to the file
// <root>/trailers/clip.mp4. Identifiers that escape the root after
// normalization are rejected before any filesystem access happens.
//
// The content type is taken from the file extension where possible. For
// files with unknown extensions the first bytes are sniffed once and the
// result is cached, keyed by path and modification time, so repeated
// requests for the same file do not reopen it.
package filestore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru"

	"github.com/rangd/rangd/pkg/handler"
)

const sniffCacheSize = 1024

// FileStore serves resources from a directory on the local file system.
type FileStore struct {
	// Root is the directory below which resources are resolved.
	Root string

	sniffCache *lru.Cache
}

// New creates a new file based resource store which reads files from the
// specified directory. The directory must exist, this function will not
// create it.
func New(root string) FileStore {
	cache, _ := lru.New(sniffCacheSize)
	return FileStore{
		Root:       root,
		sniffCache: cache,
	}
}

// Resolve looks up the file for the given identifier and returns its
// metadata. The file itself is not opened until Reader is called.
func (store FileStore) Resolve(ctx context.Context, id string) (handler.Resource, error) {
	path, err := store.resolvePath(id)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		// Directories are not resources and their existence is not
		// revealed either.
		return nil, handler.ErrNotFound
	}

	contentType := store.contentTypeFor(path, stat.ModTime().UnixNano())

	return &fileResource{
		path: path,
		info: handler.ResourceInfo{
			ID:          id,
			Size:        stat.Size(),
			ModTime:     stat.ModTime(),
			ContentType: contentType,
		},
	}, nil
}

// resolvePath normalizes the identifier into an absolute path and verifies
// that it stays below the root directory. The check runs before any stat
// call, so traversal attempts never touch the file system outside the root.
func (store FileStore) resolvePath(id string) (string, error) {
	path := filepath.Join(store.Root, filepath.FromSlash(id))

	rel, err := filepath.Rel(store.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", handler.ErrForbiddenPath
	}

	return path, nil
}

// contentTypeFor determines the content type for a file, preferring the
// extension and falling back to sniffing the file's leading bytes.
func (store FileStore) contentTypeFor(path string, modTimeNano int64) string {
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		return contentType
	}

	cacheKey := fmt.Sprintf("%s\x00%d", path, modTimeNano)
	if cached, ok := store.sniffCache.Get(cacheKey); ok {
		return cached.(string)
	}

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(path); err == nil {
		contentType = mtype.String()
	}

	store.sniffCache.Add(cacheKey, contentType)
	return contentType
}

type fileResource struct {
	path string
	info handler.ResourceInfo
}

func (resource *fileResource) Info() handler.ResourceInfo {
	return resource.info
}

// Reader opens the underlying file positioned at the given offset.
func (resource *fileResource) Reader(ctx context.Context, offset int64) (io.ReadCloser, error) {
	file, err := os.Open(resource.path)
	if err != nil {
		if os.IsNotExist(err) {
			// The file disappeared between Resolve and the transfer start.
			return nil, handler.ErrNotFound
		}
		return nil, err
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}

	return file, nil
}
