package fetcher

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/klappy/translation-helps-core/errors"
)

// normalizePath strips the "./" prefix ingredient paths carry.
func normalizePath(path string) string {
	return strings.TrimPrefix(path, "./")
}

// fileFromArchive extracts one file from a zip archive by ingredient path.
// Repository archives nest everything under a top-level directory, so an
// entry matches on its full name or on the name with that directory removed.
func fileFromArchive(archive []byte, path string) ([]byte, error) {
	want := normalizePath(path)

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		wrapped := errors.WrapInvalid(errors.ErrExtractionFailed, "fetcher", "fileFromArchive", "open archive")
		return nil, errors.WithDetail(wrapped, "path", want)
	}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := entry.Name
		if name != want && stripTopDir(name) != want {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			wrapped := errors.WrapInvalid(errors.ErrExtractionFailed, "fetcher", "fileFromArchive", "open entry")
			return nil, errors.WithDetail(wrapped, "path", want)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			wrapped := errors.WrapInvalid(errors.ErrExtractionFailed, "fetcher", "fileFromArchive", "read entry")
			return nil, errors.WithDetail(wrapped, "path", want)
		}
		return data, nil
	}

	wrapped := errors.WrapInvalid(errors.ErrExtractionFailed, "fetcher", "fileFromArchive", "entry not in archive")
	return nil, errors.WithDetail(wrapped, "path", want)
}

func stripTopDir(name string) string {
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
