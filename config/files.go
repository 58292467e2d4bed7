package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/campaignpulse/errors"
)

// Default limits on the file layers read by one Load.
const (
	defaultMaxLayerSize = 1 << 20
	defaultMaxTotalSize = 4 << 20
	defaultMaxDepth     = 32
)

// fileLimits bounds what a Loader accepts from its file layers. The total
// applies across every layer of a single Load.
type fileLimits struct {
	layerSize int64
	totalSize int64
	depth     int
}

func defaultFileLimits() fileLimits {
	return fileLimits{
		layerSize: defaultMaxLayerSize,
		totalSize: defaultMaxTotalSize,
		depth:     defaultMaxDepth,
	}
}

func invalidLayer(path, reason string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Loader", "readLayer",
		fmt.Sprintf("layer %s: %s", path, reason))
}

// checkLayerPath accepts absolute paths and relative paths that stay under
// the working directory. Only .json layers are read.
func checkLayerPath(path string) error {
	if path == "" {
		return invalidLayer(path, "empty path")
	}
	if !filepath.IsAbs(path) && !filepath.IsLocal(path) {
		return invalidLayer(path, "path traversal outside the working directory")
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return invalidLayer(path, "only JSON layers are supported")
	}
	return nil
}

// readLayer reads one file layer. read is the number of bytes earlier
// layers of the same Load consumed.
func (lim fileLimits) readLayer(path string, read int64) ([]byte, error) {
	if err := checkLayerPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "readLayer", "stat "+path)
	}
	if !info.Mode().IsRegular() {
		return nil, invalidLayer(path, "not a regular file")
	}
	if info.Size() > lim.layerSize {
		return nil, invalidLayer(path, fmt.Sprintf("%d bytes exceeds the %d byte layer limit", info.Size(), lim.layerSize))
	}
	if read+info.Size() > lim.totalSize {
		return nil, invalidLayer(path, fmt.Sprintf("layers exceed the %d byte total limit", lim.totalSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "readLayer", "read "+path)
	}
	if err := lim.checkDepth(data); err != nil {
		return nil, invalidLayer(path, err.Error())
	}
	return data, nil
}

// checkDepth walks the token stream and rejects nesting beyond the limit
// before the layer is decoded into a map.
func (lim fileLimits) checkDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if stderrors.Is(err, io.EOF) {
			if depth != 0 {
				return fmt.Errorf("malformed JSON: %d unclosed brackets", depth)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed JSON: %w", err)
		}

		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > lim.depth {
				return fmt.Errorf("JSON nesting too deep (limit %d)", lim.depth)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
