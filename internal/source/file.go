package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// FileSource reads collections from a directory. Collection c is stored in
// c.json as either a JSON array of objects or one object per line.
type FileSource struct {
	dir string
}

// NewFileSource returns a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Documents implements Source.
func (s *FileSource) Documents(ctx context.Context, collection string) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, filepath.Base(collection)+".json")
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document source: read %s: %w", collection, err)
	}

	docs, err := parseDocuments(raw)
	if err != nil {
		return nil, fmt.Errorf("document source: %s: %w", path, err)
	}
	return docs, nil
}

func parseDocuments(raw []byte) ([]core.Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		docs := make([]core.Document, 0, len(items))
		for i, item := range items {
			doc, err := decodeDocument(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	var docs []core.Document
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		doc, err := decodeDocument(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
