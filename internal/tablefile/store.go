// Package tablefile persists tables as delimited text files.
//
// Each table is one file with a header row followed by data rows. Files are
// only ever replaced whole: Save writes to a temporary file in the same
// directory and renames it over the target, so a failed run never leaves a
// partial file behind. Every cell is read back as text; nothing is coerced.
package tablefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// Sentinels returned by Load.
var (
	ErrTableMissing = core.ErrTableMissing
	ErrTableEmpty   = core.ErrTableEmpty
)

// Store reads and writes table files in one directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the file name for a table key. Registered tables use their
// declared file name; anything else is stored as <key>.csv.
func FileName(key string) string {
	if def, ok := core.Get(key); ok && def.Info.FileName != "" {
		return def.Info.FileName
	}
	return key + ".csv"
}

// Path returns the full path of a table's file.
func (s *Store) Path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: invalid table key %q", core.ErrUnknownTable, key)
	}
	return filepath.Join(s.dir, FileName(key)), nil
}

// Exists reports whether a table's file is present.
func (s *Store) Exists(key string) bool {
	path, err := s.Path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads a table's file. A missing file yields ErrTableMissing and a
// file without a header yields ErrTableEmpty.
func (s *Store) Load(key string) (*core.Table, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", key, ErrTableMissing)
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	defer f.Close()

	t, err := Read(key, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return t, nil
}

// Save replaces a table's file with t.
func (s *Store) Save(key string, t *core.Table) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+FileName(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := Write(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Read parses a table from r. The first record is the header.
func Read(key string, r io.Reader) (*core.Table, error) {
	clean, err := cleanReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", key, err)
	}

	cr := csv.NewReader(clean)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrTableEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", key, err)
	}

	t := core.NewTable(key, header)
	cr.FieldsPerRecord = len(header)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv %s: %w", key, err)
		}

		row := make(core.Row, len(rec))
		for i, v := range rec {
			row[i] = core.RawCell(v)
		}
		if err := t.Append(row); err != nil {
			return nil, fmt.Errorf("parse csv %s: %w", key, err)
		}
	}

	return t, nil
}

// Write renders t to w: the header, then one record per row. Null cells are
// written as empty fields.
func Write(w io.Writer, t *core.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Strings()); err != nil {
		return err
	}
	return cw.Error()
}
