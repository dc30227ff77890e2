package tablefile

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

func sampleTable() *core.Table {
	t := core.NewTable("steps", core.StepColumns)
	t.Rows = []core.Row{
		{core.RawCell("00042"), core.RawCell("1"), core.RawCell("Whisk eggs, milk, and cinnamon")},
		{core.RawCell("00042"), core.Cell{}, core.RawCell(`Say "done"`)},
	}
	return t
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "output"))

	if err := s.Save("steps", sampleTable()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load("steps")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if strings.Join(got.Columns, ",") != "recipe_id,step_number,instruction" {
		t.Errorf("Columns = %v", got.Columns)
	}
	if got.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", got.Len())
	}
	if got.Rows[0][0].String != "00042" {
		t.Errorf("id = %q, want leading zeros preserved", got.Rows[0][0].String)
	}
	if got.Rows[1][1].Valid {
		t.Errorf("null cell read back as %q", got.Rows[1][1].String)
	}
	if got.Rows[1][2].String != `Say "done"` {
		t.Errorf("quoted cell = %q", got.Rows[1][2].String)
	}
}

func TestStore_SaveOverwritesWholeFile(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.Save("steps", sampleTable()); err != nil {
		t.Fatal(err)
	}
	smaller := sampleTable()
	smaller.Rows = smaller.Rows[:1]
	if err := s.Save("steps", smaller); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("steps")
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 1 {
		t.Errorf("Len() = %d, want 1", got.Len())
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the table file", len(entries))
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Load("recipes")
	if !errors.Is(err, ErrTableMissing) {
		t.Errorf("Load() error = %v, want ErrTableMissing", err)
	}
	if s.Exists("recipes") {
		t.Error("Exists() = true for missing file")
	}
}

func TestStore_LoadEmptyFile(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := os.WriteFile(filepath.Join(s.Dir(), "users.csv"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.Load("users")
	if !errors.Is(err, ErrTableEmpty) {
		t.Errorf("Load() error = %v, want ErrTableEmpty", err)
	}
}

func TestStore_HeaderOnly(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.Save("users", core.NewTable("users", core.UserColumns)); err != nil {
		t.Fatal(err)
	}

	raw, _ := os.ReadFile(filepath.Join(s.Dir(), "users.csv"))
	if string(raw) != "user_id,join_date,region\n" {
		t.Errorf("file = %q", raw)
	}

	got, err := s.Load("users")
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 0 || len(got.Columns) != 3 {
		t.Errorf("got %d rows, %d columns", got.Len(), len(got.Columns))
	}
}

func TestStore_InvalidKey(t *testing.T) {
	s := NewStore(t.TempDir())

	for _, key := range []string{"", "../etc", `a\b`, ".."} {
		if _, err := s.Path(key); !errors.Is(err, core.ErrUnknownTable) {
			t.Errorf("Path(%q) error = %v, want ErrUnknownTable", key, err)
		}
	}
}

func TestRead_RaggedRowIsParseError(t *testing.T) {
	_, err := Read("users", strings.NewReader("user_id,join_date\nu1\n"))
	if err == nil || !strings.Contains(err.Error(), "parse csv users") {
		t.Errorf("Read() error = %v, want parse csv error", err)
	}
}

func TestRead_BOMAndInvalidUTF8(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("user_id,region\nu1,S\xffo Paulo\nu2,Zürich\n")...)

	got, err := Read("users", bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Columns[0] != "user_id" {
		t.Errorf("first column = %q, BOM not stripped", got.Columns[0])
	}
	if got.Rows[0][1].String != "S?o Paulo" {
		t.Errorf("sanitized = %q, want %q", got.Rows[0][1].String, "S?o Paulo")
	}
	if got.Rows[1][1].String != "Zürich" {
		t.Errorf("valid UTF-8 changed: %q", got.Rows[1][1].String)
	}
}

func TestCleanReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...), "a,b"},
		{"without BOM", []byte("a,b"), "a,b"},
		{"empty", nil, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM", []byte{0xEF, 0xBB, 'a'}, "??a"},
		{"multibyte", []byte("日本語"), "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := cleanReader(bytes.NewReader(tt.input))
			if err != nil {
				t.Fatalf("cleanReader() error = %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizer_SmallBuffer(t *testing.T) {
	r, err := cleanReader(strings.NewReader("héllo"))
	if err != nil {
		t.Fatal(err)
	}

	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if string(out) != "héllo" {
		t.Errorf("got %q, want héllo", out)
	}
}
