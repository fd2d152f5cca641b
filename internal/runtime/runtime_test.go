package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iley/lispc/internal/codegen"
)

func TestSymbols(t *testing.T) {
	symbols, err := Symbols()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"display", "list", "mklist", "unbox"} {
		found := false
		for _, s := range symbols {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s among %v", want, symbols)
		}
	}
	for _, s := range symbols {
		if s == "alloc" || s == "fail" {
			t.Errorf("static helper %s reported as a symbol", s)
		}
	}
}

func TestRuntimeCoversCodegen(t *testing.T) {
	missing, err := Missing(append(codegen.RuntimeSymbols(), "display"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing) > 0 {
		t.Errorf("runtime is missing %v", missing)
	}
}

func TestInstall(t *testing.T) {
	dir := t.TempDir()
	path, err := Install(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != Source {
		t.Errorf("installed runtime differs from the embedded source")
	}
}

func TestNoBareCSources(t *testing.T) {
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".c" {
			t.Errorf("%s would be compiled as a cgo source; embed it under another extension", entry.Name())
		}
	}
	if !strings.Contains(Source, "int64_t display(value *v)") {
		t.Errorf("embedded runtime source looks incomplete")
	}
}
