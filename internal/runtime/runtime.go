// Package runtime carries the C support library that compiled programs link against.
package runtime

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dlclark/regexp2"
)

//go:embed runtime.c.in
var Source string

const FileName = "lispc_runtime.c"

var (
	functionPattern   = regexp2.MustCompile(`^(?:value \*|int64_t )(\w+)\(`, regexp2.Multiline)
	trampolinePattern = regexp2.MustCompile(`^\s*"\.globl (\w+)\\n"`, regexp2.Multiline)
)

// Install writes the runtime source into dir and returns its path.
func Install(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(Source), 0o644); err != nil {
		return "", fmt.Errorf("could not write runtime: %w", err)
	}
	return path, nil
}

// Symbols lists the non-static functions the runtime defines, sorted.
func Symbols() ([]string, error) {
	var result []string
	for _, re := range []*regexp2.Regexp{functionPattern, trampolinePattern} {
		m, err := re.FindStringMatch(Source)
		for m != nil && err == nil {
			result = append(result, m.GroupByNumber(1).String())
			m, err = re.FindNextMatch(m)
		}
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(result)
	return result, nil
}

// Missing returns the names in want that the runtime does not define.
func Missing(want []string) ([]string, error) {
	have, err := Symbols()
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, name := range want {
		if _, found := slices.BinarySearch(have, name); !found {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
