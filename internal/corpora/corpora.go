// Package corpora provides a mechanism for managing test corpora: a
// directory of input files that each define a test case, with expected
// outputs stored in sibling golden files.
package corpora

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
)

// A Corpus describes a test data corpus. This is a way of doing
// table-driven tests where the "table" is in the file system.
type Corpus struct {
	// The root of the test data directory, relative to the file that calls
	// [Corpus.Run].
	Root string

	// An environment variable to consult for whether to run in "refresh"
	// mode. Its value is a glob selecting the test cases whose golden
	// files should be rewritten from the current output.
	Refresh string

	// The file extension (without a dot) of files which define a test
	// case, e.g. "c".
	Extension string

	// Possible outputs of a test case, found using Output.Extension. A
	// missing golden file is treated as expecting empty output.
	Outputs []Output

	// Test executes one test case. It returns one string per element of
	// Outputs.
	Test func(t *testing.T, path, text string) []string
}

// Output describes one expected output of a test case. Its golden file is
// named by suffixing the case's file name with "." and Extension.
type Output struct {
	Extension string

	// The comparison function for this output. May be nil, in which case
	// values are compared byte-for-byte and mismatches rendered as a
	// unified diff.
	Compare Compare
}

// Compare is a comparison function between strings, used in [Output]. It
// returns "" if the strings match, and an error message otherwise.
type Compare func(got, want string) string

// Run executes every test case under the corpus root as a subtest of t.
func (c Corpus) Run(t *testing.T) {
	testDir := callerDir(0)
	root := filepath.Join(testDir, c.Root)

	var tests []string
	err := filepath.Walk(root, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && strings.TrimPrefix(path.Ext(p), ".") == c.Extension {
			tests = append(tests, p)
		}
		return nil
	})
	if err != nil {
		t.Fatal("corpora: error while walking testdata:", err)
	}

	var refresh string
	if c.Refresh != "" {
		refresh = os.Getenv(c.Refresh)
		if !doublestar.ValidatePattern(refresh) {
			t.Fatalf("corpora: invalid glob in $%s: %q", c.Refresh, refresh)
		}
	}
	if refresh != "" {
		// refreshed golden files have not been verified; fail so this
		// cannot sneak past CI
		t.Logf("corpora: refreshing golden files because %s=%s", c.Refresh, refresh)
		t.Fail()
	}

	for _, p := range tests {
		name, _ := filepath.Rel(testDir, p)
		t.Run(name, func(t *testing.T) {
			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("corpora: error while loading input file %q: %v", p, err)
			}

			results := c.Test(t, name, string(data))
			if len(results) != len(c.Outputs) {
				t.Fatalf("corpora: Test returned %d outputs, want %d", len(results), len(c.Outputs))
			}

			doRefresh, _ := doublestar.Match(refresh, name)
			for i, output := range c.Outputs {
				golden := fmt.Sprint(p, ".", output.Extension)
				if doRefresh {
					c.refresh(t, golden, results[i])
					continue
				}

				want, err := os.ReadFile(golden)
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					t.Errorf("corpora: error while loading golden file %q: %v", golden, err)
					continue
				}

				compare := output.Compare
				if compare == nil {
					compare = defaultCompare
				}
				if msg := compare(results[i], string(want)); msg != "" {
					t.Errorf("output mismatch for %q:\n%s", golden, msg)
				}
			}
		})
	}
}

func (c Corpus) refresh(t *testing.T, golden, text string) {
	if text == "" {
		if err := os.Remove(golden); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.Errorf("corpora: error while deleting golden file %q: %v", golden, err)
		}
		return
	}
	if err := os.WriteFile(golden, []byte(text), 0600); err != nil {
		t.Errorf("corpora: error while writing golden file %q: %v", golden, err)
	}
}

func defaultCompare(got, want string) string {
	if got == want {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

func callerDir(skip int) string {
	_, file, _, ok := runtime.Caller(skip + 2)
	if !ok {
		panic("corpora: could not determine test file's directory")
	}
	return filepath.Dir(file)
}
