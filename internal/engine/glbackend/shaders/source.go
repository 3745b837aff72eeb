package shaders

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Source reads shader stages from a file system and injects preprocessor
// definitions into them.
type Source struct {
	fsys fs.FS

	// Common definitions are injected into every stage before the
	// per-program ones.
	Common []string
}

// NewSource reads stages from the built-in sources, or from the operating
// system when external is set. External names are paths.
func NewSource(external bool, common ...string) *Source {
	if external {
		return &Source{Common: common}
	}
	return &Source{fsys: FS, Common: common}
}

// NewSourceFS reads stages from fsys.
func NewSourceFS(fsys fs.FS, common ...string) *Source {
	return &Source{fsys: fsys, Common: common}
}

// Read returns the stage called name with defines injected. An empty name
// returns an empty string. Absolute names always read from the operating
// system.
func (s *Source) Read(name string, defines []string) (string, error) {
	if name == "" {
		return "", nil
	}
	var (
		data []byte
		err  error
	)
	if s.fsys == nil || filepath.IsAbs(name) {
		data, err = os.ReadFile(name)
	} else {
		data, err = fs.ReadFile(s.fsys, name)
	}
	if err != nil {
		return "", fmt.Errorf("read shader %s: %w", name, err)
	}
	all := make([]string, 0, len(s.Common)+len(defines))
	all = append(all, s.Common...)
	all = append(all, defines...)
	return Inject(string(data), all), nil
}

// Inject inserts "#define d" for each d directly after the #version line of
// src, or at the top when src has none. A define may carry a value, as in
// "MAX_BONES 10".
func Inject(src string, defines []string) string {
	if len(defines) == 0 {
		return src
	}
	var block strings.Builder
	for _, d := range defines {
		block.WriteString("#define ")
		block.WriteString(d)
		block.WriteByte('\n')
	}

	lines := strings.SplitAfter(src, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#version") {
			head := strings.Join(lines[:i+1], "")
			if !strings.HasSuffix(head, "\n") {
				head += "\n"
			}
			return head + block.String() + strings.Join(lines[i+1:], "")
		}
	}
	return block.String() + src
}
