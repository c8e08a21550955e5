package assemble

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// tempSibling returns a hidden path next to path that keeps its extension,
// since encoders pick the container from it.
func tempSibling(path, tag string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s-%s-%s", tag, id, filepath.Base(path)))
}

// writeAtomic streams into a temporary sibling and renames it over path once
// write succeeds.
func writeAtomic(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp := tempSibling(path, "write")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
