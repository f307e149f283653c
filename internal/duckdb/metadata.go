package duckdb

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the contents of paths followed by params.
// Any change to an input file or parameter yields a different value.
func Fingerprint(paths []string, params ...string) (string, error) {
	h := xxh3.New()
	for _, path := range paths {
		if err := hashFile(h, path); err != nil {
			return "", err
		}
		h.Write([]byte{0})
	}
	for _, p := range params {
		h.WriteString(p)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return nil
}
