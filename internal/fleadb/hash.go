package fleadb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DirHash fingerprints the layout of a database directory from the names
// and sizes of its files. The descriptor, hidden files and empty files are
// ignored. The name of dir itself does not contribute, so a database can
// be moved.
func DirHash(dir string) (string, error) {
	h, ok, err := hashEntry(dir, "")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("nothing to hash in %s", dir)
	}
	return strconv.FormatUint(h, 16), nil
}

func hashEntry(path, name string) (uint64, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if skipFile(name, info.Size()) {
			return 0, false, nil
		}
		return combine(xxhash.Sum64String(name), strconv.FormatInt(info.Size(), 10)), true, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, false, fmt.Errorf("failed to list %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	h := xxhash.Sum64String(name)
	for _, n := range names {
		child, ok, err := hashEntry(filepath.Join(path, n), n)
		if err != nil {
			return 0, false, err
		}
		if ok {
			h = combine(h, strconv.FormatUint(child, 16))
		}
	}
	return h, true, nil
}

func skipFile(name string, size int64) bool {
	return size == 0 ||
		strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, DescriptorFilename)
}

func combine(h uint64, s string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strconv.FormatUint(h, 16))
	_, _ = d.WriteString(s)
	return d.Sum64()
}
