package namfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Open reads and parses the model file at path. The file is mapped read-only
// where the platform allows it and read with ReadAt otherwise.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !stat.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrMalformed, path)
	}
	size64 := stat.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: %s is too large", ErrMalformed, path)
	}
	size := int(size64)
	if size == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformed, path)
	}

	if data, unmap, err := mmapFile(f, size); err == nil {
		defer unmap()
		return Parse(data)
	}

	data, err := readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}
