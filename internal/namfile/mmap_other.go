//go:build !unix

package namfile

import (
	"errors"
	"os"
)

func mmapFile(*os.File, int) ([]byte, func(), error) {
	return nil, nil, errors.New("mmap not supported")
}
