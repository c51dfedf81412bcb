//go:build !linux

package meshclient

import (
	"fmt"
	"io"
)

func openSerial(path string) (io.ReadWriteCloser, error) {
	return nil, fmt.Errorf("serial %s: serial ports are supported on linux only, use --host", path)
}
