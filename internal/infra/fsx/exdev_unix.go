//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// errors.Is 会穿透 *os.LinkError，直接比较底层 errno。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
