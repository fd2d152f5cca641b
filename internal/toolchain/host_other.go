//go:build !linux

package toolchain

import (
	"fmt"
	"runtime"
)

func CheckHost() error {
	return fmt.Errorf("unsupported platform: %s/%s", runtime.GOOS, runtime.GOARCH)
}
