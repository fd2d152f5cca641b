//go:build linux

package toolchain

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CheckHost fails unless the machine can run x86-64 ELF binaries.
func CheckHost() error {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fmt.Errorf("uname failed: %w", err)
	}
	machine := unix.ByteSliceToString(uts.Machine[:])
	if machine != "x86_64" {
		return fmt.Errorf("unsupported host machine %s: native builds need x86_64", machine)
	}
	return nil
}
