//go:build !windows

package showdesktop

import "syscall"

// detachedSysProcAttr starts the process in a session of its own.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
