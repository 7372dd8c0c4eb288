//go:build !windows
// +build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// GetSize returns the dimensions of the given terminal.
func GetSize(fd int) (int, int, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return -1, -1, err
	}
	return int(ws.Col), int(ws.Row), nil
}

// terminalWidth falls back to 80 columns when stdout is not a terminal.
func terminalWidth() int {
	w, _, err := GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
