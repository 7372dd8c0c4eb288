//go:build windows
// +build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// GetSize returns the dimensions of the console window.
func GetSize(handle windows.Handle) (int, int, error) {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(handle, &info); err != nil {
		return -1, -1, err
	}
	return int(info.Window.Right-info.Window.Left) + 1, int(info.Window.Bottom-info.Window.Top) + 1, nil
}

func terminalWidth() int {
	w, _, err := GetSize(windows.Handle(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
