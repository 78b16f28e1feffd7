//go:build !windows

package main

// setupEventLog is a no-op outside Windows, callers fall back to file logging
func setupEventLog(string) bool {
	return false
}
