//go:build !windows

package vjoy

import "fmt"

// Open reports ErrUnavailable; the vJoy driver only exists on Windows.
func Open(dllPath string, id uint) (Device, error) {
	return nil, fmt.Errorf("vJoy device %d: %w", id, ErrUnavailable)
}
