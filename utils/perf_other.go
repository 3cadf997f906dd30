//go:build !linux

package utils

import "fmt"

func CountInstructions(f func() error) (instructions uint64, perfErr, err error) {
	err = f()
	perfErr = fmt.Errorf("instruction counting is only available on linux")
	return
}
