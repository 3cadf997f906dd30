//go:build linux

package utils

import (
	"errors"
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

// CountInstructions runs f while counting retired CPU instructions. When the
// counter cannot be opened f is still run exactly once and the counter error is
// returned in perfErr.
func CountInstructions(f func() error) (instructions uint64, perfErr, err error) {
	var (
		ran bool
		pv  *perf.ProfileValue
	)
	pv, perfErr = perf.CPUInstructions(func() error {
		ran = true
		err = f()
		return err
	})
	if !ran {
		err = f()
		perfErr = fmt.Errorf("unable to count instructions: %w", perfErr)
		return
	}
	if err != nil && errors.Is(perfErr, err) {
		perfErr = nil
		return
	}
	if pv != nil {
		instructions = pv.Value
	}
	return
}
