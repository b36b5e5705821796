package main

import (
	"errors"
	"os"
)

// discardEmptyOutput removes the output video of a failed run when no frame
// reached it. A missing file is not an error.
func discardEmptyOutput(path string, framesWritten int) (bool, error) {
	if framesWritten > 0 {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
