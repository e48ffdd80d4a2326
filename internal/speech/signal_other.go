//go:build !unix

package speech

import (
	"errors"
	"os"
)

func suspend(*os.Process) error {
	return errors.ErrUnsupported
}

func resume(*os.Process) error {
	return errors.ErrUnsupported
}
