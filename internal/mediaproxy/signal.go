package mediaproxy

import (
	"os"
	"syscall"
)

func interruptSignal() os.Signal {
	return syscall.SIGTERM
}
