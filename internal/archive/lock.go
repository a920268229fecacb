package archive

import (
	"fmt"
	"os"
	"strconv"
)

// Lock is an exclusive lock file guarding the archive against concurrent
// mutation. The importer and the main collection service must not write the
// same archive at the same time; whoever holds the lock wins, the other
// aborts.
type Lock struct {
	path string
}

// AcquireLock creates path exclusively, writing the holder's pid into it.
// Fails when another process already holds the lock.
func AcquireLock(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			holder, _ := os.ReadFile(path)
			return nil, fmt.Errorf("archive is locked by another process (pid %s): remove %s if it is stale",
				string(holder), path)
		}
		return nil, fmt.Errorf("failed to acquire archive lock: %w", err)
	}

	_, _ = file.WriteString(strconv.Itoa(os.Getpid()))
	if err := file.Close(); err != nil {
		return nil, err
	}

	return &Lock{path: path}, nil
}

func (l *Lock) Release() error {
	return os.Remove(l.path)
}
