package storage

import (
	"os"

	"github.com/saiset-co/sai-stockwatch/types"
)

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.Errorf(types.ErrStorageConnectFailed, "create directory %s: %v", dir, err)
	}

	return nil
}
