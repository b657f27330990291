package tools

import (
	"os"
	"path/filepath"
)

func CreateDirectoryIfDoesNotExist(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		err := os.MkdirAll(directory, 0777)
		if err != nil {
			return err
		}
	}
	return nil
}

// Creates the parent directory of a file about to be written
func PrepareOutputFile(path string) error {
	return CreateDirectoryIfDoesNotExist(filepath.Dir(path))
}
