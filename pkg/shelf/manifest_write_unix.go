//go:build !windows

package shelf

import "github.com/google/renameio"

func writeFileAtomic(path string, data []byte) error {
	f, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer f.Cleanup()

	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.CloseAtomicallyReplace()
}
