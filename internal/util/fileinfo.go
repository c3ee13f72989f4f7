package util

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FileInfo identifies a file version: modification time, size and inode.
type FileInfo struct {
	ModTime int64
	Size    int64
	Inode   uint64
}

// GetFileInfo stats path. Supported on Linux and macOS.
func GetFileInfo(path string) (*FileInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	sec, _ := st.Mtim.Unix()
	return &FileInfo{
		ModTime: sec,
		Size:    st.Size,
		Inode:   uint64(st.Ino),
	}, nil
}
