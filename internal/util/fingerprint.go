package util

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

const fingerprintWindow = 4096

// CalculateFileFingerprint returns the CRC32 of the first and last 4KB of a
// file. Audio and estimate files are rewritten wholesale, so the head changes
// as often as the tail does.
func CalculateFileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}

	h := crc32.NewIEEE()
	if _, err := io.CopyN(h, file, fingerprintWindow); err != nil && err != io.EOF {
		return "", err
	}

	if size := stat.Size(); size > fingerprintWindow {
		tail := int64(fingerprintWindow)
		if size-tail < fingerprintWindow {
			tail = size - fingerprintWindow
		}
		if _, err := file.Seek(-tail, io.SeekEnd); err != nil {
			return "", err
		}
		if _, err := io.CopyN(h, file, tail); err != nil && err != io.EOF {
			return "", err
		}
	}

	return fmt.Sprintf("%08x", h.Sum32()), nil
}

// HashString returns the CRC32 of s as 8 hex digits.
func HashString(s string) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(s)))
}
