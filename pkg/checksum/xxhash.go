package checksum

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GetFileChecksum hashes the whole content of a file. Two files with the
// same bytes are the same input regardless of their names.
func GetFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to copy file content to hasher for file %s: %w", filePath, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CalculateCheckSum hashes the ordered values of one record, used to skip
// rows that were already persisted by an earlier run.
func CalculateCheckSum(values []string) string {
	digest := xxhash.New()
	digest.WriteString(strings.Join(values, "\x1f"))

	return hex.EncodeToString(digest.Sum(nil))
}
