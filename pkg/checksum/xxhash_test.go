package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileChecksum(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")
	third := filepath.Join(dir, "c.csv")
	require.NoError(t, os.WriteFile(first, []byte("ID,Name\n1,Ann\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("ID,Name\n1,Ann\n"), 0644))
	require.NoError(t, os.WriteFile(third, []byte("ID,Name\n2,Bob\n"), 0644))

	sumA, err := GetFileChecksum(first)
	require.NoError(t, err)
	sumB, err := GetFileChecksum(second)
	require.NoError(t, err)
	sumC, err := GetFileChecksum(third)
	require.NoError(t, err)

	assert.Len(t, sumA, 16)
	assert.Equal(t, sumA, sumB, "same content, same checksum")
	assert.NotEqual(t, sumA, sumC)

	_, err = GetFileChecksum(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestCalculateCheckSum(t *testing.T) {
	assert.Equal(t, CalculateCheckSum([]string{"1", "Ann"}), CalculateCheckSum([]string{"1", "Ann"}))
	assert.NotEqual(t, CalculateCheckSum([]string{"1", "Ann"}), CalculateCheckSum([]string{"1Ann", ""}))
	assert.NotEqual(t, CalculateCheckSum([]string{"1", "Ann"}), CalculateCheckSum([]string{"Ann", "1"}))
}
