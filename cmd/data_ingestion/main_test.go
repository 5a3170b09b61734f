package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("INVALID_RECORDS_DIR", filepath.Join(dir, "invalid"))

	path := filepath.Join(dir, "USA.csv")
	content := "ID,Name,VaccinationDate\nC1,Ann,05052023\nC2,Bob,13/45/2024\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	out, err := executeRoot(t, "validate", path)
	require.NoError(t, err)

	assert.Contains(t, out, "rows:     2")
	assert.Contains(t, out, "admitted: 1")
	assert.Contains(t, out, "invalid:  1")

	reports, err := filepath.Glob(filepath.Join(dir, "invalid", "invalid_records_USA_*.csv"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestValidateCommand_Strict(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))

	path := filepath.Join(dir, "CAN.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,VaccinationDate\nAnn,05052023\n"), 0644))

	_, err := executeRoot(t, "validate", "--strict", path)
	assert.ErrorContains(t, err, "CustomerId")
}

func TestRunCommand_RequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DATABASE_URL", "")

	_, err := executeRoot(t, "run", dir)
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestRunCommand_RequiresDirectory(t *testing.T) {
	_, err := executeRoot(t, "run")
	assert.Error(t, err)
}
