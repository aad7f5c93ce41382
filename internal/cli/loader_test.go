package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectionSpecs(t *testing.T) {
	tmpDir := t.TempDir()
	writeSpec(t, tmpDir, "views.cue", validProjectionSpec)

	result, err := LoadProjectionSpecs(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Projections, 2)
	assert.Equal(t, "header", result.Projections[0].Name)
	assert.Equal(t, "status", result.Projections[1].Name)
}

func TestLoadProjectionSpecs_MultipleFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeSpec(t, tmpDir, "header.cue", `
package specs

projection: header: {
	mapping: {
		counter: "persistent.counter"
	}
}
`)
	writeSpec(t, tmpDir, "status.cue", `
package specs

projection: status: {
	mapping: {
		busy: "transient.busy"
	}
}
`)

	result, err := LoadProjectionSpecs(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FileCount)
	assert.Len(t, result.Projections, 2)
}

func TestLoadProjectionSpecs_NotADirectory(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.cue")
	require.NoError(t, os.WriteFile(path, []byte("package specs\n"), 0644))

	_, err := LoadProjectionSpecs(path)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
	assert.Contains(t, loadErr.Message, "not a directory")
}

func TestLoadProjectionSpecs_SyntaxError(t *testing.T) {
	tmpDir := t.TempDir()
	writeSpec(t, tmpDir, "broken.cue", "package specs\n\nprojection: {{{\n")

	_, err := LoadProjectionSpecs(tmpDir)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeLoadFailed, loadErr.Code)
}

func TestFindCUEFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeSpec(t, tmpDir, "a.cue", "package specs\n")
	writeSpec(t, tmpDir, "notes.txt", "not cue\n")

	sub := filepath.Join(tmpDir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	writeSpec(t, sub, "b.cue", "package specs\n")

	files, err := findCUEFiles(tmpDir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeProjectionMapping, mapFieldToErrorCode("projection"))
	assert.Equal(t, ErrCodeProjectionMapping, mapFieldToErrorCode("projection.header.mapping"))
	assert.Equal(t, ErrCodeProjectionSource, mapFieldToErrorCode("projection.header"))
	assert.Equal(t, ErrCodeProjectionSource, mapFieldToErrorCode("projection.header.mapping.counter"))
	assert.Equal(t, ErrCodeGeneric, mapFieldToErrorCode("cue"))
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in /tmp/x"}
	assert.Equal(t, "E003: no CUE files found in /tmp/x", err.Error())
}
