package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestLocalStorageSaveUploadDetectsType(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 1024, []string{"image/png", "application/pdf"})
	require.NoError(t, err)

	file, err := store.SaveUpload("posts/post_1", "diagram.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "posts/post_1/diagram.png", file.Path)
	assert.Equal(t, "image/png", file.MIMEType)
	assert.True(t, file.IsImage())

	handle, err := store.Open(file.Path)
	require.NoError(t, err)
	defer handle.Close()
	content, err := io.ReadAll(handle)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, content)
}

func TestLocalStorageRejectsDisallowedAndOversized(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 8, []string{"image/png"})
	require.NoError(t, err)

	_, err = store.SaveUpload("posts/p", "notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrMIMENotAllowed)

	_, err = store.SaveUpload("posts/p", "big.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = store.SaveUpload("posts/p", "empty.png", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestLocalStoragePreventsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), 1024, nil)
	require.NoError(t, err)

	_, err = store.Open("../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathOutsideRoot)

	file, err := store.SaveUpload("posts/p", "../../escape.txt", strings.NewReader("plain text"))
	require.NoError(t, err)
	assert.Equal(t, "posts/p/escape.txt", file.Path)
}
