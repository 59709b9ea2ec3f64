package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSources(t *testing.T) {
	root := t.TempDir()
	png := pngSource(t, "x.png", 2, 2, [4]uint8{1, 2, 3, 255}).Data
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0, 1}

	write := func(rel string, data []byte) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	write("b.png", png)
	write("a.png", png)
	write("notes.txt", []byte("shopping list: eggs"))
	write("sub/c.png", png)
	write("sub/photo.jpg", jpeg)
	write("out/old_sticker.png", png)

	sources, err := CollectSources(root, filepath.Join(root, "out"))
	require.NoError(t, err)

	var names []string
	for _, s := range sources {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"a.png", "b.png", "sub/c.png", "sub/photo.jpg"}, names)
	assert.Equal(t, png, sources[0].Data)

	sources, err = CollectSources(root, "")
	require.NoError(t, err)
	assert.Len(t, sources, 5)

	sources, err = CollectSources(filepath.Join(root, "sub", "c.png"), "")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "c.png", sources[0].Name)

	_, err = CollectSources(filepath.Join(root, "missing"), "")
	assert.Error(t, err)
}
