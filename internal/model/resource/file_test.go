package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
resources:
  - id: hotline-local
    title: 本地心理援助热线
    description: 工作日 9:00-21:00
    type: hotline
    phone: "12320"
  - id: med-3
    title: 五分钟正念
    type: audio
    duration: 5 min
`)

	items, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "12320", items[0].Phone)
	assert.Equal(t, TypeAudio, items[1].Type)

	store := NewMemoryStore(items)
	assert.Len(t, store.ByType(TypeHotline), 1)
}

func TestLoadFileRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"empty":         "resources: []\n",
		"unknown type":  "resources:\n  - {id: a, title: A, type: video}\n",
		"missing phone": "resources:\n  - {id: a, title: A, type: hotline}\n",
		"duplicate id":  "resources:\n  - {id: a, title: A, type: article}\n  - {id: a, title: B, type: article}\n",
		"missing title": "resources:\n  - {id: a, type: article}\n",
		"not yaml":      "resources: [",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSeedPassesValidation(t *testing.T) {
	assert.NoError(t, validate(Seed()))
}
