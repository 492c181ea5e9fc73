package store

import (
	"io"
	"testing"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func readFile(t *testing.T, fs billy.Filesystem, path string) string {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func TestJSONRoundTrip(t *testing.T) {
	fs := memfs.New()
	m := NewMap()
	require.NoError(t, m.Record("name", "Alice", "NAME_3F0A91C2"))
	require.NoError(t, m.Record("account", `ACC "weird"`, "ACCOUNT_00000001"))

	require.NoError(t, m.PersistJSON(fs, "map.json"))

	back, err := LoadJSON(fs, "map.json")
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), back.Entries())
	assert.Equal(t, m.Version(), back.Version())
	assert.Equal(t, m.CreatedAt().Truncate(time.Second), back.CreatedAt())
}

func TestPersistJSON_ReplacesExisting(t *testing.T) {
	fs := memfs.New()
	m := NewMap()
	require.NoError(t, m.Record("name", "Alice", "NAME_00000001"))
	require.NoError(t, m.PersistJSON(fs, "map.json"))

	require.NoError(t, m.Record("name", "Bob", "NAME_00000002"))
	require.NoError(t, m.PersistJSON(fs, "map.json"))

	back, err := LoadJSON(fs, "map.json")
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())

	// No temp files left behind.
	infos, err := fs.ReadDir(".")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestLoadJSON_MissingFile(t *testing.T) {
	_, err := LoadJSON(memfs.New(), "absent.json")
	require.Error(t, err)
	var corrupt *CorruptError
	assert.NotErrorAs(t, err, &corrupt, "a missing file is not corruption")
}

func TestLoadJSON_Corrupt(t *testing.T) {
	cases := []struct {
		name    string
		content string
		reason  string
	}{
		{"invalid json", "{oops", "invalid JSON"},
		{"not an object", "[1,2,3]", "top level is not an object"},
		{"no version", `{"created_at":"2026-01-02T15:04:05Z","entries":[]}`, "version"},
		{"no created_at", `{"version":1,"entries":[]}`, "created_at"},
		{"bad created_at", `{"version":1,"created_at":"yesterday","entries":[]}`, "bad created_at"},
		{"no entries", `{"version":1,"created_at":"2026-01-02T15:04:05Z"}`, "entries"},
		{"entry not object", `{"version":1,"created_at":"2026-01-02T15:04:05Z","entries":[7]}`, "not an object"},
		{
			"entry missing field",
			`{"version":1,"created_at":"2026-01-02T15:04:05Z","entries":[{"category":"name","original":"Alice"}]}`,
			"missing required field",
		},
		{
			"duplicate original",
			`{"version":1,"created_at":"2026-01-02T15:04:05Z","entries":[
				{"category":"name","original":"Alice","token":"NAME_00000001"},
				{"category":"name","original":"Alice","token":"NAME_00000002"}]}`,
			"duplicate original",
		},
		{
			"duplicate token",
			`{"version":1,"created_at":"2026-01-02T15:04:05Z","entries":[
				{"category":"name","original":"Alice","token":"NAME_00000001"},
				{"category":"name","original":"Bob","token":"NAME_00000001"}]}`,
			"duplicate token",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := memfs.New()
			writeFile(t, fs, "map.json", tc.content)

			_, err := LoadJSON(fs, "map.json")
			require.Error(t, err)
			var corrupt *CorruptError
			require.ErrorAs(t, err, &corrupt)
			assert.Contains(t, corrupt.Reason, tc.reason)
		})
	}
}

func TestEncodeJSON_Deterministic(t *testing.T) {
	fs := memfs.New()
	m := NewMap()
	require.NoError(t, m.Record("name", "Alice", "NAME_00000001"))

	require.NoError(t, m.PersistJSON(fs, "a.json"))
	require.NoError(t, m.PersistJSON(fs, "b.json"))
	assert.Equal(t, readFile(t, fs, "a.json"), readFile(t, fs, "b.json"))
	assert.Contains(t, readFile(t, fs, "a.json"), `"token": "NAME_00000001"`)
}
