package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() *Profile {
	return &Profile{
		Version: "v1",
		Columns: []ColumnRule{
			{Column: "customer_name", Category: "name"},
			{Column: "account_number", Category: "account"},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validProfile().Validate())
}

func TestValidate_NoColumns(t *testing.T) {
	p := &Profile{}
	assert.Error(t, p.Validate())
}

func TestValidate_DuplicateColumn(t *testing.T) {
	p := validProfile()
	p.Columns = append(p.Columns, ColumnRule{Column: "customer_name", Category: "other"})
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assigned twice")
}

func TestValidate_EmptyFields(t *testing.T) {
	p := &Profile{Columns: []ColumnRule{{Column: "", Category: "name"}}}
	assert.Error(t, p.Validate())

	p = &Profile{Columns: []ColumnRule{{Column: "x", Category: ""}}}
	assert.Error(t, p.Validate())
}

func TestValidate_Format(t *testing.T) {
	p := validProfile()
	p.Columns[0].Format = &TokenFormat{Prefix: "N", Width: 4, Alphabet: AlphabetDigits}
	require.NoError(t, p.Validate())

	p.Columns[0].Format.Alphabet = "base64"
	assert.Error(t, p.Validate())

	p.Columns[0].Format.Alphabet = AlphabetHex
	p.Columns[0].Format.Width = 99
	assert.Error(t, p.Validate())
}

func TestValidate_ConflictingFormatsInCategory(t *testing.T) {
	p := &Profile{Columns: []ColumnRule{
		{Column: "a", Category: "name", Format: &TokenFormat{Width: 4}},
		{Column: "b", Category: "name", Format: &TokenFormat{Width: 6}},
	}}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting token formats")
}

func TestCategoryFor(t *testing.T) {
	p := validProfile()
	cat, ok := p.CategoryFor("account_number")
	require.True(t, ok)
	assert.Equal(t, "account", cat)

	_, ok = p.CategoryFor("city")
	assert.False(t, ok)
}

func TestFormatFor(t *testing.T) {
	p := validProfile()
	assert.Nil(t, p.FormatFor("name"))

	p.Columns[0].Format = &TokenFormat{Prefix: "PERSON"}
	f := p.FormatFor("name")
	require.NotNil(t, f)
	assert.Equal(t, "PERSON", f.Prefix)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	data := `{"version":"v1","columns":[{"column":"email","category":"email"}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Len(t, p.Columns, 1)
	assert.Equal(t, "email", p.Columns[0].Category)
}

func TestLoadProfile_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
