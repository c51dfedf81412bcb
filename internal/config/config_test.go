package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	doc := `
LOCATION: Port Douglas
MYNODE: "!ABC123"
MYNODES:
  - "!aaa111"
  - " 12345 "
DBFILENAME: db/nodes.db
DM_MODE: true
FIREWALL: false
DUTYCYCLE: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Port Douglas", s.Location)
	assert.Equal(t, "Port Douglas", s.TideLocation, "TIDE_LOCATION defaults to LOCATION")
	assert.Equal(t, "!abc123", s.MyNode)
	assert.Equal(t, []string{"!aaa111", "12345"}, s.MyNodes)
	assert.Equal(t, "db/nodes.db", s.DBFile)
	assert.Equal(t, DefaultBBSFile, s.BBSFile)
	assert.True(t, s.DMMode)
	assert.False(t, s.Firewall)
	assert.True(t, s.DutyCycle)
}

func TestParseTideLocation(t *testing.T) {
	s, err := Parse("settings.yaml", []byte("LOCATION: Cairns\nTIDE_LOCATION: Cairns-Australia\nTIDE_LOCATION_EXTRA: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "Cairns-Australia", s.TideLocation)
}

func TestParseRejectsWrongTypes(t *testing.T) {
	tests := []string{
		"DUTYCYCLE: sometimes\n",
		"MYNODES: \"!aaa111\"\n",
		"LOCATION: [1, 2]\n",
	}
	for _, doc := range tests {
		_, err := Parse("settings.yaml", []byte(doc))
		assert.ErrorIs(t, err, ErrInvalid, doc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
