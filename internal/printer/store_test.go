package printer

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func octoProfile(name string) *Profile {
	p := NewProfile(name, ConnectionOctoPrint)
	p.APIURL = "http://octopi.local"
	p.APIKey = "secret"
	return p
}

func TestStoreCRUD(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "printers.json"))

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	saved, err := s.Save(octoProfile("Prusa MK4"))
	require.NoError(t, err)
	assert.Contains(t, saved.ID, "printer_")
	assert.False(t, saved.Modified.IsZero())

	got, err := s.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Prusa MK4", got.Name)

	got.Name = "Prusa MK4S"
	_, err = s.Save(got)
	require.NoError(t, err)

	list, err = s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Prusa MK4S", list[0].Name)

	require.NoError(t, s.Delete(saved.ID))
	_, err = s.Get(saved.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.ErrorIs(t, s.Delete(saved.ID), ErrProfileNotFound)
}

func TestStoreRejectsInvalidProfile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "printers.json"))

	_, err := s.Save(NewProfile("Broken", ConnectionKlipper))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"API URL is required", "API key is required"}, verr.Problems)
}

func TestStoreDefault(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "printers.json"))

	_, err := s.Default()
	assert.ErrorIs(t, err, ErrNoProfiles)

	first, err := s.Save(octoProfile("first"))
	require.NoError(t, err)
	second, err := s.Save(octoProfile("second"))
	require.NoError(t, err)

	def, err := s.Default()
	require.NoError(t, err)
	assert.Equal(t, first.ID, def.ID, "first profile when unset")

	require.NoError(t, s.SetDefault(second.ID))
	def, err = s.Default()
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	assert.ErrorIs(t, s.SetDefault("printer_missing"), ErrProfileNotFound)

	require.NoError(t, s.Delete(second.ID))
	id, err := s.DefaultID()
	require.NoError(t, err)
	assert.Empty(t, id, "deleting the default clears it")
}

func TestStoreExportImport(t *testing.T) {
	src := NewStore(filepath.Join(t.TempDir(), "printers.json"))
	p, err := src.Save(octoProfile("shop"))
	require.NoError(t, err)
	require.NoError(t, src.SetDefault(p.ID))

	data, err := src.Export()
	require.NoError(t, err)

	var backup Backup
	require.NoError(t, json.Unmarshal(data, &backup))
	assert.Equal(t, 1, backup.Version)
	assert.Equal(t, p.ID, backup.DefaultPrinterID)

	dst := NewStore(filepath.Join(t.TempDir(), "other.json"))
	n, err := dst.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	def, err := dst.Default()
	require.NoError(t, err)
	assert.Equal(t, "shop", def.Name)

	_, err = dst.Import([]byte(`{"version":1}`))
	assert.Error(t, err)
	_, err = dst.Import([]byte(`not json`))
	assert.Error(t, err)
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		problems []string
	}{
		{"slicer ok", Profile{Name: "a", Type: ConnectionSlicer, SlicerPath: "/usr/bin/prusa-slicer"}, nil},
		{"slicer path", Profile{Name: "a", Type: ConnectionSlicer}, []string{"Slicer path is required"}},
		{"usb port", Profile{Name: "a", Type: ConnectionUSB}, []string{"Serial port is required"}},
		{"missing all", Profile{}, []string{"Printer name is required", "Connection type is required"}},
		{"unknown type", Profile{Name: "a", Type: "fax"}, []string{`Unknown connection type "fax"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.problems == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.problems, verr.Problems)
		})
	}
}

func TestDefaultSlicerPaths(t *testing.T) {
	assert.Equal(t, "/usr/bin/prusa-slicer", defaultSlicerPathFor("linux", SlicerPrusaSlicer))
	assert.Equal(t, "/Applications/OrcaSlicer.app/Contents/MacOS/OrcaSlicer", defaultSlicerPathFor("darwin", SlicerOrcaSlicer))
	assert.Empty(t, defaultSlicerPathFor("plan9", SlicerCura))

	assert.Contains(t, SlicerInstructions(SlicerCura), "Open Cura")
	assert.Contains(t, SlicerInstructions("unknown"), "import the downloaded STL")
}
