package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultColumnMap(t *testing.T) {
	m := DefaultColumnMap()

	t.Run("duplicate entries keep their first position", func(t *testing.T) {
		assert.Equal(t, 20, m.Len())
		assert.Equal(t, []string{"VaccinationType", "Vaccine Type"}, m.SourcesFor(VaccinationId))
		assert.Equal(t, []string{"VaccinationDate", "Date of Vaccination"}, m.SourcesFor(OpenDate))
	})

	t.Run("declared precedence per target", func(t *testing.T) {
		assert.Equal(t, []string{"Date of Birth", "DOB"}, m.SourcesFor(DateOfBirth))
		assert.Equal(t, []string{"ID", "Unique ID"}, m.SourcesFor(CustomerId))
		assert.Equal(t, []string{"Postal Code", "Post Code"}, m.SourcesFor(PostalCode))
	})

	t.Run("lookups", func(t *testing.T) {
		target, ok := m.Target("State/Province")
		assert.True(t, ok)
		assert.Equal(t, State, target)

		_, ok = m.Target("Favourite Colour")
		assert.False(t, ok)
	})

	t.Run("every target is in the canonical vocabulary", func(t *testing.T) {
		known := append(MandatoryFields(), OptionalFields()...)
		for _, e := range m.Entries() {
			assert.Contains(t, known, e.Target, e.Source)
		}
	})

	t.Run("entries are copies", func(t *testing.T) {
		entries := m.Entries()
		entries[0].Target = Country
		target, _ := m.Target("ID")
		assert.Equal(t, CustomerId, target)
	})
}

func TestNewColumnMap(t *testing.T) {
	t.Run("rejects unknown target", func(t *testing.T) {
		_, err := NewColumnMap([]Mapping{{Source: "X", Target: "Nope"}})
		assert.ErrorContains(t, err, "unknown field")
	})

	t.Run("rejects conflicting duplicate", func(t *testing.T) {
		_, err := NewColumnMap([]Mapping{{"ID", CustomerId}, {"ID", CustomerName}})
		assert.ErrorContains(t, err, "mapped to both")
	})

	t.Run("rejects empty source", func(t *testing.T) {
		_, err := NewColumnMap([]Mapping{{"", CustomerId}})
		assert.Error(t, err)
	})
}

func TestParseColumnMap(t *testing.T) {
	data := []byte(`
columns:
  - source: Patient
    target: CustomerName
  - source: PatientNo
    target: CustomerId
  - source: Given
    target: OpenDate
`)
	m, err := ParseColumnMap(data)
	require.NoError(t, err)

	want := []Mapping{
		{Source: "Patient", Target: CustomerName},
		{Source: "PatientNo", Target: CustomerId},
		{Source: "Given", Target: OpenDate},
	}
	if diff := cmp.Diff(want, m.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseColumnMap([]byte("columns: []"))
	assert.Error(t, err)

	_, err = ParseColumnMap([]byte("columns: [source"))
	assert.Error(t, err)
}

func TestLoadColumnMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "columns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns:\n  - source: Nome\n    target: CustomerName\n"), 0644))

	m, err := LoadColumnMap(path)
	require.NoError(t, err)
	target, ok := m.Target("Nome")
	assert.True(t, ok)
	assert.Equal(t, CustomerName, target)

	_, err = LoadColumnMap(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestExternalMap(t *testing.T) {
	m := DefaultExternalMap()

	assert.Equal(t, "Cust_I", m.Name(CustomerId))
	assert.Equal(t, "Open_Dt", m.Name(OpenDate))
	assert.Equal(t, "FLAG", m.Name(IsActive))
	assert.Equal(t, "PostalCode", m.Name(PostalCode))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "ID", NormalizeHeader("\uFEFFID"))
	assert.Equal(t, "Patient Name", NormalizeHeader("  Patient Name\t"))
	// e + combining acute composes to a single rune
	assert.Equal(t, "Caf\u00e9", NormalizeHeader("Cafe\u0301"))
}

func TestFields(t *testing.T) {
	assert.True(t, OpenDate.IsMandatory())
	assert.False(t, DateOfBirth.IsMandatory())
	assert.True(t, IsActive.IsKnown())
	assert.False(t, Field("Email").IsKnown())
	assert.Len(t, AllFields(), 11)
}
