package schema

import (
	"fmt"
)

// ExpectedHeader is the sentinel row some legacy exports start with.
const ExpectedHeader = "|H|Customer_Name|Customer_Id|Open_Date|Last_Consulted_Date|Vaccination_Id|Dr_Name|State|Country|DOB|Is_Active"

// Mapping binds one source column spelling to a canonical field.
type Mapping struct {
	Source string `yaml:"source"`
	Target Field  `yaml:"target"`
}

// ColumnMap is an ordered many-to-one mapping from source column names to
// canonical fields. Declaration order decides coalescing precedence. A
// ColumnMap is never mutated after construction and is safe to share.
type ColumnMap struct {
	entries []Mapping
	index   map[string]Field
}

var defaultColumnEntries = []Mapping{
	{"ID", CustomerId},
	{"Name", CustomerName},
	{"VaccinationType", VaccinationId},
	{"VaccinationDate", OpenDate},

	{"Unique ID", CustomerId},
	{"Patient Name", CustomerName},
	{"Vaccine Type", VaccinationId},
	{"Date of Birth", DateOfBirth},
	{"Date of Vaccination", OpenDate},

	{"DOB", DateOfBirth},
	{"VaccinationType", VaccinationId},
	{"VaccinationDate", OpenDate},

	{"Doctor Name", DoctorName},
	{"Doctor", DoctorName},
	{"State/Province", State},
	{"State", State},
	{"Country Name", Country},
	{"Country", Country},
	{"Consultation Date", LastConsultedDate},
	{"Last Consulted Date", LastConsultedDate},
	{"Postal Code", PostalCode},
	{"Post Code", PostalCode},
}

// DefaultColumnMap returns the built-in source column spellings.
func DefaultColumnMap() ColumnMap {
	m, err := NewColumnMap(defaultColumnEntries)
	if err != nil {
		panic(err)
	}
	return m
}

// NewColumnMap validates entries and builds a ColumnMap. A source listed twice
// with the same target keeps its first position; with a different target it
// is rejected.
func NewColumnMap(entries []Mapping) (ColumnMap, error) {
	m := ColumnMap{
		entries: make([]Mapping, 0, len(entries)),
		index:   make(map[string]Field, len(entries)),
	}

	for _, e := range entries {
		if e.Source == "" {
			return ColumnMap{}, fmt.Errorf("column map entry with empty source for target %q", e.Target)
		}
		if !e.Target.IsKnown() {
			return ColumnMap{}, fmt.Errorf("column %q maps to unknown field %q", e.Source, e.Target)
		}
		if existing, ok := m.index[e.Source]; ok {
			if existing != e.Target {
				return ColumnMap{}, fmt.Errorf("column %q mapped to both %q and %q", e.Source, existing, e.Target)
			}
			continue
		}
		m.index[e.Source] = e.Target
		m.entries = append(m.entries, e)
	}

	return m, nil
}

// Target returns the canonical field a source column maps to.
func (m ColumnMap) Target(source string) (Field, bool) {
	f, ok := m.index[source]
	return f, ok
}

// SourcesFor lists the source columns mapping to target, in declared order.
func (m ColumnMap) SourcesFor(target Field) []string {
	var sources []string
	for _, e := range m.entries {
		if e.Target == target {
			sources = append(sources, e.Source)
		}
	}
	return sources
}

func (m ColumnMap) Entries() []Mapping {
	out := make([]Mapping, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m ColumnMap) Len() int {
	return len(m.entries)
}

// ExternalMap renames canonical fields to warehouse column names.
type ExternalMap struct {
	names map[Field]string
}

// DefaultExternalMap returns the intermediate warehouse table naming.
func DefaultExternalMap() ExternalMap {
	return NewExternalMap(map[Field]string{
		CustomerName:      "Name",
		CustomerId:        "Cust_I",
		OpenDate:          "Open_Dt",
		LastConsultedDate: "Consul_Dt",
		VaccinationId:     "VAC_ID",
		DoctorName:        "DR_Name",
		State:             "State",
		Country:           "Country",
		DateOfBirth:       "DOB",
		IsActive:          "FLAG",
	})
}

func NewExternalMap(names map[Field]string) ExternalMap {
	copied := make(map[Field]string, len(names))
	for k, v := range names {
		copied[k] = v
	}
	return ExternalMap{names: copied}
}

// Name returns the external name of f, or f itself when it is not renamed.
func (m ExternalMap) Name(f Field) string {
	if name, ok := m.names[f]; ok {
		return name
	}
	return string(f)
}
