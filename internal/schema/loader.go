package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type columnMapFile struct {
	Columns []Mapping `yaml:"columns"`
}

// LoadColumnMap reads a YAML column map of the form
//
//	columns:
//	  - source: ID
//	    target: CustomerId
func LoadColumnMap(path string) (ColumnMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ColumnMap{}, fmt.Errorf("failed to read column map %s: %w", path, err)
	}
	m, err := ParseColumnMap(data)
	if err != nil {
		return ColumnMap{}, fmt.Errorf("invalid column map %s: %w", path, err)
	}
	return m, nil
}

func ParseColumnMap(data []byte) (ColumnMap, error) {
	var file columnMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ColumnMap{}, err
	}
	if len(file.Columns) == 0 {
		return ColumnMap{}, fmt.Errorf("no columns defined")
	}
	return NewColumnMap(file.Columns)
}
