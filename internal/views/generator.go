// Package views generates and runs the per-country reporting views.
package views

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const viewTemplate = `CREATE OR REPLACE VIEW %s AS
WITH ranked_customers AS (
    SELECT
        cust_i,
        name,
        open_dt,
        consul_dt,
        vac_id,
        dr_name,
        state,
        country,
        dob,
        flag,
        DATE_PART('year', CURRENT_DATE) - DATE_PART('year', dob) AS age,
        CASE
            WHEN CURRENT_DATE - consul_dt > 30 THEN TRUE
            ELSE FALSE
        END AS days_since_consul_gt_30,
        ROW_NUMBER() OVER (
            PARTITION BY cust_i
            ORDER BY consul_dt DESC NULLS LAST
        ) AS row_num
    FROM vaccination_records
    WHERE country = %s
)
SELECT
    cust_i,
    name,
    open_dt,
    consul_dt,
    vac_id,
    dr_name,
    state,
    country,
    dob,
    flag,
    age,
    days_since_consul_gt_30
FROM ranked_customers
WHERE row_num = 1;
`

// Executor runs one SQL statement.
type Executor interface {
	ExecuteSQL(query string) error
}

type Generator struct {
	dir    string
	logger *zap.Logger
}

func NewGenerator(dir string, logger *zap.Logger) *Generator {
	return &Generator{dir: dir, logger: logger}
}

// ViewName returns view_<country> in lower case with anything that is not a
// letter or digit replaced by an underscore.
func ViewName(country string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(country))
	return "view_" + name
}

// BuildSQL returns the view definition keeping, for each customer of
// country, the record with the latest consultation date.
func BuildSQL(country string) string {
	literal := "'" + strings.ReplaceAll(country, "'", "''") + "'"
	return fmt.Sprintf(viewTemplate, pgx.Identifier{ViewName(country)}.Sanitize(), literal)
}

// Generate writes one <view name>.sql file per country and returns the paths.
// Blank countries are skipped.
func (g *Generator) Generate(countries []string) ([]string, error) {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create views directory %s: %w", g.dir, err)
	}

	paths := make([]string, 0, len(countries))
	for _, country := range countries {
		if strings.TrimSpace(country) == "" {
			continue
		}
		path := filepath.Join(g.dir, ViewName(country)+".sql")
		if err := os.WriteFile(path, []byte(BuildSQL(country)), 0644); err != nil {
			return nil, fmt.Errorf("failed to write view for %s: %w", country, err)
		}
		g.logger.Info("Generated view", zap.String("country", country), zap.String("path", path))
		paths = append(paths, path)
	}

	return paths, nil
}

// Execute runs every .sql file of the views directory in name order and
// stops at the first failure.
func (g *Generator) Execute(exec Executor) error {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return fmt.Errorf("failed to list views directory %s: %w", g.dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		query, err := os.ReadFile(filepath.Join(g.dir, name))
		if err != nil {
			return fmt.Errorf("failed to read view %s: %w", name, err)
		}
		if err := exec.ExecuteSQL(string(query)); err != nil {
			return fmt.Errorf("failed to execute view %s: %w", name, err)
		}
		g.logger.Info("Executed view", zap.String("file", name))
	}

	g.logger.Info("All country views executed", zap.Int("count", len(files)))
	return nil
}
