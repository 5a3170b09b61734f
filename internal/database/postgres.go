package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/dates"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
)

type column struct {
	name string
	key  string
	date bool
}

// recordColumns binds vaccination_records columns to external record keys.
var recordColumns = []column{
	{name: "name", key: "Name"},
	{name: "cust_i", key: "Cust_I"},
	{name: "open_dt", key: "Open_Dt", date: true},
	{name: "consul_dt", key: "Consul_Dt", date: true},
	{name: "vac_id", key: "VAC_ID"},
	{name: "dr_name", key: "DR_Name"},
	{name: "state", key: "State"},
	{name: "country", key: "Country"},
	{name: "dob", key: "DOB", date: true},
	{name: "flag", key: "FLAG"},
	{name: "postal_code", key: "PostalCode"},
}

func ConnectDB(connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	return dbpool, nil
}

// StagingTableName names the staging table owned by DB worker n.
func StagingTableName(n int) string {
	return fmt.Sprintf("vaccination_records_staging_worker_%d", n)
}

type PostgresDBManager struct {
	dbpool *pgxpool.Pool
	ctx    context.Context
	logger *zap.Logger
}

func NewPostgresDBManager(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) *PostgresDBManager {
	return &PostgresDBManager{dbpool: pool, ctx: ctx, logger: logger}
}

func (m *PostgresDBManager) CreateFileRecordsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS file_records (
		id SERIAL PRIMARY KEY,
		file_name VARCHAR(255) NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		status VARCHAR(50) NOT NULL CHECK (status IN ('DONE', 'DONE_WITH_ERRORS', 'PROCESSING', 'FATAL')),
		checksum VARCHAR(64),
		run_id UUID,
		errors jsonb
	);`

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating file_records table: %v", err)
	}

	return nil
}

// The unique checksum index backs ON CONFLICT in both insert paths and is
// never dropped during a load.
const createVaccinationRecordsTable = `
	CREATE TABLE IF NOT EXISTS vaccination_records (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		cust_i TEXT NOT NULL,
		open_dt DATE NOT NULL,
		consul_dt DATE,
		vac_id TEXT,
		dr_name TEXT,
		state TEXT,
		country TEXT,
		dob DATE,
		flag TEXT,
		postal_code TEXT,
		file_id INTEGER,
		checksum VARCHAR(64) NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_vaccination_records_checksum ON vaccination_records (checksum);`

func (m *PostgresDBManager) CreateVaccinationRecordsTable() error {
	query := createVaccinationRecordsTable

	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error creating vaccination_records table: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) CreateVaccinationRecordIndexes() error {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS idx_vaccination_records_country ON vaccination_records (country, cust_i, consul_dt DESC);`,
	}

	for _, query := range queries {
		_, err := m.dbpool.Exec(m.ctx, query)
		if err != nil {
			return fmt.Errorf("error creating index: %v", err)
		}
	}

	return nil
}

func (m *PostgresDBManager) DropVaccinationRecordIndexes() error {
	queries := []string{
		`DROP INDEX IF EXISTS idx_vaccination_records_country`,
	}

	for _, query := range queries {
		_, err := m.dbpool.Exec(m.ctx, query)
		if err != nil {
			return fmt.Errorf("error dropping index: %v", err)
		}
	}

	return nil
}

func (m *PostgresDBManager) rollback(tx pgx.Tx) {
	if err := tx.Rollback(m.ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		m.logger.Error("Error rolling back transaction", zap.Error(err))
	}
}

func (m *PostgresDBManager) CreateWorkerStagingTables(numTables int) ([]string, error) {
	if numTables <= 0 {
		return nil, nil
	}

	stagingTableNames := make([]string, numTables)
	for w := 1; w <= numTables; w++ {
		stagingTableNames[w-1] = StagingTableName(w)
	}

	tx, err := m.dbpool.Begin(m.ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %v", err)
	}
	defer m.rollback(tx)

	rows, err := tx.Query(m.ctx, `SELECT tablename FROM pg_tables WHERE tablename = ANY($1)`, stagingTableNames)
	if err != nil {
		return nil, fmt.Errorf("error checking existing staging tables: %w", err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning tablename: %w", err)
	}

	existingTables := make(map[string]bool, len(existing))
	for _, name := range existing {
		existingTables[name] = true
	}

	for _, tableName := range stagingTableNames {
		if existingTables[tableName] {
			m.logger.Info("Staging table already exists, skipping creation", zap.String("table", tableName))
			continue
		}

		query := fmt.Sprintf(`CREATE UNLOGGED TABLE IF NOT EXISTS %s (LIKE vaccination_records INCLUDING DEFAULTS);`,
			pgx.Identifier{tableName}.Sanitize())
		if _, err := tx.Exec(m.ctx, query); err != nil {
			return nil, fmt.Errorf("error creating worker staging table %s: %v", tableName, err)
		}
		m.logger.Info("Created staging table", zap.String("table", tableName))
	}

	if err := tx.Commit(m.ctx); err != nil {
		return nil, fmt.Errorf("error committing transaction: %v", err)
	}

	return stagingTableNames, nil
}

func (m *PostgresDBManager) DropWorkerStagingTable(tableName string) error {
	query := fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, pgx.Identifier{tableName}.Sanitize())
	_, err := m.dbpool.Exec(m.ctx, query)
	if err != nil {
		return fmt.Errorf("error dropping worker staging table %s: %v", tableName, err)
	}
	return nil
}

func (m *PostgresDBManager) InsertFileRecord(fileName string, date time.Time, status string, checksum string, runID string) (int, error) {
	query := `
	INSERT INTO file_records (file_name, processed_at, status, checksum, run_id)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id;`

	var fileID int
	err := m.dbpool.QueryRow(m.ctx, query, fileName, date, status, checksum, runID).Scan(&fileID)
	if err != nil {
		return 0, fmt.Errorf("error inserting file record: %v", err)
	}

	return fileID, nil
}

func (m *PostgresDBManager) UpdateFileStatus(fileID int, status string, errors any) error {
	query := `
	UPDATE file_records
	SET status = $1,
		errors = $2
	WHERE id = $3;`

	_, err := m.dbpool.Exec(m.ctx, query, status, errors, fileID)
	if err != nil {
		return fmt.Errorf("error updating file status: %v", err)
	}

	return nil
}

func (m *PostgresDBManager) IsFileAlreadyProcessed(checksum string) (bool, error) {
	query := `
	SELECT id
	FROM file_records
	WHERE checksum = $1 AND status = 'DONE'
	LIMIT 1;`

	var id int
	err := m.dbpool.QueryRow(m.ctx, query, checksum).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error finding file record by checksum: %v", err)
	}

	return true, nil
}

// HasVaccinationRecords reports whether the main table holds any row. An
// empty table can be loaded without the per-row existence check.
func (m *PostgresDBManager) HasVaccinationRecords() (bool, error) {
	var exists bool
	err := m.dbpool.QueryRow(m.ctx, `SELECT EXISTS (SELECT 1 FROM vaccination_records);`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking vaccination_records content: %w", err)
	}
	return exists, nil
}

func copyColumns() []string {
	names := make([]string, 0, len(recordColumns)+2)
	names = append(names, "checksum")
	for _, c := range recordColumns {
		names = append(names, c.name)
	}
	return append(names, "file_id")
}

// copyRow lays out record in copyColumns order. Missing or null values
// become SQL NULL.
func copyRow(record *models.VaccinationRecord) []any {
	row := make([]any, 0, len(recordColumns)+2)
	row = append(row, record.CheckSum)
	for _, c := range recordColumns {
		v := record.Values[c.key]
		if c.date {
			row = append(row, dateValue(v))
		} else {
			row = append(row, textValue(v))
		}
	}
	return append(row, record.FileID)
}

func textValue(v any) pgtype.Text {
	switch t := v.(type) {
	case nil:
		return pgtype.Text{}
	case string:
		return pgtype.Text{String: t, Valid: true}
	default:
		return pgtype.Text{String: fmt.Sprint(t), Valid: true}
	}
}

func dateValue(v any) pgtype.Date {
	d, ok := v.(dates.Date)
	if !ok || d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func (m *PostgresDBManager) copyIntoStagingTable(tx pgx.Tx, records []*models.VaccinationRecord, stagingTableName string) error {
	copySource := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		return copyRow(records[i]), nil
	})

	_, err := tx.CopyFrom(m.ctx, pgx.Identifier{stagingTableName}, copyColumns(), copySource)
	return err
}

// insertAllQuery moves every staged record into vaccination_records. The
// unique checksum index still drops rows stored by other workers.
func insertAllQuery(stagingTableName string) string {
	columns := strings.Join(copyColumns(), ", ")
	return fmt.Sprintf(`
	INSERT INTO vaccination_records (%[1]s)
	SELECT DISTINCT ON (checksum) %[1]s
	FROM %[2]s
	ON CONFLICT (checksum) DO NOTHING;
	`, columns, pgx.Identifier{stagingTableName}.Sanitize())
}

// insertDiffQuery skips staged checksums already stored before touching the
// index. Its result is the same as insertAllQuery.
func insertDiffQuery(stagingTableName string) string {
	columns := strings.Join(copyColumns(), ", ")
	return fmt.Sprintf(`
	WITH staging_diff AS (
		SELECT DISTINCT ON (s.checksum) s.*
		FROM %[2]s s
		WHERE NOT EXISTS (
			SELECT 1
			FROM vaccination_records v
			WHERE v.checksum = s.checksum
		)
	)
	INSERT INTO vaccination_records (%[1]s)
	SELECT %[1]s
	FROM staging_diff
	ON CONFLICT (checksum) DO NOTHING;
	`, columns, pgx.Identifier{stagingTableName}.Sanitize())
}

func (m *PostgresDBManager) InsertAllStagingTableData(records []*models.VaccinationRecord, stagingTableName string) error {
	return m.loadThroughStaging(records, stagingTableName, insertAllQuery(stagingTableName))
}

func (m *PostgresDBManager) InsertDiffFromStagingTable(records []*models.VaccinationRecord, stagingTableName string) error {
	return m.loadThroughStaging(records, stagingTableName, insertDiffQuery(stagingTableName))
}

func (m *PostgresDBManager) loadThroughStaging(records []*models.VaccinationRecord, stagingTableName, insertQuery string) error {
	tx, err := m.dbpool.Begin(m.ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %v", err)
	}
	defer m.rollback(tx)

	m.logger.Debug("Bulk loading records into staging table",
		zap.Int("records", len(records)),
		zap.String("table", stagingTableName))
	if err := m.copyIntoStagingTable(tx, records, stagingTableName); err != nil {
		return fmt.Errorf("unable to copy records to staging table %s: %v", stagingTableName, err)
	}

	if _, err := tx.Exec(m.ctx, insertQuery); err != nil {
		return fmt.Errorf("error inserting data from staging table %s: %v", stagingTableName, err)
	}

	truncateQuery := fmt.Sprintf(`TRUNCATE %s;`, pgx.Identifier{stagingTableName}.Sanitize())
	if _, err := tx.Exec(m.ctx, truncateQuery); err != nil {
		m.logger.Warn("Failed to truncate staging table", zap.String("table", stagingTableName), zap.Error(err))
	}

	return tx.Commit(m.ctx)
}

func (m *PostgresDBManager) DistinctCountries() ([]string, error) {
	rows, err := m.dbpool.Query(m.ctx, `
	SELECT DISTINCT country
	FROM vaccination_records
	WHERE country IS NOT NULL AND country <> ''
	ORDER BY country;`)
	if err != nil {
		return nil, fmt.Errorf("error querying distinct countries: %w", err)
	}

	countries, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning countries: %w", err)
	}
	return countries, nil
}

func (m *PostgresDBManager) ExecuteSQL(query string) error {
	if _, err := m.dbpool.Exec(m.ctx, query); err != nil {
		return fmt.Errorf("error executing statement: %w", err)
	}
	return nil
}

func (m *PostgresDBManager) GetCountrySummary(country string) (*models.CountrySummary, error) {
	summary := &models.CountrySummary{Country: country}

	query := `
	SELECT
		COUNT(*),
		COUNT(DISTINCT cust_i),
		MAX(consul_dt)
	FROM vaccination_records
	WHERE country = $1;`

	var lastConsulted pgtype.Date
	err := m.dbpool.QueryRow(m.ctx, query, country).Scan(&summary.Records, &summary.Customers, &lastConsulted)
	if err != nil {
		return nil, fmt.Errorf("error querying country summary: %w", err)
	}
	if lastConsulted.Valid {
		t := lastConsulted.Time
		summary.LastConsulted = &t
	}

	return summary, nil
}
