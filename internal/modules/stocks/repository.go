package stocks

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stockwatch/internal/database"
	"github.com/aristath/stockwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// stocksColumns is the column list for the stocks table
const stocksColumns = `symbol, name, price, previous_price, change, change_percent,
sector, history, last_updated, created_at`

// StockRepository handles stock record persistence.
// Every write path runs DeriveFields.
type StockRepository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *sql.DB, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		db:  db,
		log: log.With().Str("repo", "stocks").Logger(),
		now: time.Now,
	}
}

// Find returns the record for symbol, or nil if it is not tracked
func (r *StockRepository) Find(symbol string) (*StockRecord, error) {
	query := "SELECT " + stocksColumns + " FROM stocks WHERE symbol = ?"

	row := r.db.QueryRow(query, domain.NormalizeSymbol(symbol))
	rec, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query stock %s: %w", symbol, err)
	}

	return rec, nil
}

// FindAll returns every tracked record ordered by symbol
func (r *StockRepository) FindAll() ([]StockRecord, error) {
	query := "SELECT " + stocksColumns + " FROM stocks ORDER BY symbol ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	records := make([]StockRecord, 0)
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return records, nil
}

// Symbols returns every tracked symbol ordered ascending
func (r *StockRepository) Symbols() ([]string, error) {
	rows, err := r.db.Query("SELECT symbol FROM stocks ORDER BY symbol ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}

	return symbols, rows.Err()
}

// Create inserts a new record. rec is updated in place with the derived
// fields as stored. A tracked symbol fails with DuplicateSymbol.
func (r *StockRepository) Create(rec *StockRecord) error {
	now := r.now()
	stored := DeriveFields(rec, now)
	if stored.Symbol == "" {
		return domain.NewValidationError("symbol is required")
	}
	stored.CreatedAt = now.UTC()

	history, err := encodeHistory(stored.HistoricalData)
	if err != nil {
		return err
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow("SELECT 1 FROM stocks WHERE symbol = ?", stored.Symbol).Scan(&exists)
		if err == nil {
			return domain.NewDuplicateSymbol(stored.Symbol)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check existing stock: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO stocks
			(symbol, name, price, previous_price, change, change_percent,
			 sector, history, last_updated, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			stored.Symbol,
			stored.Name,
			stored.Price,
			stored.PreviousPrice,
			stored.Change,
			stored.ChangePercent,
			stored.Sector,
			history,
			formatTime(stored.LastUpdated),
			formatTime(stored.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewDuplicateSymbol(stored.Symbol)
			}
			return fmt.Errorf("failed to insert stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	*rec = *stored
	r.log.Info().Str("symbol", stored.Symbol).Msg("Stock created")
	return nil
}

// Save overwrites an existing record with derived fields recomputed.
// rec is updated in place. An untracked symbol fails with NotFound.
func (r *StockRepository) Save(rec *StockRecord) error {
	stored := DeriveFields(rec, r.now())

	history, err := encodeHistory(stored.HistoricalData)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(`
		UPDATE stocks
		SET name = ?, price = ?, previous_price = ?, change = ?, change_percent = ?,
		    sector = ?, history = ?, last_updated = ?
		WHERE symbol = ?
	`,
		stored.Name,
		stored.Price,
		stored.PreviousPrice,
		stored.Change,
		stored.ChangePercent,
		stored.Sector,
		history,
		formatTime(stored.LastUpdated),
		stored.Symbol,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock %s: %w", stored.Symbol, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFound(stored.Symbol)
	}

	*rec = *stored
	r.log.Debug().Str("symbol", stored.Symbol).Float64("price", stored.Price).Msg("Stock saved")
	return nil
}

// Delete removes a record. An untracked symbol fails with NotFound.
func (r *StockRepository) Delete(symbol string) error {
	symbol = domain.NormalizeSymbol(symbol)

	result, err := r.db.Exec("DELETE FROM stocks WHERE symbol = ?", symbol)
	if err != nil {
		return fmt.Errorf("failed to delete stock %s: %w", symbol, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFound(symbol)
	}

	r.log.Info().Str("symbol", symbol).Msg("Stock deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (*StockRecord, error) {
	var (
		rec         StockRecord
		history     []byte
		lastUpdated string
		createdAt   string
	)

	err := row.Scan(
		&rec.Symbol,
		&rec.Name,
		&rec.Price,
		&rec.PreviousPrice,
		&rec.Change,
		&rec.ChangePercent,
		&rec.Sector,
		&history,
		&lastUpdated,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.HistoricalData, err = decodeHistory(history)
	if err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", rec.Symbol, err)
	}
	rec.LastUpdated = parseTime(lastUpdated)
	rec.CreatedAt = parseTime(createdAt)

	return &rec, nil
}

func encodeHistory(points []domain.HistoricalPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, nil
	}
	data, err := msgpack.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

func decodeHistory(data []byte) ([]domain.HistoricalPoint, error) {
	points := []domain.HistoricalPoint{}
	if len(data) == 0 {
		return points, nil
	}
	if err := msgpack.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	for i := range points {
		points[i].Date = points[i].Date.UTC()
	}
	return points, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY")
}
