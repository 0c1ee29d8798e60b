package stocks

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// RefreshRunRepository stores batch refresh reports
type RefreshRunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRefreshRunRepository creates a new refresh run repository
func NewRefreshRunRepository(db *sql.DB, log zerolog.Logger) *RefreshRunRepository {
	return &RefreshRunRepository{
		db:  db,
		log: log.With().Str("repo", "refresh_runs").Logger(),
	}
}

// Record stores a finished report
func (r *RefreshRunRepository) Record(report *RefreshReport) error {
	data, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode refresh report: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO refresh_runs
		(id, trigger_source, started_at, finished_at, succeeded_count, failed_count, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.Trigger,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		len(report.Succeeded),
		len(report.Failed),
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh run: %w", err)
	}

	return nil
}

// Recent returns up to limit reports, newest first
func (r *RefreshRunRepository) Recent(limit int) ([]RefreshReport, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query("SELECT report FROM refresh_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh runs: %w", err)
	}
	defer rows.Close()

	reports := make([]RefreshReport, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan refresh run: %w", err)
		}

		var report RefreshReport
		if err := msgpack.Unmarshal(data, &report); err != nil {
			r.log.Warn().Err(err).Msg("Skipping undecodable refresh run")
			continue
		}
		report.StartedAt = report.StartedAt.UTC()
		report.FinishedAt = report.FinishedAt.UTC()
		if report.Succeeded == nil {
			report.Succeeded = []string{}
		}
		if report.Failed == nil {
			report.Failed = []RefreshFailure{}
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refresh runs: %w", err)
	}

	return reports, nil
}

// Prune deletes all but the newest keep reports
func (r *RefreshRunRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM refresh_runs
		WHERE id NOT IN (SELECT id FROM refresh_runs ORDER BY started_at DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune refresh runs: %w", err)
	}

	return result.RowsAffected()
}
