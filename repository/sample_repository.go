package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"samplecrate/db"
	"samplecrate/logger"
	"samplecrate/model"
)

// SampleRepository defines the interface for sample data operations.
type SampleRepository interface {
	CreateSample(sample *model.Sample) (int64, error)
	GetSampleByID(id int64) (*model.Sample, error)
	GetAllSamplesByUserID(userID int64) ([]model.Sample, error)
	SetFavorite(userID, sampleID int64, favorite bool) error
	ListFolderSampleIDs(userID int64, folderPath string) ([]int64, error)
	BatchDeleteSamples(ctx context.Context, userID int64, ids []int64) ([]string, error)
}

// mysqlSampleRepository implements SampleRepository for MySQL.
type mysqlSampleRepository struct {
	DB *sql.DB
}

// NewMySQLSampleRepository creates a new instance of mysqlSampleRepository.
func NewMySQLSampleRepository() SampleRepository {
	return &mysqlSampleRepository{DB: db.DB}
}

// sampleColumns selects sample rows together with their curation counters.
const sampleColumns = `
	SELECT s.id, s.user_id, s.name, s.file_path, COALESCE(s.format, ''),
	       s.sample_rate, s.channels, s.size_bytes, s.favorite,
	       COALESCE(s.content_hash, ''), COALESCE(s.fingerprint, ''),
	       s.created_at, s.updated_at,
	       COALESCE(t.cnt, 0) AS tags_count, COALESCE(f.cnt, 0) AS folder_count
	FROM samples s
	LEFT JOIN (SELECT sample_id, COUNT(*) AS cnt FROM sample_tags GROUP BY sample_id) t ON t.sample_id = s.id
	LEFT JOIN (SELECT sample_id, COUNT(*) AS cnt FROM sample_folders GROUP BY sample_id) f ON f.sample_id = s.id`

func scanSample(scanner interface{ Scan(...any) error }) (model.Sample, error) {
	var s model.Sample
	var createdAt sql.NullTime
	err := scanner.Scan(&s.ID, &s.UserID, &s.Name, &s.FilePath, &s.Format,
		&s.SampleRate, &s.Channels, &s.SizeBytes, &s.Favorite,
		&s.ContentHash, &s.Fingerprint,
		&createdAt, &s.UpdatedAt, &s.TagsCount, &s.FolderCount)
	if err != nil {
		return model.Sample{}, err
	}
	if createdAt.Valid {
		t := createdAt.Time
		s.CreatedAt = &t
	}
	return s, nil
}

// CreateSample adds a new sample to the database.
func (r *mysqlSampleRepository) CreateSample(sample *model.Sample) (int64, error) {
	query := `INSERT INTO samples (user_id, name, file_path, format, sample_rate, channels, size_bytes, favorite, content_hash, fingerprint, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateSample: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(sample.UserID, sample.Name, sample.FilePath, sample.Format,
		sample.SampleRate, sample.Channels, sample.SizeBytes, sample.Favorite,
		sample.ContentHash, sample.Fingerprint, sample.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateSample: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateSample: %w", err)
	}
	return id, nil
}

// GetSampleByID retrieves a sample by its ID.
func (r *mysqlSampleRepository) GetSampleByID(id int64) (*model.Sample, error) {
	row := r.DB.QueryRow(sampleColumns+` WHERE s.id = ?`, id)
	s, err := scanSample(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Sample not found
		}
		return nil, fmt.Errorf("failed to scan sample by ID %d: %w", id, err)
	}
	return &s, nil
}

// GetAllSamplesByUserID retrieves every sample in a user's library, with
// tag and folder counts, in ascending id order.
func (r *mysqlSampleRepository) GetAllSamplesByUserID(userID int64) ([]model.Sample, error) {
	rows, err := r.DB.Query(sampleColumns+` WHERE s.user_id = ? ORDER BY s.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples for user ID %d: %w", userID, err)
	}
	defer rows.Close()

	samples := make([]model.Sample, 0)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample in GetAllSamplesByUserID: %w", err)
		}
		samples = append(samples, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAllSamplesByUserID: %w", err)
	}
	return samples, nil
}

// SetFavorite flips the favorite flag on a sample.
func (r *mysqlSampleRepository) SetFavorite(userID, sampleID int64, favorite bool) error {
	res, err := r.DB.Exec(`UPDATE samples SET favorite = ? WHERE id = ? AND user_id = ?`,
		favorite, sampleID, userID)
	if err != nil {
		return fmt.Errorf("failed to update favorite for sample ID %d: %w", sampleID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("sample %d not found for user %d", sampleID, userID)
	}
	return nil
}

// ListFolderSampleIDs returns the ids of samples in a virtual folder,
// used as the current browsing scope.
func (r *mysqlSampleRepository) ListFolderSampleIDs(userID int64, folderPath string) ([]int64, error) {
	query := `SELECT s.id FROM samples s
	          JOIN sample_folders f ON f.sample_id = s.id
	          WHERE s.user_id = ? AND f.folder_path = ? ORDER BY s.id ASC`
	rows, err := r.DB.Query(query, userID, folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to query folder samples for user ID %d: %w", userID, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan folder sample id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListFolderSampleIDs: %w", err)
	}
	return ids, nil
}

// BatchDeleteSamples removes the given samples and their tag/folder
// assignments in a single transaction. It returns the file paths of the
// deleted samples so the caller can remove the stored objects. Ids that no
// longer exist are skipped, which makes a retried delete idempotent.
func (r *mysqlSampleRepository) BatchDeleteSamples(ctx context.Context, userID int64, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT file_path FROM samples WHERE user_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query file paths for delete: %w", err)
	}
	paths := make([]string, 0, len(ids))
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file path for delete: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating file paths for delete: %w", err)
	}
	rows.Close()

	idArgs := args[1:]
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sample_tags WHERE sample_id IN (`+placeholders+`)`, idArgs...); err != nil {
		return nil, fmt.Errorf("failed to delete sample tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sample_folders WHERE sample_id IN (`+placeholders+`)`, idArgs...); err != nil {
		return nil, fmt.Errorf("failed to delete sample folders: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM samples WHERE user_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete samples: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete transaction: %w", err)
	}

	deleted, _ := res.RowsAffected()
	logger.Info("samples deleted",
		logger.Int64("userId", userID),
		logger.Int64("deleted", deleted),
		logger.Int("requested", len(ids)))
	return paths, nil
}
