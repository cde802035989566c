package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/boda2004/game-catalog/internal/domain"
)

func (db *DB) CreateJob(userID string, jobType domain.JobType, total int) (*domain.ImportJob, error) {
	now := time.Now()
	job := &domain.ImportJob{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      jobType,
		Status:    domain.JobStatusRunning,
		Total:     total,
		Completed: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.NamedExec(`INSERT INTO import_jobs (id, user_id, type, status, total, completed, created_at, updated_at)
		VALUES (:id, :user_id, :type, :status, :total, :completed, :created_at, :updated_at)`, job)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CreatePendingJob inserts a job before the batch starts so a caller can
// subscribe to its progress immediately.
func (db *DB) CreatePendingJob(userID string, jobType domain.JobType) (*domain.ImportJob, error) {
	now := time.Now()
	job := &domain.ImportJob{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      jobType,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.NamedExec(`INSERT INTO import_jobs (id, user_id, type, status, total, completed, created_at, updated_at)
		VALUES (:id, :user_id, :type, :status, :total, :completed, :created_at, :updated_at)`, job)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (db *DB) GetJob(id string) (*domain.ImportJob, error) {
	var job domain.ImportJob
	err := db.Get(&job, `SELECT * FROM import_jobs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// StartJob revises the total and marks the job running, for jobs pre-created
// by the caller before the item list was known.
func (db *DB) StartJob(id string, total int) error {
	_, err := db.Exec(`UPDATE import_jobs SET total = ?, status = ?, updated_at = ? WHERE id = ?`,
		total, domain.JobStatusRunning, time.Now(), id)
	return err
}

func (db *DB) UpdateJobProgress(id string, completed int) error {
	_, err := db.Exec(`UPDATE import_jobs SET completed = ?, updated_at = ? WHERE id = ?`,
		completed, time.Now(), id)
	return err
}

func (db *DB) CompleteJob(id string) error {
	_, err := db.Exec(`UPDATE import_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		domain.JobStatusCompleted, time.Now(), id)
	return err
}

func (db *DB) FailJob(id string, errorMsg string) error {
	_, err := db.Exec(`UPDATE import_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		domain.JobStatusFailed, errorMsg, time.Now(), id)
	return err
}

func (db *DB) ListJobs(userID string, limit int) ([]*domain.ImportJob, error) {
	var jobs []*domain.ImportJob
	err := db.Select(&jobs, `SELECT * FROM import_jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
