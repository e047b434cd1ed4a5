// Copyright 2025 Find Partner, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Postgres-backed implementation of the repository interfaces via GORM. The
// idempotency guard is the unique index on analyses.media_record_id; Claim
// leans on ON CONFLICT DO NOTHING so concurrent claimers settle in the
// database, and all status updates are guarded by WHERE clauses on the
// current status so a terminal row can never be rewritten.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
)

// GormStore implements Store over a *gorm.DB.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&model.MediaRecord{}, &model.Analysis{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Open connects to Postgres with the given DSN and returns a migrated store.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, model.NewFailure(model.FailureSetup, fmt.Errorf("failed to connect to postgres: %w", err))
	}
	slog.Info("connected to postgres")
	return NewGormStore(db)
}

func (s *GormStore) Media() MediaRepository       { return &gormMediaRepo{db: s.db} }
func (s *GormStore) Analyses() AnalysisRepository { return &gormAnalysisRepo{db: s.db} }

// Ping verifies database connectivity. Used as the batch setup check.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return model.NewFailure(model.FailureSetup, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return model.NewFailure(model.FailureSetup, fmt.Errorf("database unreachable: %w", err))
	}
	return nil
}

type gormMediaRepo struct {
	db *gorm.DB
}

func (r *gormMediaRepo) Create(ctx context.Context, record *model.MediaRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *gormMediaRepo) Get(ctx context.Context, id string) (*model.MediaRecord, error) {
	var record model.MediaRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.Failuref(model.FailureNotFound, "media record %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormMediaRepo) GetByDriveFileID(ctx context.Context, driveFileID string) (*model.MediaRecord, error) {
	var record model.MediaRecord
	err := r.db.WithContext(ctx).First(&record, "google_drive_file_id = ?", driveFileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.Failuref(model.FailureNotFound, "no media record for drive file %s", driveFileID)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormMediaRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.MediaRecord, error) {
	var records []model.MediaRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *gormMediaRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.MediaRecord{}).
		Where("owner_id = ?", ownerID).
		Count(&n).Error
	return n, err
}

func (r *gormMediaRepo) ListUnanalyzed(ctx context.Context, ownerID string, limit int) ([]model.MediaRecord, error) {
	var records []model.MediaRecord
	q := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM analyses WHERE analyses.media_record_id = media_records.id)")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	err := q.Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

type gormAnalysisRepo struct {
	db *gorm.DB
}

func (r *gormAnalysisRepo) Claim(ctx context.Context, ownerID, mediaRecordID string) (*model.Analysis, bool, error) {
	now := time.Now().UTC()
	candidate := &model.Analysis{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		MediaRecordID: &mediaRecordID,
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "media_record_id"}}, DoNothing: true}).
		Create(candidate)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return candidate, true, nil
	}
	// Lost the insert race or a row already existed; hand back the winner.
	var existing model.Analysis
	if err := r.db.WithContext(ctx).First(&existing, "media_record_id = ?", mediaRecordID).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *gormAnalysisRepo) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, model.StatusProcessing, map[string]interface{}{}, model.StatusPending)
}

func (r *gormAnalysisRepo) Complete(ctx context.Context, id string, rawOutput, structuredOutput string, totalScore int, rank string) error {
	return r.transition(ctx, id, model.StatusCompleted, map[string]interface{}{
		"raw_model_output":  rawOutput,
		"structured_output": structuredOutput,
		"total_score":       totalScore,
		"rank":              rank,
	}, model.StatusProcessing)
}

func (r *gormAnalysisRepo) Fail(ctx context.Context, id string, reason string) error {
	return r.transition(ctx, id, model.StatusError, map[string]interface{}{
		"failure_reason": reason,
	}, model.StatusPending, model.StatusProcessing)
}

// transition applies a status-guarded update. Zero rows affected means the
// row is missing or its current status does not allow the move.
func (r *gormAnalysisRepo) transition(ctx context.Context, id string, to model.AnalysisStatus, extra map[string]interface{}, from ...model.AnalysisStatus) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&model.Analysis{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.Failuref(model.FailureNotFound, "analysis %s not found or not eligible for %s", id, to)
	}
	return nil
}

func (r *gormAnalysisRepo) Get(ctx context.Context, id string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := r.db.WithContext(ctx).Preload("MediaRecord").First(&analysis, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.Failuref(model.FailureNotFound, "analysis %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *gormAnalysisRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Analysis, error) {
	var analyses []model.Analysis
	err := r.db.WithContext(ctx).
		Preload("MediaRecord").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&analyses).Error
	return analyses, err
}

func (r *gormAnalysisRepo) CountsByStatus(ctx context.Context, ownerID string) (map[model.AnalysisStatus]int64, error) {
	type row struct {
		Status model.AnalysisStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Analysis{}).
		Select("status, count(*) AS n").
		Where("owner_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.AnalysisStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func (r *gormAnalysisRepo) AverageScore(ctx context.Context, ownerID string) (*float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).
		Model(&model.Analysis{}).
		Select("AVG(total_score)").
		Where("owner_id = ? AND status = ?", ownerID, model.StatusCompleted).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	return avg, nil
}
