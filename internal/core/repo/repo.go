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

// Package repo defines the persistence boundary of the application. The
// pipeline and the HTTP surface depend on these interfaces only; the Postgres
// implementation lives in store.go and in-memory fakes back the tests.
package repo

import (
	"context"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
)

// MediaRepository stores and lists uploaded media records.
type MediaRepository interface {
	// Create inserts a new media record.
	Create(ctx context.Context, record *model.MediaRecord) error
	// Get returns the record with the given id, or a not_found failure.
	Get(ctx context.Context, id string) (*model.MediaRecord, error)
	// GetByDriveFileID returns the record imported from the given Google
	// Drive file, or a not_found failure. Used to de-duplicate imports.
	GetByDriveFileID(ctx context.Context, driveFileID string) (*model.MediaRecord, error)
	// ListByOwner returns the owner's media, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.MediaRecord, error)
	// CountByOwner returns how many media records the owner has.
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	// ListUnanalyzed returns up to limit media records that have no analysis
	// row at all, oldest first, scoped to ownerID unless it is empty.
	// Records with an analysis in any state, including error, are excluded:
	// a failed analysis is re-attempted through the single-target operation,
	// not re-discovered.
	ListUnanalyzed(ctx context.Context, ownerID string, limit int) ([]model.MediaRecord, error)
}

// AnalysisRepository stores analysis rows and enforces the idempotency and
// lifecycle rules at the persistence boundary.
type AnalysisRepository interface {
	// Claim atomically creates a pending analysis for the media record. When
	// a row already exists for that record the insert loses against the
	// unique index and Claim returns the existing row with claimed=false.
	// This is the duplicate-skip guard: concurrent claimers race on the
	// database constraint, not on application state.
	Claim(ctx context.Context, ownerID, mediaRecordID string) (analysis *model.Analysis, claimed bool, err error)
	// MarkProcessing moves a pending analysis to processing. Fails the
	// transition check if the row is not pending.
	MarkProcessing(ctx context.Context, id string) error
	// Complete records the finished analysis in one transaction: raw
	// narrative, validated structured output, total score, rank, and the
	// completed status. Only a processing row may complete; the raw
	// narrative is never persisted on its own ahead of this call.
	Complete(ctx context.Context, id string, rawOutput, structuredOutput string, totalScore int, rank string) error
	// Fail moves an analysis to error with a failure reason. Terminal rows
	// are left untouched.
	Fail(ctx context.Context, id string, reason string) error
	// Get returns the analysis with its media record preloaded, or a
	// not_found failure.
	Get(ctx context.Context, id string) (*model.Analysis, error)
	// ListByOwner returns the owner's analyses, newest first, with media
	// records preloaded.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Analysis, error)
	// CountsByStatus returns the owner's analysis counts keyed by status.
	CountsByStatus(ctx context.Context, ownerID string) (map[model.AnalysisStatus]int64, error)
	// AverageScore returns the mean total score of the owner's completed
	// analyses, or nil when none have completed yet.
	AverageScore(ctx context.Context, ownerID string) (*float64, error)
}

// Store bundles the repositories plus a health probe used as the batch setup
// check.
type Store interface {
	Media() MediaRepository
	Analyses() AnalysisRepository
	// Ping verifies the backing database is reachable. A failed ping is a
	// setup failure: nothing batch-shaped should start.
	Ping(ctx context.Context) error
}
