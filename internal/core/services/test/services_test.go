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

// Package services_test contains the test suite for the services package:
// the dashboard stats aggregation and the guard rails on the media ingestion
// paths.
package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/zeebo/assert"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/services"
	test "github.com/findpartner/gcp-go-analysis/internal/testutil"
)

// TestDashboardStats aggregates counts across statuses plus the mean score
// of the completed analyses only.
func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	store := test.NewFakeStore()
	analyses := store.Analyses()

	recA := store.AddMedia("member-1", "a.mp4", "video/mp4")
	recB := store.AddMedia("member-1", "b.mp4", "video/mp4")
	recC := store.AddMedia("member-1", "c.m4a", "audio/m4a")

	// One completed at 40, one completed at 44, one errored.
	for _, seed := range []struct {
		record *model.MediaRecord
		score  int
		fail   bool
	}{
		{recA, 40, false},
		{recB, 44, false},
		{recC, 0, true},
	} {
		analysis, claimed, err := analyses.Claim(ctx, "member-1", seed.record.ID)
		assert.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, analyses.MarkProcessing(ctx, analysis.ID))
		if seed.fail {
			assert.NoError(t, analyses.Fail(ctx, analysis.ID, "vertex ai timed out"))
			continue
		}
		assert.NoError(t, analyses.Complete(ctx, analysis.ID, "narrative", `{"categories":[]}`, seed.score, "adequate"))
	}

	svc := &services.AnalysisService{Media: store.Media(), Analyses: analyses}
	stats, err := svc.Stats(ctx, "member-1")
	assert.NoError(t, err)

	assert.Equal(t, int64(3), stats.MediaCount)
	assert.Equal(t, int64(3), stats.Analyses)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Errored)
	assert.Equal(t, int64(0), stats.Pending)
	assert.NotNil(t, stats.AverageScore)
	assert.Equal(t, 42.0, *stats.AverageScore)
}

// TestDashboardStatsEmptyOwner: a member with no media gets zeros and no
// average rather than an error.
func TestDashboardStatsEmptyOwner(t *testing.T) {
	store := test.NewFakeStore()
	svc := &services.AnalysisService{Media: store.Media(), Analyses: store.Analyses()}

	stats, err := svc.Stats(context.Background(), "member-empty")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), stats.MediaCount)
	assert.Equal(t, int64(0), stats.Analyses)
	assert.Nil(t, stats.AverageScore)
}

// TestUploadRejectsNonMediaContent: content whose magic bytes are not audio
// or video is refused before anything touches the bucket.
func TestUploadRejectsNonMediaContent(t *testing.T) {
	store := test.NewFakeStore()
	svc := &services.MediaService{Media: store.Media()}

	_, err := svc.Upload(context.Background(), "member-1", "notes.txt",
		strings.NewReader("just some meeting notes, not a recording"))
	assert.Error(t, err)
	assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))

	records, listErr := store.Media().ListByOwner(context.Background(), "member-1")
	assert.NoError(t, listErr)
	assert.Equal(t, 0, len(records))
}

// TestImportFromDriveReturnsExistingRecord: importing the same Drive file
// twice is a no-op that hands back the first record.
func TestImportFromDriveReturnsExistingRecord(t *testing.T) {
	ctx := context.Background()
	store := test.NewFakeStore()

	driveID := "drive-file-123"
	existing := &model.MediaRecord{
		Kind:              model.MediaKindVideo,
		FileName:          "imported.mp4",
		StorageURL:        "gs://test-bucket/drive-imports/member-1/imported.mp4",
		MimeType:          "video/mp4",
		OwnerID:           "member-1",
		GoogleDriveFileID: &driveID,
	}
	assert.NoError(t, store.Media().Create(ctx, existing))

	// No Drive importer is wired: the dedupe check must short-circuit before
	// any Drive API call.
	svc := &services.MediaService{Media: store.Media()}
	record, err := svc.ImportFromDrive(ctx, "member-1", driveID, "")
	assert.NoError(t, err)
	assert.Equal(t, existing.ID, record.ID)

	n, err := store.Media().CountByOwner(ctx, "member-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
