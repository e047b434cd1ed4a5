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

package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/workflow"
	test "github.com/findpartner/gcp-go-analysis/internal/testutil"
)

// TestMediaIntakeRegistersRecording simulates a GCS notification for a
// recording dropped straight into the media bucket and expects a media
// record attributed to the owner from the object metadata.
func TestMediaIntakeRegistersRecording(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "media-intake-test")
	defer span.End()

	store := test.NewFakeStore()
	intake := workflow.NewMediaIntakeWorkflow(store.Media())

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(cor.CtxIn, test.GCSNotificationText(
		"find_partner_media_uploads", "uploads/member-1/rec-001.mp4", "video/mp4", "member-1"))

	intake.Execute(chainCtx)
	require.False(t, chainCtx.HasErrors(), "intake errors: %v", chainCtx.GetErrors())

	records, err := store.Media().ListByOwner(ctx, "member-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.MediaKindVideo, records[0].Kind)
	assert.Equal(t, "uploads/member-1/rec-001.mp4", records[0].FileName)
	assert.Equal(t, "gs://find_partner_media_uploads/uploads/member-1/rec-001.mp4", records[0].StorageURL)
	assert.Equal(t, "video/mp4", records[0].MimeType)
}

// TestMediaIntakeRejectsNonMediaObject: anything that is not audio or video
// never becomes a media record.
func TestMediaIntakeRejectsNonMediaObject(t *testing.T) {
	store := test.NewFakeStore()
	intake := workflow.NewMediaIntakeWorkflow(store.Media())

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, test.GCSNotificationText(
		"find_partner_media_uploads", "uploads/member-1/notes.pdf", "application/pdf", "member-1"))

	intake.Execute(chainCtx)
	assert.True(t, chainCtx.HasErrors())

	records, err := store.Media().ListByOwner(ctx, "member-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestMediaIntakeRejectsMissingOwner: an object without owner metadata
// cannot be attributed to a member and is dropped.
func TestMediaIntakeRejectsMissingOwner(t *testing.T) {
	store := test.NewFakeStore()
	intake := workflow.NewMediaIntakeWorkflow(store.Media())

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, test.GCSNotificationText(
		"find_partner_media_uploads", "uploads/unknown/rec-002.m4a", "audio/m4a", ""))

	intake.Execute(chainCtx)
	assert.True(t, chainCtx.HasErrors())
}
