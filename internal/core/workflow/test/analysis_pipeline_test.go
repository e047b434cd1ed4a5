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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
	"github.com/findpartner/gcp-go-analysis/internal/core/workflow"
	test "github.com/findpartner/gcp-go-analysis/internal/testutil"
)

// adequateScores rates ten subcategories 3 and the remaining five 2, a total
// of 40. With the test rank bands (excellent at 42, adequate at 30) that
// lands squarely in the adequate band.
var adequateScores = []int{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 2}

// TestRunSingleCompletesOneRecording drives one recording through the whole
// chain: fetch, claim, narrative, structuring, validation, persistence.
func TestRunSingleCompletesOneRecording(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "run-single-test")
	defer span.End()

	store := test.NewFakeStore()
	record := store.AddMedia("member-1", "first-conversation.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Narrative: sampleNarrative}
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, adequateScores...)}

	pipeline := workflow.NewAnalysisPipeline(config, store, narrative, structurer)
	item, err := pipeline.RunSingle(traceCtx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, item.MediaRecordID)
	assert.Equal(t, model.StatusCompleted, item.Status)
	require.NotNil(t, item.TotalScore)
	assert.Equal(t, 40, *item.TotalScore)
	require.NotNil(t, item.Rank)
	assert.Equal(t, "adequate", *item.Rank)

	// The persisted row carries the narrative and the validated structured
	// output together; neither is written ahead of the other.
	stored := store.Analysis(item.AnalysisID)
	require.NotNil(t, stored)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	require.NotNil(t, stored.RawModelOutput)
	assert.Equal(t, sampleNarrative, *stored.RawModelOutput)
	require.NotNil(t, stored.StructuredOutput)

	var persisted schema.StructuredEvaluation
	require.NoError(t, json.Unmarshal([]byte(*stored.StructuredOutput), &persisted))
	require.NoError(t, config.Evaluation.Validate(&persisted))
	assert.Equal(t, 40, persisted.TotalScore)
	assert.Equal(t, "adequate", persisted.Rank)

	assert.Equal(t, 1, narrative.Calls)
	assert.Equal(t, 1, structurer.Calls)
}

// TestRunSingleRanksPerfectScoreExcellent checks the top band boundary: a
// straight-threes evaluation totals 45 and clears the excellent cut of 42.
func TestRunSingleRanksPerfectScoreExcellent(t *testing.T) {
	store := test.NewFakeStore()
	record := store.AddMedia("member-1", "great-conversation.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Narrative: sampleNarrative}
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, 3)}

	pipeline := workflow.NewAnalysisPipeline(config, store, narrative, structurer)
	item, err := pipeline.RunSingle(ctx, record.ID)
	require.NoError(t, err)

	require.NotNil(t, item.TotalScore)
	assert.Equal(t, config.Evaluation.MaxScore(), *item.TotalScore)
	require.NotNil(t, item.Rank)
	assert.Equal(t, "excellent", *item.Rank)
}

// TestRunSingleSkipsDuplicate reruns a completed recording and expects a
// skip, not a second analysis: the claim loses against the existing row and
// no model is called again.
func TestRunSingleSkipsDuplicate(t *testing.T) {
	store := test.NewFakeStore()
	record := store.AddMedia("member-1", "first-conversation.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Narrative: sampleNarrative}
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, adequateScores...)}
	pipeline := workflow.NewAnalysisPipeline(config, store, narrative, structurer)

	first, err := pipeline.RunSingle(ctx, record.ID)
	require.NoError(t, err)

	second, err := pipeline.RunSingle(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SkipReasonDuplicate, second.SkipReason)
	assert.Equal(t, first.AnalysisID, second.AnalysisID)
	assert.Equal(t, model.StatusCompleted, second.Status)

	assert.Equal(t, 1, narrative.Calls)
	assert.Equal(t, 1, structurer.Calls)
}

// TestRunSingleEmptyNarrativeFailsItem: a narrative model that returns an
// empty string is an outage, not an answer. The claimed row goes to error,
// nothing structured is persisted, and the structuring model is never asked
// to score an empty narrative.
func TestRunSingleEmptyNarrativeFailsItem(t *testing.T) {
	store := test.NewFakeStore()
	record := store.AddMedia("member-1", "silent-recording.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Narrative: ""}
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, adequateScores...)}
	pipeline := workflow.NewAnalysisPipeline(config, store, narrative, structurer)

	_, err := pipeline.RunSingle(ctx, record.ID)
	require.Error(t, err)

	assert.Equal(t, 1, narrative.Calls)
	assert.Equal(t, 0, structurer.Calls)

	rows, listErr := store.Analyses().ListByOwner(ctx, "member-1")
	require.NoError(t, listErr)
	require.Len(t, rows, 1)
	assert.Equal(t, model.StatusError, rows[0].Status)
	assert.Nil(t, rows[0].StructuredOutput)
	assert.Nil(t, rows[0].TotalScore)
	require.NotNil(t, rows[0].FailureReason)
	assert.Contains(t, *rows[0].FailureReason, "narrative")
}

// TestRunSingleSkipReportsPriorFailure: rerunning a recording whose analysis
// already errored is still a skip, and the result carries the errored row's
// id and status so an operator can see it needs intervention rather than
// mistaking it for a completed duplicate.
func TestRunSingleSkipReportsPriorFailure(t *testing.T) {
	store := test.NewFakeStore()
	record := store.AddMedia("member-1", "first-conversation.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Narrative: sampleNarrative}
	// A 5 is outside the 1-3 scale, so the first run errors its row.
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, 5)}
	pipeline := workflow.NewAnalysisPipeline(config, store, narrative, structurer)

	_, err := pipeline.RunSingle(ctx, record.ID)
	require.Error(t, err)

	second, err := pipeline.RunSingle(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SkipReasonDuplicate, second.SkipReason)
	require.NotEmpty(t, second.AnalysisID)
	assert.Equal(t, model.StatusError, second.Status)

	row := store.Analysis(second.AnalysisID)
	require.NotNil(t, row)
	assert.Equal(t, model.StatusError, row.Status)
}

// TestRunBatchWorksThroughBacklog seeds three unanalyzed recordings with a
// batch size of two: the first run takes the two oldest, the second takes
// the leftover, the third finds nothing to do.
func TestRunBatchWorksThroughBacklog(t *testing.T) {
	store := test.NewFakeStore()
	store.AddMedia("member-1", "monday.mp4", "video/mp4")
	store.AddMedia("member-1", "tuesday.m4a", "audio/m4a")
	store.AddMedia("member-1", "wednesday.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Narrative: sampleNarrative}
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, adequateScores...)}
	pipeline := workflow.NewAnalysisPipeline(config, store, narrative, structurer)

	first, err := pipeline.RunBatch(ctx, "member-1")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Attempted)
	assert.Equal(t, 2, first.Succeeded)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, 0, first.Failed)
	assert.Len(t, first.Results, 2)

	second, err := pipeline.RunBatch(ctx, "member-1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Succeeded)

	// Discovery only surfaces records without any analysis row, so a drained
	// backlog yields an empty result rather than a pile of skips.
	third, err := pipeline.RunBatch(ctx, "member-1")
	require.NoError(t, err)
	assert.Equal(t, 0, third.Attempted)
	assert.Empty(t, third.Results)

	assert.Equal(t, 3, narrative.Calls)
}

// TestRunBatchScopedToOwner checks that a scoped run leaves other members'
// backlogs untouched.
func TestRunBatchScopedToOwner(t *testing.T) {
	store := test.NewFakeStore()
	store.AddMedia("member-a", "a.mp4", "video/mp4")
	store.AddMedia("member-b", "b.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Narrative: sampleNarrative}
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, adequateScores...)}
	pipeline := workflow.NewAnalysisPipeline(config, store, narrative, structurer)

	result, err := pipeline.RunBatch(ctx, "member-a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	remaining, err := store.Media().ListUnanalyzed(ctx, "member-b", 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

// TestRunBatchAbortsWhenStoreUnreachable: an unreachable database is a setup
// failure and nothing batch-shaped starts.
func TestRunBatchAbortsWhenStoreUnreachable(t *testing.T) {
	store := test.NewFakeStore()
	store.AddMedia("member-1", "monday.mp4", "video/mp4")
	store.PingErr = model.Failuref(model.FailureSetup, "database unreachable")
	pipeline := workflow.NewAnalysisPipeline(config, store,
		&test.FakeNarrativeModel{Narrative: sampleNarrative},
		&test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, 3)})

	result, err := pipeline.RunBatch(ctx, "member-1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, model.FailureSetup, model.KindOf(err))
}

// TestRunBatchRecordsItemFailures: a narrative provider outage fails the
// items, not the batch. Each claimed row is moved to error with the reason
// recorded so nothing is left stuck in processing.
func TestRunBatchRecordsItemFailures(t *testing.T) {
	store := test.NewFakeStore()
	store.AddMedia("member-1", "monday.mp4", "video/mp4")
	store.AddMedia("member-1", "tuesday.mp4", "video/mp4")
	narrative := &test.FakeNarrativeModel{Err: model.Failuref(model.FailureTransient, "vertex ai timed out")}
	pipeline := workflow.NewAnalysisPipeline(config, store, narrative,
		&test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, 3)})

	result, err := pipeline.RunBatch(ctx, "member-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)

	for _, itemErr := range result.Errors {
		assert.Equal(t, model.FailureTransient, itemErr.Kind)
		require.NotEmpty(t, itemErr.AnalysisID)
		row := store.Analysis(itemErr.AnalysisID)
		require.NotNil(t, row)
		assert.Equal(t, model.StatusError, row.Status)
		require.NotNil(t, row.FailureReason)
		assert.Contains(t, *row.FailureReason, "vertex ai timed out")
	}
}

// TestRunSingleRejectsNonconformantOutput: structuring output that fails
// rubric validation is a schema mismatch, the row is errored, and nothing
// partial is persisted.
func TestRunSingleRejectsNonconformantOutput(t *testing.T) {
	store := test.NewFakeStore()
	record := store.AddMedia("member-1", "first-conversation.mp4", "video/mp4")
	// A 5 is outside the 1-3 scale; the whole result must be rejected.
	structurer := &test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, 5)}
	pipeline := workflow.NewAnalysisPipeline(config, store,
		&test.FakeNarrativeModel{Narrative: sampleNarrative}, structurer)

	_, err := pipeline.RunSingle(ctx, record.ID)
	require.Error(t, err)
	assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))

	rows, listErr := store.Analyses().ListByOwner(ctx, "member-1")
	require.NoError(t, listErr)
	require.Len(t, rows, 1)
	assert.Equal(t, model.StatusError, rows[0].Status)
	assert.Nil(t, rows[0].StructuredOutput)
	assert.Nil(t, rows[0].TotalScore)
	require.NotNil(t, rows[0].FailureReason)
}

// TestRunSingleUnknownMediaIsNotFound: an id that resolves to nothing fails
// before anything is claimed.
func TestRunSingleUnknownMediaIsNotFound(t *testing.T) {
	store := test.NewFakeStore()
	pipeline := workflow.NewAnalysisPipeline(config, store,
		&test.FakeNarrativeModel{Narrative: sampleNarrative},
		&test.FakeStructuringModel{Output: test.EvaluationJSON(&config.Evaluation, 3)})

	_, err := pipeline.RunSingle(ctx, "no-such-media")
	require.Error(t, err)
	assert.Equal(t, model.FailureNotFound, model.KindOf(err))

	rows, listErr := store.Analyses().ListByOwner(ctx, "member-1")
	require.NoError(t, listErr)
	assert.Empty(t, rows)
}
