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

package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// testRubric is a compact two-category rubric so assertions stay readable.
func testRubric() *schema.Definition {
	return &schema.Definition{
		Categories: []schema.Category{
			{
				Name: "Listening",
				Subcategories: []schema.Subcategory{
					{Name: "Follow-up questions"},
					{Name: "Interrupting"},
				},
			},
			{
				Name: "Style",
				Subcategories: []schema.Subcategory{
					{Name: "Tone"},
				},
			},
		},
		RankBands: schema.RankBands{
			ExcellentMin:          8,
			AdequateMin:           5,
			ExcellentLabel:        "excellent",
			AdequateLabel:         "adequate",
			NeedsImprovementLabel: "needs improvement",
		},
	}
}

func conformant() *schema.StructuredEvaluation {
	return &schema.StructuredEvaluation{
		Categories: []schema.CategoryResult{
			{
				Name: "Listening",
				Subcategories: []schema.SubcategoryResult{
					{Name: "Follow-up questions", Score: 3},
					{Name: "Interrupting", Score: 2},
				},
			},
			{
				Name: "Style",
				Subcategories: []schema.SubcategoryResult{
					{Name: "Tone", Score: 2},
				},
			},
		},
		Highlights: schema.Highlights{
			Strengths:    []string{"asked good questions"},
			Improvements: []string{"interrupted twice"},
			NextGoals:    []string{"pause before replying"},
		},
	}
}

func TestValidateAcceptsConformantEvaluation(t *testing.T) {
	assert.NoError(t, testRubric().Validate(conformant()))
}

func TestValidateRejectsMissingSubcategory(t *testing.T) {
	ev := conformant()
	ev.Categories[0].Subcategories = ev.Categories[0].Subcategories[:1]
	err := testRubric().Validate(ev)
	require.Error(t, err)
	assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))
}

func TestValidateRejectsRenamedSubcategory(t *testing.T) {
	ev := conformant()
	ev.Categories[1].Subcategories[0].Name = "Voice"
	err := testRubric().Validate(ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tone")
}

func TestValidateRejectsUnknownCategory(t *testing.T) {
	ev := conformant()
	ev.Categories[1].Name = "Charisma"
	err := testRubric().Validate(ev)
	require.Error(t, err)
	assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))
}

func TestValidateRejectsDuplicateCategory(t *testing.T) {
	ev := conformant()
	ev.Categories[1] = ev.Categories[0]
	err := testRubric().Validate(ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateRejectsOutOfRangeScores(t *testing.T) {
	for _, score := range []schema.Score{0, 4, -1} {
		ev := conformant()
		ev.Categories[0].Subcategories[0].Score = score
		err := testRubric().Validate(ev)
		require.Error(t, err, "score %d should be rejected", score)
		assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))
	}
}

func TestValidateRejectsEmptyHighlights(t *testing.T) {
	ev := conformant()
	ev.Highlights.NextGoals = nil
	err := testRubric().Validate(ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nextGoals")

	ev = conformant()
	ev.Highlights.Strengths = []string{""}
	require.Error(t, testRubric().Validate(ev))
}

func TestValidateRejectsNil(t *testing.T) {
	err := testRubric().Validate(nil)
	require.Error(t, err)
	assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := schema.Parse([]byte("The speaker did well overall."))
	require.Error(t, err)
	assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))
}

// TestScoreDecodesNumbersAndQuotedDigits: structuring models sometimes emit
// "2" instead of 2; both decode to the same score, garbage does not.
func TestScoreDecodesNumbersAndQuotedDigits(t *testing.T) {
	var result schema.SubcategoryResult
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Tone","score":2}`), &result))
	assert.Equal(t, schema.Score(2), result.Score)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"Tone","score":"3"}`), &result))
	assert.Equal(t, schema.Score(3), result.Score)

	assert.Error(t, json.Unmarshal([]byte(`{"name":"Tone","score":"high"}`), &result))
}

// TestFinalizeRecomputesTotalAndRank: whatever arithmetic the model did is
// discarded in favor of the server-side sum and band lookup.
func TestFinalizeRecomputesTotalAndRank(t *testing.T) {
	rubric := testRubric()
	ev := conformant()
	ev.TotalScore = 999
	ev.Rank = "legendary"

	rubric.Finalize(ev)
	assert.Equal(t, 7, ev.TotalScore)
	assert.Equal(t, "adequate", ev.Rank)
}

func TestRankBandBoundaries(t *testing.T) {
	bands := testRubric().RankBands
	assert.Equal(t, "excellent", bands.RankFor(9))
	assert.Equal(t, "excellent", bands.RankFor(8))
	assert.Equal(t, "adequate", bands.RankFor(7))
	assert.Equal(t, "adequate", bands.RankFor(5))
	assert.Equal(t, "needs improvement", bands.RankFor(4))
	assert.Equal(t, "needs improvement", bands.RankFor(3))
}

func TestRubricArithmetic(t *testing.T) {
	rubric := testRubric()
	assert.Equal(t, 3, rubric.SubcategoryCount())
	assert.Equal(t, 9, rubric.MaxScore())
	assert.Equal(t, 3, rubric.MinScore())
}
