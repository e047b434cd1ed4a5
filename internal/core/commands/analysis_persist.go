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

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// AnalysisPersist writes the finished analysis in one repository call: the
// raw narrative, the validated structured output, the total score, the rank,
// and the completed status all land together or not at all.
type AnalysisPersist struct {
	cor.BaseCommand
	analyses repo.AnalysisRepository
}

// NewAnalysisPersist is the constructor for the AnalysisPersist command.
func NewAnalysisPersist(name string, analyses repo.AnalysisRepository) *AnalysisPersist {
	return &AnalysisPersist{BaseCommand: *cor.NewBaseCommand(name), analyses: analyses}
}

// Execute completes the analysis row. Output is the updated *model.Analysis.
func (c *AnalysisPersist) Execute(context cor.Context) {
	evaluation, ok := context.Get(c.GetInputParam()).(*schema.StructuredEvaluation)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no structured evaluation input"))
		return
	}
	analysis, ok := context.Get(CtxAnalysis).(*model.Analysis)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no claimed analysis on chain"))
		return
	}
	narrative, _ := context.Get(CtxNarrative).(string)

	structured, err := json.Marshal(evaluation)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to marshal structured evaluation: %w", err))
		return
	}

	err = c.analyses.Complete(context.GetContext(), analysis.ID,
		narrative, string(structured), evaluation.TotalScore, evaluation.Rank)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	analysis.Status = model.StatusCompleted
	analysis.RawModelOutput = &narrative
	structuredStr := string(structured)
	analysis.StructuredOutput = &structuredStr
	analysis.TotalScore = &evaluation.TotalScore
	rank := evaluation.Rank
	analysis.Rank = &rank

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), analysis)
}
