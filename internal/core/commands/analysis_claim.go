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
	"log/slog"

	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// AnalysisClaim creates the pending analysis row for the media record and
// immediately moves it to processing. When the claim loses against an
// existing row the item is marked skipped, not failed: a media record is
// analyzed at most once no matter how many batch runs or API calls race over
// it.
type AnalysisClaim struct {
	cor.BaseCommand
	analyses repo.AnalysisRepository
}

// NewAnalysisClaim is the constructor for the AnalysisClaim command.
func NewAnalysisClaim(name string, analyses repo.AnalysisRepository) *AnalysisClaim {
	return &AnalysisClaim{BaseCommand: *cor.NewBaseCommand(name), analyses: analyses}
}

// Execute claims the row. Output is the claimed *model.Analysis.
func (c *AnalysisClaim) Execute(context cor.Context) {
	record, ok := context.Get(c.GetInputParam()).(*model.MediaRecord)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.Failuref(model.FailureNotFound, "no media record on chain"))
		return
	}

	analysis, claimed, err := c.analyses.Claim(context.GetContext(), record.OwnerID, record.ID)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if !claimed {
		slog.Info("analysis already exists, skipping",
			"mediaId", record.ID, "analysisId", analysis.ID, "status", analysis.Status)
		context.Add(CtxAnalysis, analysis)
		context.MarkSkipped(model.SkipReasonDuplicate)
		return
	}

	if err := c.analyses.MarkProcessing(context.GetContext(), analysis.ID); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.Add(CtxAnalysis, analysis)
		context.AddError(c.GetName(), err)
		return
	}
	analysis.Status = model.StatusProcessing

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(CtxAnalysis, analysis)
	context.Add(c.GetOutputParam(), analysis)
}
