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

// AnalysisService: the dashboard's read paths over analysis rows plus the
// aggregate stats card.
package services

import (
	"context"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// DashboardStats is the aggregate view behind the dashboard's stats card.
type DashboardStats struct {
	MediaCount   int64    `json:"mediaCount"`
	Analyses     int64    `json:"analyses"`
	Pending      int64    `json:"pending"`
	Processing   int64    `json:"processing"`
	Completed    int64    `json:"completed"`
	Errored      int64    `json:"errored"`
	AverageScore *float64 `json:"averageScore,omitempty"`
}

// AnalysisService serves analysis reads.
type AnalysisService struct {
	Media    repo.MediaRepository
	Analyses repo.AnalysisRepository
}

// List returns the owner's analyses, newest first, with their media records.
func (s *AnalysisService) List(ctx context.Context, ownerID string) ([]model.Analysis, error) {
	return s.Analyses.ListByOwner(ctx, ownerID)
}

// Get returns one analysis with its media record, or a not_found failure.
func (s *AnalysisService) Get(ctx context.Context, id string) (*model.Analysis, error) {
	return s.Analyses.Get(ctx, id)
}

// Stats aggregates the owner's media and analysis counts and the mean
// completed score.
func (s *AnalysisService) Stats(ctx context.Context, ownerID string) (*DashboardStats, error) {
	mediaCount, err := s.Media.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	counts, err := s.Analyses.CountsByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	avg, err := s.Analyses.AverageScore(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		MediaCount:   mediaCount,
		Pending:      counts[model.StatusPending],
		Processing:   counts[model.StatusProcessing],
		Completed:    counts[model.StatusCompleted],
		Errored:      counts[model.StatusError],
		AverageScore: avg,
	}
	stats.Analyses = stats.Pending + stats.Processing + stats.Completed + stats.Errored
	return stats, nil
}
