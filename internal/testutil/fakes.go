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

// In-memory fakes for the persistence and AI provider boundaries. The store
// fake mirrors the Postgres implementation's semantics where the pipeline
// depends on them: one analysis row per media record, status-guarded
// transitions, and unanalyzed discovery that excludes records with a row in
// any state.
package test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// FakeNarrativeModel satisfies cloud.NarrativeModel with a canned response.
type FakeNarrativeModel struct {
	mu        sync.Mutex
	Narrative string
	Err       error
	Calls     int
}

// GenerateNarrative returns the canned narrative or the configured error.
func (f *FakeNarrativeModel) GenerateNarrative(_ context.Context, _, _, _ string) (string, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Narrative, nil
}

// FakeStructuringModel satisfies cloud.StructuringModel with a canned JSON
// payload.
type FakeStructuringModel struct {
	mu     sync.Mutex
	Output string
	Err    error
	Calls  int
}

// StructureNarrative returns the canned structured output or the configured
// error.
func (f *FakeStructuringModel) StructureNarrative(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Output, nil
}

// FakeStore is an in-memory repo.Store. Safe for concurrent use, so batch
// runs with multiple workers exercise the same locking the pipeline sees in
// production.
type FakeStore struct {
	mu        sync.Mutex
	media     map[string]model.MediaRecord
	analyses  map[string]model.Analysis
	byMediaID map[string]string // media record id -> analysis id
	seq       int
	PingErr   error // When set, Ping reports the store as unreachable.
}

// NewFakeStore creates an empty in-memory store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		media:     make(map[string]model.MediaRecord),
		analyses:  make(map[string]model.Analysis),
		byMediaID: make(map[string]string),
	}
}

func (s *FakeStore) Media() repo.MediaRepository       { return &fakeMediaRepo{s: s} }
func (s *FakeStore) Analyses() repo.AnalysisRepository { return &fakeAnalysisRepo{s: s} }

// Ping reports the configured reachability.
func (s *FakeStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PingErr
}

// nextTime hands out strictly increasing timestamps so creation order is
// deterministic for the sorted list operations. Callers must hold s.mu.
func (s *FakeStore) nextTime() time.Time {
	s.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

// AddMedia seeds a media record and returns it.
func (s *FakeStore) AddMedia(ownerID, fileName, mimeType string) *model.MediaRecord {
	record := &model.MediaRecord{
		Kind:     model.KindForMimeType(mimeType),
		FileName: fileName,
		MimeType: mimeType,
		OwnerID:  ownerID,
	}
	record.StorageURL = "gs://test-bucket/uploads/" + ownerID + "/" + fileName
	if err := s.Media().Create(context.Background(), record); err != nil {
		panic(err)
	}
	return record
}

// Analysis returns a copy of the stored analysis row, or nil when absent.
// Read-only accessor for assertions.
func (s *FakeStore) Analysis(id string) *model.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	if !ok {
		return nil
	}
	return &a
}

type fakeMediaRepo struct {
	s *FakeStore
}

func (r *fakeMediaRepo) Create(_ context.Context, record *model.MediaRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.s.nextTime()
	}
	r.s.media[record.ID] = *record
	return nil
}

func (r *fakeMediaRepo) Get(_ context.Context, id string) (*model.MediaRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record, ok := r.s.media[id]
	if !ok {
		return nil, model.Failuref(model.FailureNotFound, "media record %s not found", id)
	}
	return &record, nil
}

func (r *fakeMediaRepo) GetByDriveFileID(_ context.Context, driveFileID string) (*model.MediaRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, record := range r.s.media {
		if record.GoogleDriveFileID != nil && *record.GoogleDriveFileID == driveFileID {
			out := record
			return &out, nil
		}
	}
	return nil, model.Failuref(model.FailureNotFound, "no media record for drive file %s", driveFileID)
}

func (r *fakeMediaRepo) ListByOwner(_ context.Context, ownerID string) ([]model.MediaRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.MediaRecord
	for _, record := range r.s.media {
		if record.OwnerID == ownerID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMediaRepo) CountByOwner(_ context.Context, ownerID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, record := range r.s.media {
		if record.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeMediaRepo) ListUnanalyzed(_ context.Context, ownerID string, limit int) ([]model.MediaRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.MediaRecord
	for id, record := range r.s.media {
		if _, analyzed := r.s.byMediaID[id]; analyzed {
			continue
		}
		if ownerID != "" && record.OwnerID != ownerID {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAnalysisRepo struct {
	s *FakeStore
}

func (r *fakeAnalysisRepo) Claim(_ context.Context, ownerID, mediaRecordID string) (*model.Analysis, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existingID, ok := r.s.byMediaID[mediaRecordID]; ok {
		existing := r.s.analyses[existingID]
		return &existing, false, nil
	}
	now := r.s.nextTime()
	mediaID := mediaRecordID
	analysis := model.Analysis{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		MediaRecordID: &mediaID,
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.s.analyses[analysis.ID] = analysis
	r.s.byMediaID[mediaRecordID] = analysis.ID
	out := analysis
	return &out, true, nil
}

func (r *fakeAnalysisRepo) MarkProcessing(_ context.Context, id string) error {
	return r.transition(id, model.StatusProcessing, nil, model.StatusPending)
}

func (r *fakeAnalysisRepo) Complete(_ context.Context, id string, rawOutput, structuredOutput string, totalScore int, rank string) error {
	return r.transition(id, model.StatusCompleted, func(a *model.Analysis) {
		a.RawModelOutput = &rawOutput
		a.StructuredOutput = &structuredOutput
		a.TotalScore = &totalScore
		a.Rank = &rank
	}, model.StatusProcessing)
}

func (r *fakeAnalysisRepo) Fail(_ context.Context, id string, reason string) error {
	return r.transition(id, model.StatusError, func(a *model.Analysis) {
		a.FailureReason = &reason
	}, model.StatusPending, model.StatusProcessing)
}

func (r *fakeAnalysisRepo) transition(id string, to model.AnalysisStatus, apply func(*model.Analysis), from ...model.AnalysisStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	analysis, ok := r.s.analyses[id]
	if !ok {
		return model.Failuref(model.FailureNotFound, "analysis %s not found or not eligible for %s", id, to)
	}
	eligible := false
	for _, f := range from {
		if analysis.Status == f {
			eligible = true
			break
		}
	}
	if !eligible {
		return model.Failuref(model.FailureNotFound, "analysis %s not found or not eligible for %s", id, to)
	}
	analysis.Status = to
	analysis.UpdatedAt = r.s.nextTime()
	if apply != nil {
		apply(&analysis)
	}
	r.s.analyses[id] = analysis
	return nil
}

func (r *fakeAnalysisRepo) Get(_ context.Context, id string) (*model.Analysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	analysis, ok := r.s.analyses[id]
	if !ok {
		return nil, model.Failuref(model.FailureNotFound, "analysis %s not found", id)
	}
	if analysis.MediaRecordID != nil {
		if record, ok := r.s.media[*analysis.MediaRecordID]; ok {
			analysis.MediaRecord = &record
		}
	}
	return &analysis, nil
}

func (r *fakeAnalysisRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Analysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Analysis
	for _, analysis := range r.s.analyses {
		if analysis.OwnerID != ownerID {
			continue
		}
		if analysis.MediaRecordID != nil {
			if record, ok := r.s.media[*analysis.MediaRecordID]; ok {
				analysis.MediaRecord = &record
			}
		}
		out = append(out, analysis)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAnalysisRepo) CountsByStatus(_ context.Context, ownerID string) (map[model.AnalysisStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[model.AnalysisStatus]int64)
	for _, analysis := range r.s.analyses {
		if analysis.OwnerID == ownerID {
			counts[analysis.Status]++
		}
	}
	return counts, nil
}

func (r *fakeAnalysisRepo) AverageScore(_ context.Context, ownerID string) (*float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum, n float64
	for _, analysis := range r.s.analyses {
		if analysis.OwnerID == ownerID && analysis.Status == model.StatusCompleted && analysis.TotalScore != nil {
			sum += float64(*analysis.TotalScore)
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / n
	return &avg, nil
}
