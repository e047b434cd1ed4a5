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

// Package workflow combines the pipeline commands into the orchestrations
// the rest of the application calls. This file implements the analysis
// pipeline: batch discovery over unanalyzed media and single-target analysis
// of one record, both running the same per-item command chain.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"text/template"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/commands"
	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// AnalysisPipeline runs the media analysis chain. One instance serves both
// batch and single-target runs; the per-item chain is stateless so it is
// shared across workers.
type AnalysisPipeline struct {
	cor.BaseCommand
	config            *cloud.Config
	store             repo.Store
	narrativeModel    cloud.NarrativeModel
	structuringModel  cloud.StructuringModel
	narrativeTemplate *template.Template
	numberOfWorkers   int
	chain             cor.Chain

	// mediaLocks serializes work per media record id so a batch run and a
	// single-target call for the same record cannot interleave in-process.
	// The database unique index remains the cross-process guard.
	mu         sync.Mutex
	mediaLocks map[string]*sync.Mutex
}

// NewAnalysisPipeline builds the pipeline from the configured models and the
// store. Panics on an unparsable prompt template, as nothing can run without
// it.
func NewAnalysisPipeline(
	config *cloud.Config,
	store repo.Store,
	narrativeModel cloud.NarrativeModel,
	structuringModel cloud.StructuringModel) *AnalysisPipeline {

	narrativeTemplate, err := template.New("narrative-template").Parse(config.PromptTemplates.Narrative)
	if err != nil {
		panic(err)
	}

	workers := config.Application.ThreadPoolSize
	if workers < 1 {
		workers = 1
	}

	pipeline := &AnalysisPipeline{
		BaseCommand:       *cor.NewBaseCommand("analysis-pipeline"),
		config:            config,
		store:             store,
		narrativeModel:    narrativeModel,
		structuringModel:  structuringModel,
		narrativeTemplate: narrativeTemplate,
		numberOfWorkers:   workers,
		mediaLocks:        make(map[string]*sync.Mutex),
	}
	pipeline.initializeChain()
	return pipeline
}

// initializeChain assembles the per-item command sequence. The chain input
// is a media record id; the output is the completed analysis.
func (p *AnalysisPipeline) initializeChain() {
	out := cor.NewBaseChain(p.GetName())

	// Step 1: resolve the media record id into the stored record.
	out.AddCommand(commands.NewMediaFetch("fetch-media-record", p.store.Media()))

	// Step 2: claim the analysis row. Duplicates mark the chain skipped and
	// stop it here.
	out.AddCommand(commands.NewAnalysisClaim("claim-analysis", p.store.Analyses()))

	// Step 3: narrative generation over the recording.
	out.AddCommand(commands.NewNarrativeGenerator(
		"generate-narrative", p.narrativeModel, p.narrativeTemplate, &p.config.Evaluation))

	// Step 4: structure the narrative into rubric JSON.
	out.AddCommand(commands.NewEvaluationStructurer("structure-evaluation", p.structuringModel))

	// Step 5: validate against the rubric and recompute score and rank.
	out.AddCommand(commands.NewEvaluationScorer("score-evaluation", &p.config.Evaluation))

	// Step 6: persist everything in one transition to completed.
	out.AddCommand(commands.NewAnalysisPersist("persist-analysis", p.store.Analyses()))

	p.chain = out
}

// Execute satisfies the Command interface so the pipeline can sit at the end
// of other chains. Input is a media record id.
func (p *AnalysisPipeline) Execute(context cor.Context) {
	p.chain.Execute(context)
}

func (p *AnalysisPipeline) lockMedia(id string) func() {
	p.mu.Lock()
	m, ok := p.mediaLocks[id]
	if !ok {
		m = &sync.Mutex{}
		p.mediaLocks[id] = m
	}
	p.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// RunSingle analyzes one media record. Duplicates come back as a skipped
// ItemResult; failures come back as an error whose failure kind the HTTP
// layer maps to a status code. A failure after the claim moves the analysis
// row to error with the reason recorded.
func (p *AnalysisPipeline) RunSingle(ctx context.Context, mediaID string) (*model.ItemResult, error) {
	unlock := p.lockMedia(mediaID)
	defer unlock()
	return p.processItem(ctx, mediaID)
}

// RunBatch discovers up to the configured batch size of the owner's
// unanalyzed media and runs the chain over them with a bounded worker pool.
// Setup failures (unreachable database, failed discovery) abort the whole
// batch; item failures are recorded per item and never stop their siblings.
func (p *AnalysisPipeline) RunBatch(ctx context.Context, ownerID string) (*model.BatchResult, error) {
	if err := p.store.Ping(ctx); err != nil {
		return nil, err
	}

	records, err := p.store.Media().ListUnanalyzed(ctx, ownerID, p.config.Pipeline.BatchSize)
	if err != nil {
		return nil, model.NewFailure(model.FailureSetup, fmt.Errorf("failed to discover unanalyzed media: %w", err))
	}

	result := &model.BatchResult{Results: []*model.ItemResult{}}
	if len(records) == 0 {
		return result, nil
	}

	var resultMu sync.Mutex
	work := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.numberOfWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for mediaID := range work {
				unlock := p.lockMedia(mediaID)
				item, err := p.processItem(ctx, mediaID)
				unlock()

				resultMu.Lock()
				if err != nil {
					analysisID := ""
					var itemErr *itemFailure
					if errors.As(err, &itemErr) {
						analysisID = itemErr.analysisID
					}
					result.RecordFailure(mediaID, analysisID, err)
				} else if item.SkipReason != "" {
					result.RecordSkip(item)
				} else {
					result.RecordSuccess(item)
				}
				resultMu.Unlock()
			}
		}()
	}

	for _, record := range records {
		work <- record.ID
	}
	close(work)
	wg.Wait()

	slog.Info("batch run finished",
		"owner", ownerID,
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

// itemFailure carries the claimed analysis id alongside the cause so batch
// aggregation can report which row was failed.
type itemFailure struct {
	analysisID string
	err        error
}

func (e *itemFailure) Error() string { return e.err.Error() }
func (e *itemFailure) Unwrap() error { return e.err }

// processItem runs the chain for one media record id and translates the
// chain context into an ItemResult or an error.
func (p *AnalysisPipeline) processItem(ctx context.Context, mediaID string) (*model.ItemResult, error) {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, mediaID)

	p.chain.Execute(chainCtx)

	analysis, _ := chainCtx.Get(commands.CtxAnalysis).(*model.Analysis)

	if reason, skipped := chainCtx.SkipReason(); skipped {
		item := &model.ItemResult{MediaRecordID: mediaID, SkipReason: reason}
		if analysis != nil {
			item.AnalysisID = analysis.ID
			item.Status = analysis.Status
		}
		return item, nil
	}

	if chainCtx.HasErrors() {
		var cause error
		for name, err := range chainCtx.GetErrors() {
			cause = fmt.Errorf("%s: %w", name, err)
			break
		}

		// A claimed row must not stay stuck in processing; record why it
		// failed. Terminal rows are left alone by the status guard.
		analysisID := ""
		if analysis != nil {
			analysisID = analysis.ID
			if failErr := p.store.Analyses().Fail(ctx, analysis.ID, cause.Error()); failErr != nil {
				slog.Error("failed to mark analysis as errored", "analysisId", analysis.ID, "error", failErr)
			}
		}
		return nil, &itemFailure{analysisID: analysisID, err: cause}
	}

	completed, ok := chainCtx.Get(cor.CtxIn).(*model.Analysis)
	if !ok {
		return nil, fmt.Errorf("pipeline finished without a completed analysis for media %s", mediaID)
	}
	return &model.ItemResult{
		MediaRecordID: mediaID,
		AnalysisID:    completed.ID,
		Status:        completed.Status,
		TotalScore:    completed.TotalScore,
		Rank:          completed.Rank,
	}, nil
}
