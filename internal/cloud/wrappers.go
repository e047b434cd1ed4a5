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

// This file wraps the Vertex AI generative client behind the NarrativeModel
// interface. The wrapper is a decorator over genai.Models that adds rate
// limiting, a per-call deadline, and retry with exponential backoff, and it
// consumes the streaming API so long narratives are concatenated chunk by
// chunk instead of truncated.
package cloud

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
)

// NarrativeModel produces a free-form narrative evaluation of a stored media
// file. Implemented by the Vertex AI wrapper in production and by fakes in
// tests.
type NarrativeModel interface {
	GenerateNarrative(ctx context.Context, prompt string, fileURI string, mimeType string) (string, error)
}

// QuotaAwareGenerativeAIModel decorates a genai model with rate limiting,
// bounded deadlines, and retries.
type QuotaAwareGenerativeAIModel struct {
	config    *genai.GenerateContentConfig
	modelName string
	models    *genai.Models
	limiter   *rate.Limiter
	timeout   time.Duration
	retries   int
	baseDelay time.Duration

	retryCounter       metric.Int64Counter
	outputChunkCounter metric.Int64Counter
}

// NewQuotaAwareModel builds the wrapper. requestsPerSecond caps the sustained
// request rate against the Vertex quota; pipeline supplies the per-call
// timeout and retry policy.
func NewQuotaAwareModel(
	config *genai.GenerateContentConfig,
	modelName string,
	models *genai.Models,
	requestsPerSecond int,
	pipeline Pipeline,
) *QuotaAwareGenerativeAIModel {
	meter := otel.Meter("github.com/findpartner/gcp-go-analysis/cloud")
	retryCounter, _ := meter.Int64Counter("narrative_retries")
	chunkCounter, _ := meter.Int64Counter("narrative_stream_chunks")
	return &QuotaAwareGenerativeAIModel{
		config:             config,
		modelName:          modelName,
		models:             models,
		limiter:            rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		timeout:            time.Duration(pipeline.ItemTimeoutInSeconds) * time.Second,
		retries:            pipeline.MaxRetries,
		baseDelay:          time.Duration(pipeline.RetryBaseDelayInMs) * time.Millisecond,
		retryCounter:       retryCounter,
		outputChunkCounter: chunkCounter,
	}
}

// GenerateNarrative sends the prompt plus a file reference to the model and
// concatenates the streamed response text. An empty concatenation is a
// transient failure: the model answered with nothing usable and the call is
// worth retrying.
func (q *QuotaAwareGenerativeAIModel) GenerateNarrative(ctx context.Context, prompt string, fileURI string, mimeType string) (string, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{FileData: &genai.FileData{FileURI: fileURI, MIMEType: mimeType}},
			{Text: prompt},
		},
	}}

	var narrative string
	attempt := 0
	err := WithRetry(ctx, q.retries, q.baseDelay, func(ctx context.Context) error {
		if attempt > 0 {
			q.retryCounter.Add(ctx, 1)
		}
		attempt++
		out, err := q.generateOnce(ctx, contents)
		if err != nil {
			return err
		}
		narrative = out
		return nil
	})
	return narrative, err
}

func (q *QuotaAwareGenerativeAIModel) generateOnce(ctx context.Context, contents []*genai.Content) (string, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return "", model.NewFailure(model.FailureTransient, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	out := ""
	for resp, err := range q.models.GenerateContentStream(callCtx, q.modelName, contents, q.config) {
		if err != nil {
			return "", model.NewFailure(model.FailureTransient, fmt.Errorf("narrative generation failed: %w", err))
		}
		q.outputChunkCounter.Add(ctx, 1)
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				out += part.Text
			}
		}
	}
	if out == "" {
		return "", model.Failuref(model.FailureTransient, "narrative model returned an empty response")
	}
	return out, nil
}
