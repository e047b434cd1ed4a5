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

// Package cloud_test covers the provider-independent pieces of the cloud
// package: hierarchical configuration loading, prompt rendering, the retry
// helper, and URI handling. The client wrappers themselves talk to live
// services and are exercised by the deployment environment instead.
package cloud_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// TestLoadConfigAppliesRuntimeOverride: the base file sets defaults and the
// runtime-specific file wins where both speak.
func TestLoadConfigAppliesRuntimeOverride(t *testing.T) {
	dir := t.TempDir()
	base := `
[application]
name = "base-name"
port = 8080

[pipeline]
batch_size = 25
max_retries = 3
`
	override := `
[application]
name = "staging-name"

[pipeline]
batch_size = 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(base), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.staging.toml"), []byte(override), 0o644))
	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "staging")

	config := cloud.NewConfig()
	cloud.LoadConfig(config)

	assert.Equal(t, "staging-name", config.Application.Name)
	assert.Equal(t, 8080, config.Application.Port)
	assert.Equal(t, 5, config.Pipeline.BatchSize)
	assert.Equal(t, 3, config.Pipeline.MaxRetries)
}

// TestRenderPromptEnumeratesRubric: the narrative prompt lists every
// configured category so the evaluation covers the whole rubric.
func TestRenderPromptEnumeratesRubric(t *testing.T) {
	rubric := &schema.Definition{
		Categories: []schema.Category{
			{Name: "Listening", Subcategories: []schema.Subcategory{{Name: "Follow-up questions"}}},
			{Name: "Style", Subcategories: []schema.Subcategory{{Name: "Tone"}}},
		},
	}
	prompt, err := cloud.RenderPrompt("Evaluate:{{range .Categories}} [{{.Name}}]{{end}}", rubric)
	require.NoError(t, err)
	assert.Equal(t, "Evaluate: [Listening] [Style]", prompt)

	_, err = cloud.RenderPrompt("{{.Missing", rubric)
	assert.Error(t, err)
}

// TestWithRetryRecoversFromTransientFailures: transient errors are retried
// with backoff until the budget runs out.
func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	attempts := 0
	err := cloud.WithRetry(context.Background(), 3, time.Millisecond, func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return model.Failuref(model.FailureTransient, "try %d failed", attempts)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

// TestWithRetryStopsOnNonTransientFailure: a schema mismatch will not get
// better by asking again, so one attempt is all it gets.
func TestWithRetryStopsOnNonTransientFailure(t *testing.T) {
	attempts := 0
	err := cloud.WithRetry(context.Background(), 3, time.Millisecond, func(_ context.Context) error {
		attempts++
		return model.Failuref(model.FailureSchemaMismatch, "missing category")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, model.FailureSchemaMismatch, model.KindOf(err))
}

// TestWithRetryExhaustsBudget: maxRetries bounds the extra attempts, not the
// total.
func TestWithRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	err := cloud.WithRetry(context.Background(), 1, time.Millisecond, func(_ context.Context) error {
		attempts++
		return model.Failuref(model.FailureTransient, "still down")
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestObjectNameFromURI(t *testing.T) {
	name, err := cloud.ObjectNameFromURI("gs://find_partner_media_uploads/uploads/member-1/rec.mp4")
	require.NoError(t, err)
	assert.Equal(t, "uploads/member-1/rec.mp4", name)

	_, err = cloud.ObjectNameFromURI("https://example.com/rec.mp4")
	assert.Error(t, err)

	_, err = cloud.ObjectNameFromURI("gs://bucket-only")
	assert.Error(t, err)
}
