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

// Package workflow_test exercises the analysis pipeline and the media intake
// workflow end to end against in-memory fakes. The chain, the commands, the
// validation gate, and the idempotency rules are all real; only the AI
// providers and the database are faked. This file holds the shared setup.
package workflow_test

import (
	"context"
	"os"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	test "github.com/findpartner/gcp-go-analysis/internal/testutil"
)

var (
	ctx    context.Context
	config *cloud.Config
)

var tracer = otel.Tracer("github.com/findpartner/gcp-go-analysis/tests/workflow")

// sampleNarrative is what the fake narrative model hands the structuring
// step in the happy-path tests.
const sampleNarrative = "The speaker listened closely, asked thoughtful follow-up questions, " +
	"and kept a warm, balanced tone throughout the conversation."

func TestMain(m *testing.M) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	// Test configuration: .env.toml plus the .env.test.toml override, which
	// tightens the rank bands and shrinks the batch size to 2.
	config = test.GetConfig()

	os.Exit(m.Run())
}
