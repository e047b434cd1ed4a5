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

// The media intake workflow: recordings dropped straight into the media
// bucket arrive as GCS Pub/Sub notifications and are registered as media
// records, where the next batch discovery picks them up. The listener acks
// the message only when the chain succeeds.
package workflow

import (
	"github.com/findpartner/gcp-go-analysis/internal/core/commands"
	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/repo"
)

// MediaIntakeWorkflow turns GCS object notifications into media records.
type MediaIntakeWorkflow struct {
	cor.BaseCommand
	media repo.MediaRepository
	chain cor.Chain
}

// Execute runs the intake chain for one notification message.
func (m *MediaIntakeWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

func (m *MediaIntakeWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())

	// Step 1: parse the notification and reject non-media objects.
	out.AddCommand(commands.NewMediaTriggerToGCSObject("media-trigger-to-gcs-object"))

	// Step 2: create the media record row.
	out.AddCommand(commands.NewMediaRegister("register-media-record", m.media))

	m.chain = out
}

// NewMediaIntakeWorkflow is the constructor for the MediaIntakeWorkflow.
func NewMediaIntakeWorkflow(media repo.MediaRepository) *MediaIntakeWorkflow {
	workflow := &MediaIntakeWorkflow{
		BaseCommand: *cor.NewBaseCommand("media-intake-workflow"),
		media:       media,
	}
	workflow.initializeChain()
	return workflow
}
