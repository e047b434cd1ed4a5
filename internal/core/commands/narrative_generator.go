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

// NarrativeGenerator is the first AI step of the pipeline: it hands the
// stored recording to the narrative model together with a prompt rendered
// from the evaluation rubric and collects the free-form narrative. The
// narrative is plain prose, not JSON; structuring happens in the next step.
package commands

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// NarrativeGenerator prompts the narrative model over the media file.
type NarrativeGenerator struct {
	cor.BaseCommand
	narrativeModel cloud.NarrativeModel
	template       *template.Template
	rubric         *schema.Definition
}

// NewNarrativeGenerator is the constructor for the NarrativeGenerator
// command. The template is executed against the rubric so the prompt always
// enumerates the configured categories.
func NewNarrativeGenerator(
	name string,
	narrativeModel cloud.NarrativeModel,
	template *template.Template,
	rubric *schema.Definition) *NarrativeGenerator {
	return &NarrativeGenerator{
		BaseCommand:    *cor.NewBaseCommand(name),
		narrativeModel: narrativeModel,
		template:       template,
		rubric:         rubric,
	}
}

// Execute renders the prompt and requests the narrative. Output is the
// narrative text, also stored under CtxNarrative for the persist step.
func (c *NarrativeGenerator) Execute(context cor.Context) {
	record, ok := context.Get(CtxMediaRecord).(*model.MediaRecord)
	if !ok {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no media record on chain"))
		return
	}

	var buffer bytes.Buffer
	if err := c.template.Execute(&buffer, c.rubric); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	narrative, err := c.narrativeModel.GenerateNarrative(
		context.GetContext(), buffer.String(), record.StorageURL, record.MimeType)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(CtxNarrative, narrative)
	context.Add(c.GetOutputParam(), narrative)
}
