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
	"fmt"

	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// EvaluationScorer is the validation gate between the AI output and the
// database. It parses the raw structured JSON, validates it against the
// rubric, and recomputes the total score and rank from the subcategory
// scores. Anything that fails validation is a schema mismatch and nothing
// partial leaves this step.
type EvaluationScorer struct {
	cor.BaseCommand
	rubric *schema.Definition
}

// NewEvaluationScorer is the constructor for the EvaluationScorer command.
func NewEvaluationScorer(name string, rubric *schema.Definition) *EvaluationScorer {
	return &EvaluationScorer{BaseCommand: *cor.NewBaseCommand(name), rubric: rubric}
}

// Execute outputs the validated, finalized *schema.StructuredEvaluation.
func (c *EvaluationScorer) Execute(context cor.Context) {
	raw, ok := context.Get(c.GetInputParam()).(string)
	if !ok || raw == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no structured output input"))
		return
	}

	evaluation, err := schema.Parse([]byte(raw))
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if err := c.rubric.Validate(evaluation); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	c.rubric.Finalize(evaluation)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), evaluation)
}
