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

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
)

// EvaluationStructurer is the second AI step: it sends the narrative to the
// structuring model and passes the raw tool-call JSON downstream. It never
// inspects the JSON itself; validation belongs to the scorer.
type EvaluationStructurer struct {
	cor.BaseCommand
	structuringModel cloud.StructuringModel
}

// NewEvaluationStructurer is the constructor for the EvaluationStructurer
// command.
func NewEvaluationStructurer(name string, structuringModel cloud.StructuringModel) *EvaluationStructurer {
	return &EvaluationStructurer{BaseCommand: *cor.NewBaseCommand(name), structuringModel: structuringModel}
}

// Execute forwards the narrative and outputs the raw structured JSON string.
func (c *EvaluationStructurer) Execute(context cor.Context) {
	narrative, ok := context.Get(c.GetInputParam()).(string)
	if !ok || narrative == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no narrative input"))
		return
	}

	raw, err := c.structuringModel.StructureNarrative(context.GetContext(), narrative)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), raw)
}
