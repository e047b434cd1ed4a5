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

// This file wraps the OpenAI chat API behind the StructuringModel interface.
// Structuring is a forced tool call: the request carries a single function
// whose parameters are the rubric schema, and tool choice pins the model to
// it, so the response arguments are the structured evaluation JSON.
package cloud

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// StructuringModel turns a narrative evaluation into raw structured-output
// JSON. The pipeline validates the JSON separately; implementations only own
// the transport.
type StructuringModel interface {
	StructureNarrative(ctx context.Context, narrative string) (rawJSON string, err error)
}

const structuringFunctionName = "record_evaluation"

// OpenAIStructurer implements StructuringModel over the OpenAI chat
// completions API.
type OpenAIStructurer struct {
	client    *openai.Client
	modelCfg  OpenAIModel
	rubric    *schema.Definition
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
}

// NewOpenAIStructurer builds the structurer around an existing client.
func NewOpenAIStructurer(client *openai.Client, modelCfg OpenAIModel, rubric *schema.Definition, pipeline Pipeline) *OpenAIStructurer {
	return &OpenAIStructurer{
		client:    client,
		modelCfg:  modelCfg,
		rubric:    rubric,
		timeout:   time.Duration(pipeline.ItemTimeoutInSeconds) * time.Second,
		retries:   pipeline.MaxRetries,
		baseDelay: time.Duration(pipeline.RetryBaseDelayInMs) * time.Millisecond,
	}
}

// StructureNarrative asks the model to score the narrative against the
// rubric and returns the tool-call arguments verbatim. Transport errors and
// responses without a tool call are transient and retried with backoff.
func (s *OpenAIStructurer) StructureNarrative(ctx context.Context, narrative string) (string, error) {
	params := s.rubric.FunctionParameters()
	req := openai.ChatCompletionRequest{
		Model:       s.modelCfg.Model,
		Temperature: s.modelCfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: s.modelCfg.SystemInstructions + "\n\nRubric:\n" + s.rubric.RubricText(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: narrative,
			},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        structuringFunctionName,
				Description: "Record the structured evaluation of a conversation narrative",
				Parameters:  params,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: structuringFunctionName},
		},
	}

	var raw string
	err := WithRetry(ctx, s.retries, s.baseDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		resp, err := s.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return model.NewFailure(model.FailureTransient, fmt.Errorf("structuring request failed: %w", err))
		}
		if len(resp.Choices) == 0 {
			return model.Failuref(model.FailureTransient, "structuring response has no choices")
		}
		calls := resp.Choices[0].Message.ToolCalls
		if len(calls) == 0 {
			return model.Failuref(model.FailureTransient, "structuring response has no tool call")
		}
		raw = calls[0].Function.Arguments
		return nil
	})
	return raw, err
}
