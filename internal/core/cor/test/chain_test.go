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

// Package cor_test verifies the chain mechanics the pipeline is built on:
// output-to-input piping, stop-on-error, and the skip marker.
package cor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
)

// appendCommand appends its suffix to the string flowing through the chain.
type appendCommand struct {
	cor.BaseCommand
	suffix string
}

func newAppendCommand(name, suffix string) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix}
}

func (c *appendCommand) Execute(ctx cor.Context) {
	in, _ := ctx.Get(c.GetInputParam()).(string)
	ctx.Add(c.GetOutputParam(), in+c.suffix)
}

// tallyCommand counts executions. It runs regardless of chain input, so
// tests can tell whether the chain reached it.
type tallyCommand struct {
	cor.BaseCommand
	runs int
}

func newTallyCommand(name string) *tallyCommand {
	return &tallyCommand{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *tallyCommand) IsExecutable(ctx cor.Context) bool {
	return ctx.GetContext() != nil
}

func (c *tallyCommand) Execute(ctx cor.Context) {
	c.runs++
}

// failingCommand records an error and nothing else.
type failingCommand struct {
	cor.BaseCommand
}

func (c *failingCommand) Execute(ctx cor.Context) {
	ctx.AddError(c.GetName(), errors.New("deliberate failure"))
}

// skippingCommand marks the execution skipped.
type skippingCommand struct {
	cor.BaseCommand
	reason string
}

func (c *skippingCommand) Execute(ctx cor.Context) {
	ctx.MarkSkipped(c.reason)
}

func newChainContext(in string) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, in)
	return chainCtx
}

// TestChainPipesOutputsToInputs: after the last command runs, its output is
// moved into CtxIn, which is where workflows read the final result.
func TestChainPipesOutputsToInputs(t *testing.T) {
	chain := cor.NewBaseChain("piping")
	chain.AddCommand(newAppendCommand("first", "-a"))
	chain.AddCommand(newAppendCommand("second", "-b"))

	chainCtx := newChainContext("start")
	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, "start-a-b", chainCtx.Get(cor.CtxIn))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}

// TestChainStopsOnError: commands after a recorded error never run.
func TestChainStopsOnError(t *testing.T) {
	unreached := newTallyCommand("unreached")
	chain := cor.NewBaseChain("stop-on-error")
	chain.AddCommand(newAppendCommand("first", "-a"))
	chain.AddCommand(&failingCommand{BaseCommand: *cor.NewBaseCommand("boom")})
	chain.AddCommand(unreached)

	chainCtx := newChainContext("start")
	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	_, failed := chainCtx.GetErrors()["boom"]
	assert.True(t, failed)
	assert.Equal(t, 0, unreached.runs)
}

// TestChainStopsOnSkip: a skip halts the chain without recording an error.
func TestChainStopsOnSkip(t *testing.T) {
	unreached := newTallyCommand("unreached")
	chain := cor.NewBaseChain("stop-on-skip")
	chain.AddCommand(newAppendCommand("first", "-a"))
	chain.AddCommand(&skippingCommand{BaseCommand: *cor.NewBaseCommand("skipper"), reason: "duplicate"})
	chain.AddCommand(unreached)

	chainCtx := newChainContext("start")
	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	reason, skipped := chainCtx.SkipReason()
	assert.True(t, skipped)
	assert.Equal(t, "duplicate", reason)
	assert.Equal(t, 0, unreached.runs)
}

// TestChainContinueOnFailure: the opt-in mode keeps later commands running
// after an error.
func TestChainContinueOnFailure(t *testing.T) {
	reached := newTallyCommand("still-runs")
	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(&failingCommand{BaseCommand: *cor.NewBaseCommand("boom")})
	chain.AddCommand(reached)

	chainCtx := newChainContext("start")
	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.Equal(t, 1, reached.runs)
}
