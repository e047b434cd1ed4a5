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

// Package commands holds the concrete pipeline steps. Each command is one
// unit of the analysis workflow: fetch the media record, claim the analysis
// row, generate the narrative, structure it, score it, persist it. Commands
// communicate through the chain context; the keys below are the well-known
// slots shared across steps in addition to the default in/out piping.
package commands

const (
	// CtxMediaRecord holds the *model.MediaRecord being analyzed.
	CtxMediaRecord = "__MEDIA_RECORD__"
	// CtxAnalysis holds the claimed *model.Analysis row.
	CtxAnalysis = "__ANALYSIS__"
	// CtxNarrative holds the raw narrative text returned by the narrative
	// model, kept so the persist step can store it alongside the structured
	// output.
	CtxNarrative = "__NARRATIVE__"
)
