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

// Package schema defines the evaluation rubric: the configured categories and
// subcategories a conversation is scored against, the structured result shape
// the structuring model must produce, and the validation that guards the
// boundary between the model's output and the database. Validation is a plain
// Go step, deliberately independent of any AI provider's tool-call mechanics,
// so the structuring transport can change without touching the pipeline.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
)

// Subcategory is one scored item of the rubric, with the natural-language
// descriptions of what each score level means.
type Subcategory struct {
	Name   string `toml:"name"`
	High   string `toml:"high"`   // What a score of 3 looks like.
	Medium string `toml:"medium"` // What a score of 2 looks like.
	Low    string `toml:"low"`    // What a score of 1 looks like.
}

// Category groups an ordered list of subcategories under one evaluation area.
type Category struct {
	Name          string        `toml:"name"`
	Subcategories []Subcategory `toml:"subcategories"`
}

// RankBands holds the configured cut points that map a total score to a rank
// label. Bands are inclusive and descending: totals at or above ExcellentMin
// rank excellent, totals at or above AdequateMin rank adequate, everything
// below needs improvement. Thresholds are configuration, never hard-coded.
type RankBands struct {
	ExcellentMin          int    `toml:"excellent_min"`
	AdequateMin           int    `toml:"adequate_min"`
	ExcellentLabel        string `toml:"excellent_label"`
	AdequateLabel         string `toml:"adequate_label"`
	NeedsImprovementLabel string `toml:"needs_improvement_label"`
}

// Definition is the full, versionable rubric configuration: ordered
// categories and the rank bands. Loaded from TOML alongside the rest of the
// application configuration.
type Definition struct {
	Categories []Category `toml:"categories"`
	RankBands  RankBands  `toml:"rank_bands"`
}

// SubcategoryCount returns the number of scored items across all categories.
func (d *Definition) SubcategoryCount() int {
	n := 0
	for _, c := range d.Categories {
		n += len(c.Subcategories)
	}
	return n
}

// MaxScore returns the highest possible total: 3 points per subcategory.
func (d *Definition) MaxScore() int {
	return 3 * d.SubcategoryCount()
}

// MinScore returns the lowest possible total: 1 point per subcategory.
func (d *Definition) MinScore() int {
	return d.SubcategoryCount()
}

// Score is one subcategory's 1-3 rating. Structuring models sometimes emit
// the level as a quoted digit rather than a number, so decoding accepts both.
type Score int

// UnmarshalJSON accepts both 2 and "2".
func (s *Score) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Score(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("score must be a number or numeric string, got %s", string(data))
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("score must be numeric, got %q", str)
	}
	*s = Score(n)
	return nil
}

// MarshalJSON always emits the numeric form.
func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

// SubcategoryResult is one scored rubric item in a structured evaluation.
type SubcategoryResult struct {
	Name    string `json:"name"`
	Score   Score  `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// CategoryResult is one evaluation area with its scored items.
type CategoryResult struct {
	Name          string              `json:"name"`
	Subcategories []SubcategoryResult `json:"subcategories"`
}

// Highlights carries the free-text takeaways extracted by the structuring
// call. The pipeline treats these as opaque pass-through lists, validated
// only for presence.
type Highlights struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	NextGoals    []string `json:"nextGoals"`
}

// StructuredEvaluation is the schema-conformant record persisted on a
// completed analysis. TotalScore and Rank are always recomputed server-side
// from the subcategory scores; the model's own arithmetic is discarded.
type StructuredEvaluation struct {
	Categories []CategoryResult `json:"categories"`
	TotalScore int              `json:"totalScore"`
	Rank       string           `json:"rank"`
	Highlights Highlights       `json:"highlights"`
}

// Parse decodes raw structuring output into a StructuredEvaluation. A decode
// failure is a schema mismatch: the output cannot be partially salvaged.
func Parse(raw []byte) (*StructuredEvaluation, error) {
	ev := &StructuredEvaluation{}
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, model.NewFailure(model.FailureSchemaMismatch, fmt.Errorf("structured output is not valid JSON: %w", err))
	}
	return ev, nil
}

// Validate checks a structured evaluation against the rubric definition:
// every declared category and subcategory must be present exactly once (no
// extras), every score must be 1, 2, or 3, and every highlight list must be a
// non-empty list of non-empty strings. Any violation is a schema mismatch and
// the whole result is rejected; partial structured output is never accepted.
func (d *Definition) Validate(ev *StructuredEvaluation) error {
	if ev == nil {
		return model.Failuref(model.FailureSchemaMismatch, "structured evaluation is missing")
	}
	if len(ev.Categories) != len(d.Categories) {
		return model.Failuref(model.FailureSchemaMismatch,
			"expected %d categories, got %d", len(d.Categories), len(ev.Categories))
	}

	byName := make(map[string]*CategoryResult, len(ev.Categories))
	for i := range ev.Categories {
		c := &ev.Categories[i]
		if _, dup := byName[c.Name]; dup {
			return model.Failuref(model.FailureSchemaMismatch, "duplicate category %q", c.Name)
		}
		byName[c.Name] = c
	}

	for _, want := range d.Categories {
		got, ok := byName[want.Name]
		if !ok {
			return model.Failuref(model.FailureSchemaMismatch, "missing category %q", want.Name)
		}
		if err := validateCategory(&want, got); err != nil {
			return err
		}
	}

	if err := validateHighlightList("strengths", ev.Highlights.Strengths); err != nil {
		return err
	}
	if err := validateHighlightList("improvements", ev.Highlights.Improvements); err != nil {
		return err
	}
	return validateHighlightList("nextGoals", ev.Highlights.NextGoals)
}

func validateCategory(want *Category, got *CategoryResult) error {
	if len(got.Subcategories) != len(want.Subcategories) {
		return model.Failuref(model.FailureSchemaMismatch,
			"category %q: expected %d subcategories, got %d", want.Name, len(want.Subcategories), len(got.Subcategories))
	}
	byName := make(map[string]*SubcategoryResult, len(got.Subcategories))
	for i := range got.Subcategories {
		s := &got.Subcategories[i]
		if _, dup := byName[s.Name]; dup {
			return model.Failuref(model.FailureSchemaMismatch, "category %q: duplicate subcategory %q", want.Name, s.Name)
		}
		byName[s.Name] = s
	}
	for _, sub := range want.Subcategories {
		got, ok := byName[sub.Name]
		if !ok {
			return model.Failuref(model.FailureSchemaMismatch, "category %q: missing subcategory %q", want.Name, sub.Name)
		}
		if got.Score < 1 || got.Score > 3 {
			return model.Failuref(model.FailureSchemaMismatch,
				"category %q, subcategory %q: score %d outside {1,2,3}", want.Name, sub.Name, got.Score)
		}
	}
	return nil
}

func validateHighlightList(name string, values []string) error {
	if len(values) == 0 {
		return model.Failuref(model.FailureSchemaMismatch, "highlights.%s must be a non-empty list", name)
	}
	for _, v := range values {
		if v == "" {
			return model.Failuref(model.FailureSchemaMismatch, "highlights.%s contains an empty entry", name)
		}
	}
	return nil
}

// FunctionParameters renders the rubric as an OpenAI function-call parameter
// schema. The structuring request uses tool-choice to force the model through
// this schema, which makes conformant output far more likely, but the
// response is still validated independently by Validate.
func (d *Definition) FunctionParameters() jsonschema.Definition {
	subcategory := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name":    {Type: jsonschema.String, Description: "Subcategory name, exactly as listed in the rubric"},
			"score":   {Type: jsonschema.Integer, Description: "Score for this subcategory: 1, 2, or 3"},
			"comment": {Type: jsonschema.String, Description: "Optional short justification"},
		},
		Required: []string{"name", "score"},
	}
	category := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name":          {Type: jsonschema.String, Description: "Category name, exactly as listed in the rubric"},
			"subcategories": {Type: jsonschema.Array, Items: &subcategory},
		},
		Required: []string{"name", "subcategories"},
	}
	stringList := jsonschema.Definition{
		Type:  jsonschema.Array,
		Items: &jsonschema.Definition{Type: jsonschema.String},
	}
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"categories": {Type: jsonschema.Array, Items: &category},
			"totalScore": {Type: jsonschema.Integer, Description: "Sum of all subcategory scores"},
			"rank":       {Type: jsonschema.String, Description: "Rank label derived from the total score"},
			"highlights": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"strengths":    stringList,
					"improvements": stringList,
					"nextGoals":    stringList,
				},
				Required: []string{"strengths", "improvements", "nextGoals"},
			},
		},
		Required: []string{"categories", "totalScore", "rank", "highlights"},
	}
}

// RubricText renders the rubric as plain text for inclusion in the
// structuring system prompt, one line per subcategory with its level
// descriptions.
func (d *Definition) RubricText() string {
	out := ""
	for i, c := range d.Categories {
		out += fmt.Sprintf("%d. %s\n", i+1, c.Name)
		for _, s := range c.Subcategories {
			out += fmt.Sprintf("- %s (3: %s, 2: %s, 1: %s)\n", s.Name, s.High, s.Medium, s.Low)
		}
	}
	return out
}
