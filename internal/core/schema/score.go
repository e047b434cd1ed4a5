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

// Scoring and ranking over validated evaluations. Totals and ranks are
// derived here, server-side, never taken from model output.
package schema

// TotalScore sums every subcategory score in the evaluation.
func TotalScore(ev *StructuredEvaluation) int {
	total := 0
	for _, c := range ev.Categories {
		for _, s := range c.Subcategories {
			total += int(s.Score)
		}
	}
	return total
}

// RankFor maps a total score onto its configured band label.
func (b RankBands) RankFor(total int) string {
	switch {
	case total >= b.ExcellentMin:
		return b.ExcellentLabel
	case total >= b.AdequateMin:
		return b.AdequateLabel
	default:
		return b.NeedsImprovementLabel
	}
}

// Finalize overwrites the evaluation's TotalScore and Rank with the values
// derived from its subcategory scores. Call after Validate.
func (d *Definition) Finalize(ev *StructuredEvaluation) {
	ev.TotalScore = TotalScore(ev)
	ev.Rank = d.RankBands.RankFor(ev.TotalScore)
}
