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

// Sample payload builders: structuring model output conforming to a rubric,
// and GCS Pub/Sub notification messages for the intake workflow.
package test

import (
	"encoding/json"
	"log"

	"github.com/findpartner/gcp-go-analysis/internal/cloud"
	"github.com/findpartner/gcp-go-analysis/internal/core/schema"
)

// EvaluationJSON renders a structured evaluation that conforms to the rubric,
// scoring subcategories in rubric order from scores and repeating the last
// entry once the list runs short. The embedded totalScore and rank are
// deliberately wrong so tests prove they are recomputed server-side.
func EvaluationJSON(rubric *schema.Definition, scores ...int) string {
	if len(scores) == 0 {
		scores = []int{3}
	}
	ev := schema.StructuredEvaluation{
		TotalScore: 999,
		Rank:       "made-up-by-the-model",
		Highlights: schema.Highlights{
			Strengths:    []string{"Warm, attentive listening throughout"},
			Improvements: []string{"Let the other speaker finish more often"},
			NextGoals:    []string{"Ask one deeper follow-up question per topic"},
		},
	}
	i := 0
	for _, category := range rubric.Categories {
		result := schema.CategoryResult{Name: category.Name}
		for _, sub := range category.Subcategories {
			score := scores[len(scores)-1]
			if i < len(scores) {
				score = scores[i]
			}
			i++
			result.Subcategories = append(result.Subcategories, schema.SubcategoryResult{
				Name:    sub.Name,
				Score:   schema.Score(score),
				Comment: "observed in the recording",
			})
		}
		ev.Categories = append(ev.Categories, result)
	}
	out, err := json.Marshal(&ev)
	if err != nil {
		log.Fatalf("failed to marshal sample evaluation: %v", err)
	}
	return string(out)
}

// GCSNotificationText renders the Pub/Sub payload GCS publishes when an
// object lands in the media bucket, with the owner carried in the object
// metadata the way the upload surfaces write it.
func GCSNotificationText(bucket, name, contentType, owner string) string {
	notification := cloud.GCSPubSubNotification{
		Kind:        "storage#object",
		ID:          bucket + "/" + name + "/1735689600000000",
		Name:        name,
		Bucket:      bucket,
		ContentType: contentType,
		TimeCreated: "2025-01-01T00:00:00.000Z",
		Size:        "1048576",
		MediaLink:   "https://storage.googleapis.com/download/storage/v1/b/" + bucket + "/o/" + name + "?alt=media",
		MetaData:    map[string]interface{}{},
	}
	if owner != "" {
		notification.MetaData["owner"] = owner
	}
	out, err := json.Marshal(&notification)
	if err != nil {
		log.Fatalf("failed to marshal sample notification: %v", err)
	}
	return string(out)
}
