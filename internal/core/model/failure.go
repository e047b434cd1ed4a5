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

// This file defines the pipeline's failure taxonomy and the batch result
// shapes returned to callers. Item-level failures never abort a batch; only a
// setup failure does.
package model

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a pipeline item or batch failed.
type FailureKind string

const (
	// FailureTransient covers network errors, timeouts, and empty responses
	// from an external AI service.
	FailureTransient FailureKind = "transient"
	// FailureSchemaMismatch means the structuring output did not validate
	// against the evaluation schema. Nothing partial is persisted.
	FailureSchemaMismatch FailureKind = "schema_mismatch"
	// FailureNotFound means a referenced media or analysis id is absent.
	FailureNotFound FailureKind = "not_found"
	// FailureSetup means a precondition of the whole batch failed, such as an
	// unreachable database or missing credentials. Batch-fatal.
	FailureSetup FailureKind = "setup"
)

// Failure is an error carrying its taxonomy kind so handlers can map it to
// status codes and batch error lists without string matching.
type Failure struct {
	Kind FailureKind
	Err  error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure wraps err with a failure kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Failuref wraps a formatted message with a failure kind.
func Failuref(kind FailureKind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error chain. Unclassified errors
// are treated as transient, the safest default for external-call plumbing.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureTransient
}

// SkipReasonDuplicate is reported when an item already has a completed or
// in-flight analysis. A skip is not an error.
const SkipReasonDuplicate = "duplicate"

// ItemError describes one item-level failure inside a batch response.
type ItemError struct {
	MediaRecordID string      `json:"mediaId,omitempty"`
	AnalysisID    string      `json:"analysisId,omitempty"`
	Kind          FailureKind `json:"kind"`
	Error         string      `json:"error"`
}

// ItemResult describes one successfully processed or skipped item.
type ItemResult struct {
	MediaRecordID string         `json:"mediaId"`
	AnalysisID    string         `json:"analysisId,omitempty"`
	Status        AnalysisStatus `json:"status,omitempty"`
	TotalScore    *int           `json:"totalScore,omitempty"`
	Rank          *string        `json:"rank,omitempty"`
	SkipReason    string         `json:"skipReason,omitempty"`
}

// BatchResult aggregates the outcome of one pipeline run. Attempted counts
// items that entered the per-item steps (succeeded + failed); duplicates are
// counted separately as skips.
type BatchResult struct {
	Attempted int          `json:"attempted"`
	Succeeded int          `json:"succeeded"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Results   []*ItemResult `json:"results"`
	Errors    []*ItemError  `json:"errors,omitempty"`
}

// RecordSuccess appends a completed item to the batch result.
func (b *BatchResult) RecordSuccess(res *ItemResult) {
	b.Attempted++
	b.Succeeded++
	b.Results = append(b.Results, res)
}

// RecordSkip appends an already-handled item to the batch result. The item
// carries the existing row's id and status so callers can tell a completed
// duplicate from a previously failed one.
func (b *BatchResult) RecordSkip(res *ItemResult) {
	b.Skipped++
	b.Results = append(b.Results, res)
}

// RecordFailure appends a failed item to the batch result.
func (b *BatchResult) RecordFailure(mediaID, analysisID string, err error) {
	b.Attempted++
	b.Failed++
	b.Errors = append(b.Errors, &ItemError{
		MediaRecordID: mediaID,
		AnalysisID:    analysisID,
		Kind:          KindOf(err),
		Error:         err.Error(),
	})
}
