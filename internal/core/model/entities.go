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

// Package model defines the core data structures for the application. This
// file holds the persistent entities stored in Postgres through GORM. The
// JSON field names follow the dashboard's read paths exactly (analysisResults,
// aiResponses, totalScore, status), so the presentation layer can consume API
// responses without translation.
package model

import (
	"time"
)

// MediaKind distinguishes audio from video media records.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// KindForMimeType derives the media kind from a MIME type. Anything that is
// not audio is treated as video, matching the upload surface which only
// accepts audio/* and video/* content.
func KindForMimeType(mimeType string) MediaKind {
	if len(mimeType) >= 6 && mimeType[:6] == "audio/" {
		return MediaKindAudio
	}
	return MediaKindVideo
}

// MediaRecord is a stored audio/video asset awaiting or having undergone
// analysis. Records are immutable once created; the pipeline only ever reads
// them.
type MediaRecord struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Kind              MediaKind  `gorm:"size:8;not null" json:"kind"`
	FileName          string     `gorm:"size:512;not null" json:"fileName"`
	StorageURL        string     `gorm:"size:1024;not null" json:"fileUrl"`
	MimeType          string     `gorm:"size:128;not null" json:"mimeType"`
	OwnerID           string     `gorm:"size:36;index;not null" json:"userId"`
	GoogleDriveFileID *string    `gorm:"size:128" json:"googleDriveFileId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	Analyses          []Analysis `gorm:"foreignKey:MediaRecordID" json:"analyses,omitempty"`
}

// AnalysisStatus is the lifecycle state of an analysis. Transitions only move
// forward: pending -> processing -> completed or error.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusError      AnalysisStatus = "error"
)

// CanTransition reports whether a status change respects the forward-only
// lifecycle. Terminal states never transition again.
func CanTransition(from, to AnalysisStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusError
	case StatusProcessing:
		return to == StatusCompleted || to == StatusError
	default:
		return false
	}
}

// Analysis is the persisted outcome of running the pipeline over one media
// record. RawModelOutput holds the concatenated Gemini narrative
// (aiResponses on the wire); StructuredOutput holds the validated structured
// evaluation JSON (analysisResults on the wire). The unique index on
// MediaRecordID is the idempotency guard: at most one analysis row may ever
// exist for a media record.
type Analysis struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	OwnerID          string         `gorm:"size:36;index;not null" json:"userId"`
	MediaRecordID    *string        `gorm:"size:36;uniqueIndex" json:"mediaRecordId,omitempty"`
	Status           AnalysisStatus `gorm:"size:16;not null;default:pending" json:"status"`
	RawModelOutput   *string        `gorm:"type:text" json:"aiResponses"`
	StructuredOutput *string        `gorm:"type:jsonb" json:"analysisResults"`
	TotalScore       *int           `json:"totalScore"`
	Rank             *string        `gorm:"size:64" json:"rank,omitempty"`
	FailureReason    *string        `gorm:"type:text" json:"failureReason,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`

	MediaRecord *MediaRecord `gorm:"foreignKey:MediaRecordID" json:"videoFile,omitempty"`
}
