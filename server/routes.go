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

// API route definitions: media ingestion and reads, analysis runs, and the
// dashboard endpoints. Handlers stay thin; all behavior lives in the
// services and the pipeline.
package main

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/findpartner/gcp-go-analysis/internal/core/model"
)

// ownerFrom resolves the acting member id from the X-User-Id header or the
// userId parameter. The dashboard fronts authentication; the API trusts the
// id it is handed.
func ownerFrom(c *gin.Context) string {
	if owner := c.GetHeader("X-User-Id"); owner != "" {
		return owner
	}
	return c.Query("userId")
}

// statusForFailure maps the failure taxonomy onto HTTP status codes.
func statusForFailure(err error) int {
	switch model.KindOf(err) {
	case model.FailureNotFound:
		return http.StatusNotFound
	case model.FailureSchemaMismatch:
		return http.StatusUnprocessableEntity
	case model.FailureSetup:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MediaRouter sets up recording ingestion and retrieval:
//   - POST /uploads: multipart upload of one or more recordings.
//   - POST /drive/import: copy a Google Drive file into the media bucket.
//   - GET /media: list the member's recordings.
//   - GET /media/:id/stream: signed playback URL.
func MediaRouter(r *gin.RouterGroup) {
	uploads := r.Group("/uploads")
	{
		uploads.POST("", func(c *gin.Context) {
			owner := ownerFrom(c)
			if owner == "" {
				owner = c.PostForm("userId")
			}
			if owner == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
				return
			}

			form, err := c.MultipartForm()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}
			files := form.File["files"]
			if len(files) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no files in upload"})
				return
			}

			records := make([]*model.MediaRecord, 0, len(files))
			for _, file := range files {
				f, err := file.Open()
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
					return
				}
				record, err := state.mediaService.Upload(c.Request.Context(), owner, file.Filename, f)
				_ = f.Close()
				if err != nil {
					slog.Error("upload failed", "file", file.Filename, "error", err)
					c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
					return
				}
				records = append(records, record)
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "media": records})
		})
	}

	drive := r.Group("/drive")
	{
		drive.POST("/import", func(c *gin.Context) {
			var req struct {
				UserID      string `json:"userId"`
				FileID      string `json:"fileId" binding:"required"`
				AccessToken string `json:"accessToken"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}
			owner := req.UserID
			if owner == "" {
				owner = ownerFrom(c)
			}
			if owner == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
				return
			}

			record, err := state.mediaService.ImportFromDrive(c.Request.Context(), owner, req.FileID, req.AccessToken)
			if err != nil {
				slog.Error("drive import failed", "fileId", req.FileID, "error", err)
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "media": record})
		})
	}

	media := r.Group("/media")
	{
		media.GET("", func(c *gin.Context) {
			owner := ownerFrom(c)
			if owner == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
				return
			}
			records, err := state.mediaService.List(c.Request.Context(), owner)
			if err != nil {
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "media": records})
		})

		media.GET("/:id/stream", func(c *gin.Context) {
			url, err := state.mediaService.PlaybackURL(c.Request.Context(), c.Param("id"))
			if err != nil {
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": url})
		})
	}
}

// AnalyticsRouter sets up the pipeline triggers:
//   - GET|POST /analytics/batch: discover and analyze unanalyzed recordings.
//   - POST /analytics/analyze: analyze one recording by media id.
func AnalyticsRouter(r *gin.RouterGroup) {
	analytics := r.Group("/analytics")
	{
		runBatch := func(c *gin.Context) {
			result, err := state.pipeline.RunBatch(c.Request.Context(), ownerFrom(c))
			if err != nil {
				slog.Error("batch run aborted", "error", err)
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"success":        true,
				"processedCount": result.Attempted,
				"succeeded":      result.Succeeded,
				"skipped":        result.Skipped,
				"failed":         result.Failed,
				"results":        result.Results,
				"errors":         result.Errors,
			})
		}
		analytics.GET("/batch", runBatch)
		analytics.POST("/batch", runBatch)

		analytics.POST("/analyze", func(c *gin.Context) {
			var req struct {
				MediaID string `json:"mediaId" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}

			item, err := state.pipeline.RunSingle(c.Request.Context(), req.MediaID)
			if err != nil {
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": item})
		})
	}
}

// Dashboard sets up the dashboard read paths:
//   - GET /analyses: the member's analyses, newest first.
//   - GET /analyses/:id: one analysis with its structured output.
//   - GET /stats: aggregate counts and average score.
func Dashboard(r *gin.RouterGroup) {
	analyses := r.Group("/analyses")
	{
		analyses.GET("", func(c *gin.Context) {
			owner := ownerFrom(c)
			if owner == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
				return
			}
			out, err := state.analysisService.List(c.Request.Context(), owner)
			if err != nil {
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "analyses": out})
		})

		analyses.GET("/:id", func(c *gin.Context) {
			out, err := state.analysisService.Get(c.Request.Context(), c.Param("id"))
			if err != nil {
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "analysis": out})
		})
	}

	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			owner := ownerFrom(c)
			if owner == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "userId is required"})
				return
			}
			out, err := state.analysisService.Stats(c.Request.Context(), owner)
			if err != nil {
				c.JSON(statusForFailure(err), gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
