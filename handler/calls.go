package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/n3utron0/telecom-call-data-analyzer/model"
	"github.com/n3utron0/telecom-call-data-analyzer/service"
)

// CallHandler exposes the ingestion boundary: single uploads with human
// confirmation, and batch uploads without one.
type CallHandler struct {
	audio          service.AudioStore
	single         *service.SinglePipeline
	batch          *service.BatchPipeline
	maxUploadBytes int64
}

func NewCallHandler(audio service.AudioStore, single *service.SinglePipeline, batch *service.BatchPipeline, maxUploadMB int) *CallHandler {
	return &CallHandler{
		audio:          audio,
		single:         single,
		batch:          batch,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Upload handles one audio file: stage → extract → validate → park for
// review. Nothing is written to the warehouse here.
func (h *CallHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	contentType, err := h.acceptAudio(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	objectName := fmt.Sprintf("calls/%s_%s", uuid.New().String(), header.Filename)
	ref, err := h.audio.Upload(c.Request.Context(), objectName, file, header.Size, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stage audio: " + err.Error()})
		return
	}

	review, err := h.single.Process(c.Request.Context(), ref)
	if err != nil {
		status, payload := pipelineErrorResponse(err)
		c.JSON(status, payload)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "awaiting_confirmation",
		"review_token": review.Token,
		"record":       review.Record,
	})
}

// Confirm applies reviewer edits and commits the record.
func (h *CallHandler) Confirm(c *gin.Context) {
	token := c.Param("token")

	var edits model.CallRecord
	if err := c.ShouldBindJSON(&edits); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record payload: " + err.Error()})
		return
	}

	rec, err := h.single.Confirm(c.Request.Context(), token, &edits)
	if err != nil {
		status, payload := pipelineErrorResponse(err)
		c.JSON(status, payload)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "committed",
		"record": rec,
	})
}

// Reject discards a staged record.
func (h *CallHandler) Reject(c *gin.Context) {
	token := c.Param("token")

	if err := h.single.Reject(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// BatchUpload accepts many audio files, stages the acceptable ones and runs
// the batch pipeline. Files refused at intake (format, size) appear in the
// summary as failed items; they never abort the rest.
func (h *CallHandler) BatchUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	var refs []service.AudioRef
	intakeRejected := make(map[string]string)
	for _, header := range files {
		contentType, err := h.acceptAudio(header)
		if err != nil {
			intakeRejected[header.Filename] = err.Error()
			continue
		}

		src, err := header.Open()
		if err != nil {
			intakeRejected[header.Filename] = "failed to read upload: " + err.Error()
			continue
		}

		objectName := fmt.Sprintf("calls/%s_%s", uuid.New().String(), header.Filename)
		ref, err := h.audio.Upload(c.Request.Context(), objectName, src, header.Size, contentType)
		src.Close()
		if err != nil {
			intakeRejected[header.Filename] = "failed to stage audio: " + err.Error()
			continue
		}
		refs = append(refs, ref)
	}

	job := h.batch.Run(c.Request.Context(), refs)

	// Fold intake rejections into the summary so every submitted file is
	// accounted for.
	for name, reason := range intakeRejected {
		job.Refs = append(job.Refs, name)
		job.Outcomes[name] = &model.BatchOutcome{Ref: name, Reason: reason}
		job.Submitted++
		job.Failed++
	}

	c.JSON(http.StatusOK, job)
}

// acceptAudio enforces the intake contract: wav/mp3 only, bounded size.
func (h *CallHandler) acceptAudio(header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	var contentType string
	switch ext {
	case ".wav":
		contentType = "audio/wav"
	case ".mp3":
		contentType = "audio/mpeg"
	default:
		return "", fmt.Errorf("unsupported format %q: only .wav and .mp3 are accepted", ext)
	}

	if header.Size > h.maxUploadBytes {
		return "", fmt.Errorf("file exceeds the %d MB upload limit", h.maxUploadBytes/(1024*1024))
	}

	return contentType, nil
}

// pipelineErrorResponse maps typed pipeline failures onto HTTP responses
// carrying the specific field and reason, so the caller can correct and
// retry.
func pipelineErrorResponse(err error) (int, gin.H) {
	var valErr *model.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusUnprocessableEntity, gin.H{
			"error":  valErr.Error(),
			"field":  valErr.Field,
			"code":   string(valErr.Code),
			"reason": valErr.Reason,
		}
	}

	var extErr *model.ExtractionError
	if errors.As(err, &extErr) {
		return http.StatusBadGateway, gin.H{
			"error": extErr.Error(),
			"code":  string(extErr.Kind),
		}
	}

	var commitErr *model.CommitError
	if errors.As(err, &commitErr) {
		return http.StatusBadGateway, gin.H{
			"error":   commitErr.Error(),
			"code":    "commit_failed",
			"records": commitErr.Records,
		}
	}

	if strings.Contains(err.Error(), "no staged record") {
		return http.StatusNotFound, gin.H{"error": err.Error()}
	}

	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}
