package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/app"
	"ragchat/internal/transport/http/response"
)

// multipartOverhead covers the form framing and the "format" field sent
// alongside the document.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	ingestService *app.IngestService
}

func NewDocumentHandler(ingestService *app.IngestService) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService}
}

// Upload indexes the multipart "file" field before responding. The optional
// "format" field overrides the file extension.
func (h *DocumentHandler) Upload(c *gin.Context) {
	input, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer closeBody(input)

	result, err := h.ingestService.Ingest(c.Request.Context(), input)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, result)
}

// UploadAsync queues the upload for the ingest worker.
func (h *DocumentHandler) UploadAsync(c *gin.Context) {
	input, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer closeBody(input)

	if err := h.ingestService.Enqueue(c.Request.Context(), input); err != nil {
		response.AppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.APIResponse{
		Code:    response.CodeOK,
		Message: "queued",
		Data:    gin.H{"filename": input.Filename},
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.ingestService.ListDocuments(c.Request.Context(), userID)
	if err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) DeleteAll(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.ingestService.DeleteAll(c.Request.Context(), userID); err != nil {
		response.AppError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

func (h *DocumentHandler) readUpload(c *gin.Context) (app.IngestInput, bool) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return app.IngestInput{}, false
	}

	maxBytes := h.ingestService.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge,
				fmt.Sprintf("document exceeds %d bytes", maxBytes))
			return app.IngestInput{}, false
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return app.IngestInput{}, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "cannot read uploaded file")
		return app.IngestInput{}, false
	}

	return app.IngestInput{
		OwnerID:  userID,
		Filename: fileHeader.Filename,
		Format:   c.PostForm("format"),
		Body:     file,
	}, true
}

func closeBody(input app.IngestInput) {
	if closer, ok := input.Body.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
