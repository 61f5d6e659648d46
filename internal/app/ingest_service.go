package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragchat/internal/chunker"
	"ragchat/internal/extract"
	"ragchat/internal/logger"
	"ragchat/internal/model"
)

// Ingestion steps, reported as Error.Op.
const (
	StepValidate = "validate"
	StepSave     = "save_file"
	StepExtract  = "extract"
	StepDocument = "store_document"
	StepChunks   = "store_chunks"
	StepEnqueue  = "enqueue"
)

// Extractor converts a document in a given format into plain text.
type Extractor interface {
	Extract(r io.Reader, format extract.Format) (string, error)
}

type IngestService struct {
	chunks    ChunkStore
	docs      DocumentStore
	files     FileStore
	extractor Extractor
	chunker   *chunker.Chunker
	allowed   map[extract.Format]bool
	maxBytes  int64
	publisher IngestPublisher
	newToken  func() string
}

type IngestOptions struct {
	AllowedFormats []string
	MaxBytes       int64
	Publisher      IngestPublisher
}

type IngestInput struct {
	OwnerID  uint
	Filename string
	// Format is the document format tag; empty means derive it from
	// Filename's extension.
	Format string
	Body   io.Reader
}

type IngestResult struct {
	Document   model.Document `json:"document"`
	ChunkCount int            `json:"chunk_count"`
}

func NewIngestService(
	chunks ChunkStore,
	docs DocumentStore,
	files FileStore,
	extractor Extractor,
	ch *chunker.Chunker,
	opts IngestOptions,
) *IngestService {
	if ch == nil {
		ch = chunker.Default()
	}
	allowed := map[extract.Format]bool{}
	for _, tag := range opts.AllowedFormats {
		if f, err := extract.ParseFormat(tag); err == nil {
			allowed[f] = true
		}
	}
	if len(allowed) == 0 {
		allowed = map[extract.Format]bool{extract.FormatPDF: true, extract.FormatDOCX: true, extract.FormatTXT: true}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &IngestService{
		chunks:    chunks,
		docs:      docs,
		files:     files,
		extractor: extractor,
		chunker:   ch,
		allowed:   allowed,
		maxBytes:  maxBytes,
		publisher: opts.Publisher,
		newToken:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Ingest stores the raw file, extracts its text and writes one chunk per
// word window. Chunks are written one by one; a failure part way through
// keeps the chunks already written.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	filename, format, err := s.validate(input.OwnerID, input.Filename, input.Format)
	if err != nil {
		return nil, err
	}
	if input.Body == nil {
		return nil, validationError(StepValidate, "document body is required")
	}
	body, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, newError(ErrValidation, StepValidate, fmt.Errorf("read document failed: %w", err))
	}
	if int64(len(body)) > s.maxBytes {
		return nil, validationError(StepValidate, fmt.Sprintf("document exceeds %d bytes", s.maxBytes))
	}

	log := logger.With("owner_id", input.OwnerID, "filename", filename, "format", string(format))

	text, err := s.extractor.Extract(bytes.NewReader(body), format)
	if err != nil {
		log.Warn("extract document failed", "error", err.Error())
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			return nil, newError(ErrUnsupportedFormat, StepExtract, err)
		}
		return nil, newError(ErrExtraction, StepExtract, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, newError(ErrExtractionEmpty, StepExtract, nil)
	}

	storagePath, err := s.files.Save(input.OwnerID, filename, body)
	if err != nil {
		return nil, newError(ErrStore, StepSave, err)
	}

	doc := &model.Document{
		OwnerID:          input.OwnerID,
		StoragePath:      storagePath,
		OriginalFilename: filename,
		Format:           string(format),
		CreatedAt:        time.Now(),
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		return nil, newError(ErrStore, StepDocument, err)
	}

	token := s.newToken()
	written := 0
	for piece := range s.chunker.Seq(text) {
		chunk := &model.Chunk{
			OwnerID:       input.OwnerID,
			DocumentID:    doc.ID,
			SourceChunkID: fmt.Sprintf("%s_%s_%d", token, filename, written),
			Ordinal:       written,
			Text:          piece,
			CreatedAt:     time.Now(),
		}
		if err := s.chunks.PutChunk(ctx, chunk); err != nil {
			log.Error("store chunk failed", "written", written, "error", err.Error())
			return nil, newError(ErrStore, StepChunks, fmt.Errorf("chunk %d: %w", written, err))
		}
		written++
	}

	if err := s.docs.SetChunkCount(ctx, input.OwnerID, doc.ID, written); err != nil {
		return nil, newError(ErrStore, StepDocument, err)
	}
	doc.ChunkCount = written

	log.Info("document indexed", "document_id", doc.ID, "chunks", written)
	return &IngestResult{Document: *doc, ChunkCount: written}, nil
}

// MaxBytes is the largest document body Ingest and Enqueue accept.
func (s *IngestService) MaxBytes() int64 { return s.maxBytes }

// Enqueue validates the upload and hands it to the ingestion queue.
func (s *IngestService) Enqueue(ctx context.Context, input IngestInput) error {
	filename, format, err := s.validate(input.OwnerID, input.Filename, input.Format)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return newError(ErrStore, StepEnqueue, errors.New("ingest queue is not configured"))
	}
	if input.Body == nil {
		return validationError(StepValidate, "document body is required")
	}
	body, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return newError(ErrValidation, StepValidate, fmt.Errorf("read document failed: %w", err))
	}
	if int64(len(body)) > s.maxBytes {
		return validationError(StepValidate, fmt.Sprintf("document exceeds %d bytes", s.maxBytes))
	}
	job := IngestJob{OwnerID: input.OwnerID, Filename: filename, Format: string(format), Body: body}
	if err := s.publisher.PublishIngest(ctx, job); err != nil {
		return newError(ErrStore, StepEnqueue, err)
	}
	return nil
}

// HandleJob runs a queued ingestion job.
func (s *IngestService) HandleJob(ctx context.Context, job IngestJob) (*IngestResult, error) {
	return s.Ingest(ctx, IngestInput{
		OwnerID:  job.OwnerID,
		Filename: job.Filename,
		Format:   job.Format,
		Body:     bytes.NewReader(job.Body),
	})
}

func (s *IngestService) ListDocuments(ctx context.Context, ownerID uint) ([]model.Document, error) {
	if ownerID == 0 {
		return nil, validationError("list_documents", "owner_id is required")
	}
	docs, err := s.docs.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, newError(ErrStore, "list_documents", err)
	}
	return docs, nil
}

// DeleteAll removes every chunk and document record of the owner.
func (s *IngestService) DeleteAll(ctx context.Context, ownerID uint) error {
	if ownerID == 0 {
		return validationError("delete_documents", "owner_id is required")
	}
	if err := s.chunks.DeleteChunks(ctx, ownerID); err != nil {
		return newError(ErrStore, "delete_chunks", err)
	}
	if err := s.docs.DeleteDocuments(ctx, ownerID); err != nil {
		return newError(ErrStore, "delete_documents", err)
	}
	return nil
}

func (s *IngestService) validate(ownerID uint, filename, tag string) (string, extract.Format, error) {
	if ownerID == 0 {
		return "", "", validationError(StepValidate, "owner_id is required")
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", "", validationError(StepValidate, "filename is required")
	}
	var (
		format extract.Format
		err    error
	)
	if strings.TrimSpace(tag) != "" {
		format, err = extract.ParseFormat(tag)
	} else {
		format, err = extract.FormatFromFilename(filename)
	}
	if err != nil {
		return "", "", newError(ErrUnsupportedFormat, StepValidate, err)
	}
	if !s.allowed[format] {
		return "", "", newError(ErrUnsupportedFormat, StepValidate, fmt.Errorf("format %q is not allowed", format))
	}
	return filename, format, nil
}
