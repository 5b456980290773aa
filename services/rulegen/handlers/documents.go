// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/embedding"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/services"
)

var (
	CHUNK_SIZE        = 1000
	CHUNK_OVERLAP     = int(float64(CHUNK_SIZE) * 0.10) // Chunk_overlap is 10% of the CHUNK_SIZE
	defaultSeparators = []string{"\n\n", "\n", " ", ""}

	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// CreateDocument ingests a policy document: split, embed, store.
func CreateDocument(store services.PolicyStore, embedder embedding.Embedder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.IngestDocumentRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.Content == "" || req.Source == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content and source are required"})
			return
		}

		chunksCreated, err := RunIngestion(c, store, embedder, req)
		if err != nil {
			slog.Error("Ingestion failed", "source", req.Source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Successfully processed policy document", "source", req.Source, "chunks_processed", chunksCreated)
		c.JSON(http.StatusCreated, gin.H{
			"status":           "success",
			"source":           req.Source,
			"chunks_processed": chunksCreated,
		})
	}
}

// RunIngestion splits the document, batch-embeds the chunks, and stores
// them. Split out of the handler so the CLI seeding path can reuse it.
func RunIngestion(c *gin.Context, store services.PolicyStore, embedder embedding.Embedder,
	req datatypes.IngestDocumentRequest) (int, error) {

	ctx := c.Request.Context()
	splitter := getSplitterForFile(req.Source)

	chunks, err := splitter.SplitText(req.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to split content: %w", err)
	}
	if len(chunks) == 0 {
		slog.Warn("No chunks produced after splitting", "source", req.Source)
		return 0, nil
	}
	slog.Info("Split policy document into chunks", "source", req.Source, "chunk_count", len(chunks))

	vectors, err := embedder.BatchEmbed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed policy chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned mismatched vector count")
	}

	now := time.Now().UnixMilli()
	policyChunks := make([]services.PolicyChunk, len(chunks))
	for i, chunk := range chunks {
		policyChunks[i] = services.PolicyChunk{
			Content:      chunk,
			Source:       fmt.Sprintf("%s_part_%d", req.Source, i+1),
			ParentSource: req.Source,
			DataSpace:    req.DataSpace,
			VersionTag:   req.VersionTag,
			IngestedAt:   now,
			Vector:       vectors[i],
		}
	}

	return store.Ingest(ctx, policyChunks)
}

// ListDocuments returns the distinct parent sources of ingested policy
// documents.
func ListDocuments(store services.PolicyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sources, err := store.ListSources(c.Request.Context())
		if err != nil {
			slog.Error("Failed to list policy documents", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query documents"})
			return
		}
		if sources == nil {
			sources = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"documents": sources, "count": len(sources)})
	}
}

// DeleteBySource removes every chunk of one policy document, identified by
// the ?source= query parameter.
func DeleteBySource(store services.PolicyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.Query("source")
		if source == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source query parameter is required"})
			return
		}

		if err := store.DeleteSource(c.Request.Context(), source); err != nil {
			slog.Error("Failed to delete policy document", "source", source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
			return
		}

		slog.Info("Deleted policy document", "source", source)
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_source": source})
	}
}

func getSplitterForFile(filename string) textsplitter.TextSplitter {
	switch filepath.Ext(filename) {
	case ".md":
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(CHUNK_SIZE),
			textsplitter.WithChunkOverlap(CHUNK_OVERLAP),
			textsplitter.WithSeparators(markdownSeparators),
		)
	default:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(CHUNK_SIZE),
			textsplitter.WithChunkOverlap(CHUNK_OVERLAP),
			textsplitter.WithSeparators(defaultSeparators),
		)
	}
}
