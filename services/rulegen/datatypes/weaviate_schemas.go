// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"context"
	"log"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// PolicyDocumentClass is the Weaviate class holding ingested credit policy
// chunks used as drafting context.
const PolicyDocumentClass = "PolicyDocument"

func GetPolicyDocumentSchema() *models.Class {
	return &models.Class{
		Class:       PolicyDocumentClass,
		Description: "Chunks of credit policy documents, embedded for semantic retrieval.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:        "content",
				DataType:    []string{"text"},
				Description: "The chunk text",
			},
			{
				Name:        "source",
				DataType:    []string{"text"},
				Description: "Chunk-level source label (parent source plus part number)",
			},
			{
				Name:        "parent_source",
				DataType:    []string{"text"},
				Description: "The document this chunk was split from",
			},
			{
				Name:        "data_space",
				DataType:    []string{"text"},
				Description: "Logical partition for multi-tenant ingestion",
			},
			{
				Name:        "version_tag",
				DataType:    []string{"text"},
				Description: "Policy version the chunk belongs to",
			},
			{
				Name:        "ingested_at",
				DataType:    []string{"number"},
				Description: "Ingestion timestamp in unix milliseconds",
			},
		},
	}
}

// EnsureWeaviateSchema creates the PolicyDocument class if it is missing.
// Failure to create a missing class is fatal: the service cannot store or
// retrieve policy context without it.
func EnsureWeaviateSchema(client *weaviate.Client) {
	class := GetPolicyDocumentSchema()
	slog.Info("Checking schema", "class", class.Class)

	_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
	if err != nil {
		// The client returns an error when the class does not exist yet.
		slog.Info("Schema not found, creating it...", "class", class.Class)
		if err := client.Schema().ClassCreator().WithClass(class).Do(context.Background()); err != nil {
			log.Fatalf("Failed to create schema for class %s: %v", class.Class, err)
		}
		slog.Info("Successfully created schema", "class", class.Class)
	} else {
		slog.Info("Schema already exists", "class", class.Class)
	}
}
