// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
)

// ListKeys exposes the closed key vocabulary so clients can see what a
// generated rule may reference.
func ListKeys(vocab []rule_engine.VocabularyEntry) gin.HandlerFunc {
	keys := make([]datatypes.KeyInfo, len(vocab))
	for i, entry := range vocab {
		keys[i] = datatypes.KeyInfo{
			Key:         entry.Key,
			Description: entry.Description,
			Synonyms:    entry.Synonyms,
		}
	}
	response := datatypes.ListKeysResponse{Keys: keys, Count: len(keys)}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response)
	}
}
