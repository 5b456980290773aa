// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
)

func TestListKeys(t *testing.T) {
	vocab := []rule_engine.VocabularyEntry{
		{Key: "bureau.score", Description: "credit bureau score", Synonyms: []string{"cibil"}},
		{Key: "loan.amount_requested", Description: "requested loan amount"},
	}

	router := gin.New()
	router.GET("/v1/keys", ListKeys(vocab))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/keys", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ListKeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Keys, 2)
	assert.Equal(t, "bureau.score", resp.Keys[0].Key)
	assert.Equal(t, []string{"cibil"}, resp.Keys[0].Synonyms)
	assert.Equal(t, "loan.amount_requested", resp.Keys[1].Key)
}

func TestListKeys_EmbeddedVocabulary(t *testing.T) {
	vocab, err := rule_engine.LoadVocabulary()
	require.NoError(t, err)

	router := gin.New()
	router.GET("/v1/keys", ListKeys(vocab))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/keys", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ListKeysResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, len(vocab), resp.Count)
}
