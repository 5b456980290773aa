// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/embedding"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/handlers"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/services"
)

func SetupRoutes(router *gin.Engine, generator handlers.RuleGenerator,
	vocab []rule_engine.VocabularyEntry, store services.PolicyStore,
	embedder embedding.Embedder, rateLimit gin.HandlerFunc) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	if rateLimit != nil {
		v1.Use(rateLimit)
	}
	{
		v1.GET("/keys", handlers.ListKeys(vocab))
		v1.POST("/rules/generate", handlers.GenerateRule(generator))
		v1.POST("/documents", handlers.CreateDocument(store, embedder))
		v1.GET("/documents", handlers.ListDocuments(store))
		v1.DELETE("/document", handlers.DeleteBySource(store))
	}
}
