// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/vinaykumar649/Crego-AI-ML-Task/pkg/logging"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/embedding"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/llm"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/middleware"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/observability"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/routes"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/services"
)

// initTracer wires the OTLP gRPC exporter when a collector endpoint is
// configured, and a stdout exporter otherwise so traces are never silently
// dropped in development.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint != "" {
		conn, err := grpc.NewClient(otelEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, err
		}
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, err
		}
	} else {
		slog.Warn("OTEL_EXPORTER_OTLP_ENDPOINT not set, exporting traces to stdout")
		var err error
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("rulegen-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(exporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := exporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown trace exporter", "error", err)
		}
	}, nil
}

// newEmbedder selects the embedding backend from config.
func newEmbedder(cfg Config) (embedding.Embedder, error) {
	switch cfg.EmbeddingBackend {
	case "service":
		baseURL := strings.Trim(os.Getenv("EMBEDDING_SERVICE_URL"), "\"' ")
		if baseURL == "" {
			log.Fatal("EMBEDDING_BACKEND=service requires EMBEDDING_SERVICE_URL")
		}
		slog.Info("Using sidecar embedding backend", "base_url", baseURL)
		return embedding.NewServiceClient(strings.TrimSuffix(baseURL, "/")), nil
	default:
		slog.Info("Using OpenAI embedding backend")
		return embedding.NewOpenAIEmbedder()
	}
}

// newLLMClient selects the drafting backend from config.
func newLLMClient(cfg Config) (llm.LLMClient, error) {
	switch cfg.LLMBackend {
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient()
	default:
		slog.Info("Using OpenAI LLM backend")
		return llm.NewOpenAIClient()
	}
}

// buildRegistry embeds the whole vocabulary in one batch call and loads the
// registry. Any vocabulary or embedding defect here is fatal.
func buildRegistry(ctx context.Context, vocab []rule_engine.VocabularyEntry,
	embedder embedding.Embedder) (*rule_engine.Registry, error) {

	texts := make([]string, len(vocab))
	for i, entry := range vocab {
		texts[i] = entry.EmbeddingText()
	}
	vectors, err := embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := make([]rule_engine.CanonicalKey, len(vocab))
	for i, entry := range vocab {
		entries[i] = rule_engine.CanonicalKey{Identifier: entry.Key, Embedding: vectors[i]}
	}
	return rule_engine.LoadRegistry(entries)
}

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		Service: "rulegen",
		JSON:    true,
		LogDir:  os.Getenv("LOG_DIR"),
	})
	defer logger.Close()
	logger.Install()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the tracer: %v", err)
	}
	defer cleanup(context.Background())

	// --- Weaviate with lightweight fallback ---
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	var weaviateClient *weaviate.Client
	if weaviateURL != "" && strings.Contains(weaviateURL, "http") {
		parsedURL, err := url.Parse(weaviateURL)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
				"url", weaviateURL, "error", err)
		} else {
			clientConf := weaviate.Config{
				Host:   parsedURL.Host,
				Scheme: parsedURL.Scheme,
			}
			weaviateClient, err = weaviate.NewClient(clientConf)
			if err != nil {
				slog.Error("Failed to create Weaviate client", "error", err)
				weaviateClient = nil
			} else {
				datatypes.EnsureWeaviateSchema(weaviateClient)
			}
		}
	} else {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Running in lightweight mode (in-memory policy store).")
	}

	var store services.PolicyStore
	if weaviateClient != nil {
		store = services.NewWeaviatePolicyStore(weaviateClient)
	} else {
		store = services.NewMemoryPolicyStore()
	}

	// --- Collaborators ---
	embedder, err := newEmbedder(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize embedding backend: %v", err)
	}
	llmClient, err := newLLMClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	// --- Vocabulary and core engine ---
	vocab, err := rule_engine.LoadVocabulary()
	if err != nil {
		log.Fatalf("FATAL: Could not load the key vocabulary: %v", err)
	}
	slog.Info("Loaded key vocabulary", "keys", len(vocab))

	registryCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	registry, err := buildRegistry(registryCtx, vocab, embedder)
	cancel()
	if err != nil {
		log.Fatalf("FATAL: Could not build the key registry: %v", err)
	}
	slog.Info("Built key registry", "keys", registry.Len(), "dimension", registry.Dimension())

	extractor := rule_engine.NewPhraseExtractor(registry, rule_engine.ExtractorConfig{})
	mapper, err := rule_engine.NewSimilarityMapper(registry, rule_engine.MapperConfig{
		Threshold: cfg.SimilarityThreshold,
		TopK:      cfg.TopK,
	})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	ruleValidator, err := rule_engine.NewValidator(registry, rule_engine.ValidatorConfig{
		MaxDepth: cfg.MaxDepth,
	})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	generator, err := services.NewRuleGenerationService(
		extractor, mapper, ruleValidator, embedder, llmClient, store, vocab,
		rule_engine.DefaultAllowedOperators(),
		services.GeneratorConfig{
			RetrieverTopK:  cfg.RetrieverTopK,
			SuggestionTopK: cfg.TopK,
			MaxRuleBytes:   cfg.MaxRuleBytes,
		})
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the rule generation service: %v", err)
	}

	observability.InitMetrics()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := gin.Default()
	router.Use(otelgin.Middleware("rulegen-service"))
	routes.SetupRoutes(router, generator, vocab, store, embedder, limiter.Middleware())

	log.Println("Starting the rulegen server on port ", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
