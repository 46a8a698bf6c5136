// Package service contains the business logic layer: the scoring pipeline,
// the ingestion orchestrator, evidence building, application packs, exports,
// contacts, and the recovery sweeps the scheduler drives.
package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobops/jobops-api/internal/config"
	"github.com/jobops/jobops-api/internal/crypto"
	"github.com/jobops/jobops-api/internal/fetch"
	"github.com/jobops/jobops-api/internal/jd"
	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/repository"
)

// Sentinel errors shared across services. The HTTP layer maps these to
// status codes; services wrap them with context via fmt.Errorf and %w.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrSchemaDisabled = errors.New("schema feature disabled")
	ErrExternal       = errors.New("external dependency failed")
)

// Services holds all service instances. LLM is the shared client so callers
// outside the package (scheduler, readiness logging) can check availability.
type Services struct {
	Event    *EventService
	Scoring  *ScoringService
	Ingest   *IngestService
	Evidence *EvidenceService
	Pack     *PackService
	Export   *ExportService
	Contact  *ContactService
	Recovery *RecoveryService
	Storage  *StorageService
	LLM      *llm.Client
}

// NewServices creates all service instances in dependency order.
func NewServices(cfg *config.Config, repos *repository.Repositories, features repository.Features, logger *slog.Logger) (*Services, error) {
	// Encryptor first: contact handles are encrypted at rest when a key is set.
	var encryptor *crypto.Encryptor
	if cfg.EncryptionEnabled() {
		var err error
		encryptor, err = crypto.NewEncryptor(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
	} else {
		logger.Warn("no encryption key configured - contact handles stored in plaintext")
	}

	storageSvc, err := NewStorageService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	fetcher := fetch.New(cfg.JDFetchTimeout, logger)
	resolver := jd.NewResolver(fetcher, logger)
	llmClient := llm.New(llm.Config{
		APIKey:           cfg.AnthropicAPIKey,
		Model:            cfg.AnthropicModel,
		ExtractMaxTokens: cfg.LLMExtractMaxTokens,
		ScoreMaxTokens:   cfg.LLMScoreMaxTokens,
		Timeout:          cfg.LLMTimeout,
	}, logger)

	eventSvc := NewEventService(repos, features, logger)
	evidenceSvc := NewEvidenceService(cfg, repos, features, llmClient, eventSvc, logger)
	scoringSvc := NewScoringService(cfg, repos, features, llmClient, evidenceSvc, eventSvc, logger)
	ingestSvc := NewIngestService(cfg, repos, resolver, llmClient, scoringSvc, eventSvc, logger)
	packSvc := NewPackService(cfg, repos, features, llmClient, eventSvc, logger)
	exportSvc := NewExportService(cfg, repos, features, packSvc, storageSvc, logger)
	contactSvc := NewContactService(repos, features, encryptor, logger)
	recoverySvc := NewRecoveryService(cfg, repos, resolver, llmClient, scoringSvc, eventSvc, logger)

	return &Services{
		Event:    eventSvc,
		Scoring:  scoringSvc,
		Ingest:   ingestSvc,
		Evidence: evidenceSvc,
		Pack:     packSvc,
		Export:   exportSvc,
		Contact:  contactSvc,
		Recovery: recoverySvc,
		Storage:  storageSvc,
		LLM:      llmClient,
	}, nil
}
