// Package service implements the assistdesk operations shared by the HTTP API
// and the command line.
package service

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/xiaot623/assistdesk/internal/adapter/vapi"
	"github.com/xiaot623/assistdesk/internal/catalog"
	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/hub"
	"github.com/xiaot623/assistdesk/internal/logger"
	"github.com/xiaot623/assistdesk/internal/metrics"
	"github.com/xiaot623/assistdesk/internal/policy"
	"github.com/xiaot623/assistdesk/internal/repository"
)

var (
	// ErrAgentNotFound is returned when a reference matches no catalog entry
	// and is not an assistant id either.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrNoAssistantLoaded is returned by saves before an assistant is loaded.
	ErrNoAssistantLoaded = errors.New("no assistant loaded in this session")
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

type Service struct {
	platform     vapi.Platform
	assistants   *vapi.CachedAssistants
	catalog      *catalog.Catalog
	policyEngine *policy.Engine
	store        repository.Store
	hub          *hub.Hub
	metrics      *metrics.Metrics
	config       *config.Config
	log          *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New wires a Service. hub and metrics may be nil; a nil catalog is empty.
func New(platform vapi.Platform, cat *catalog.Catalog, policyEngine *policy.Engine, store repository.Store, h *hub.Hub, m *metrics.Metrics, cfg *config.Config, log *logger.Logger) *Service {
	if cat == nil {
		cat = catalog.New(nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		platform:     platform,
		assistants:   vapi.NewCachedAssistants(platform, cfg.CacheTTL),
		catalog:      cat,
		policyEngine: policyEngine,
		store:        store,
		hub:          h,
		metrics:      m,
		config:       cfg,
		log:          log,
		sessions:     make(map[string]*Session),
	}
}

// Catalog returns the loaded agent catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// helperCommand is the program launched for each call session.
func (s *Service) helperCommand() []string {
	if fields := strings.Fields(s.config.CallHelperCmd); len(fields) > 0 {
		return fields
	}
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return []string{exe, "call-helper"}
}
