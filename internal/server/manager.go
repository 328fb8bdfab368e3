package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/rpattn/gridsync/internal/config"
	"github.com/rpattn/gridsync/internal/grid"
	"github.com/rpattn/gridsync/internal/repository"

	"github.com/google/uuid"
)

// SessionManager lazily creates one grid session per tenant and keeps it
// alive for the life of the process. Sessions load from the remote store on
// first touch.
type SessionManager struct {
	products  repository.ProductRepository
	audit     repository.AuditLogRepository
	validator grid.Validator
	gridCfg   config.GridConfig

	mu       sync.Mutex
	sessions map[uuid.UUID]*grid.Session
}

// NewSessionManager wires a manager over the shared repositories.
func NewSessionManager(products repository.ProductRepository, audit repository.AuditLogRepository, validator grid.Validator, gridCfg config.GridConfig) *SessionManager {
	return &SessionManager{
		products:  products,
		audit:     audit,
		validator: validator,
		gridCfg:   gridCfg,
		sessions:  make(map[uuid.UUID]*grid.Session),
	}
}

// Session returns the tenant's session, creating and loading it on first use.
func (m *SessionManager) Session(ctx context.Context, tenantID uuid.UUID, actor string) (*grid.Session, error) {
	m.mu.Lock()
	if session, ok := m.sessions[tenantID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	session := grid.NewSession(grid.SessionConfig{
		TenantID:       tenantID,
		Actor:          actor,
		Remote:         m.products,
		Audit:          m.audit,
		Validator:      m.validator,
		DebounceWindow: m.gridCfg.DebounceWindow,
		RequestTimeout: m.gridCfg.RequestTimeout,
		HistoryLimit:   m.gridCfg.HistoryLimit,
	})
	if err := session.Load(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("load session for tenant %s: %w", tenantID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[tenantID]; ok {
		// Lost the race; keep the first session.
		session.Close()
		return existing, nil
	}
	m.sessions[tenantID] = session
	return session, nil
}

// CloseAll releases every live session's timers and background work.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		session.Close()
		delete(m.sessions, id)
	}
}
