package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/crowdin-gamification/internal/domain"
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/domain/rule"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/port/crowdin"
)

// --- webhook store ---

type mockStore struct {
	mu     sync.Mutex
	hooks  map[int64]webhook.WebHook
	nextID int64
	getErr error
}

func newMockStore(hooks ...webhook.WebHook) *mockStore {
	s := &mockStore{hooks: map[int64]webhook.WebHook{}}
	for _, h := range hooks {
		s.nextID++
		h.ID = s.nextID
		s.hooks[h.ProjectID] = h
	}
	return s
}

func (s *mockStore) GetWebhookByProjectID(_ context.Context, projectID int64) (*webhook.WebHook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	h, ok := s.hooks[projectID]
	if !ok {
		return nil, fmt.Errorf("webhook %d: %w", projectID, domain.ErrNotFound)
	}
	return &h, nil
}

func (s *mockStore) ListWebhooks(_ context.Context, offset, limit int) ([]webhook.WebHook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]webhook.WebHook, 0, len(s.hooks))
	for _, h := range s.hooks {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *mockStore) CountWebhooks(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks), nil
}

func (s *mockStore) SaveWebhook(_ context.Context, hook *webhook.WebHook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hooks[hook.ProjectID]; ok {
		return fmt.Errorf("webhook %d: %w", hook.ProjectID, domain.ErrAlreadyExists)
	}
	s.nextID++
	hook.ID = s.nextID
	s.hooks[hook.ProjectID] = *hook
	return nil
}

func (s *mockStore) UpdateWebhook(_ context.Context, hook *webhook.WebHook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hooks[hook.ProjectID]; !ok {
		return domain.ErrNotFound
	}
	s.hooks[hook.ProjectID] = *hook
	return nil
}

func (s *mockStore) SetWatchLimit(_ context.Context, projectID int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hooks[projectID]
	if !ok {
		return domain.ErrNotFound
	}
	h.WatchLimit = enabled
	s.hooks[projectID] = h
	return nil
}

func (s *mockStore) DeleteWebhook(_ context.Context, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hooks[projectID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.hooks, projectID)
	return nil
}

// --- rules ---

type mockRules struct {
	mu    sync.Mutex
	rules []rule.Rule
	err   error
	// deleteFailures makes the next DeleteRulesByProject calls fail.
	deleteFailures int
}

func (m *mockRules) IsTriggerEnabledForAccount(_ context.Context, eventName, projectID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.Matches(eventName, projectID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRules) GetRulesByTitle(_ context.Context, eventName string) ([]rule.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rule.Rule
	for _, r := range m.rules {
		if r.Enabled && r.Title == eventName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRules) GetEnabledRulesMatchingCancellerEvent(_ context.Context, eventName string) ([]rule.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rule.Rule
	for _, r := range m.rules {
		if r.Enabled && r.CancelledBy(eventName) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRules) DeleteRulesByProject(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteFailures > 0 {
		m.deleteFailures--
		return 0, errors.New("rules db down")
	}
	kept := m.rules[:0]
	removed := 0
	for _, r := range m.rules {
		if r.ProjectID == projectID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.rules = kept
	return removed, nil
}

// --- identity ---

type mockMapper struct {
	users map[string]string
	err   error
}

func (m *mockMapper) AssociatedUsername(_ context.Context, connector, remote string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if connector != webhook.ConnectorName {
		return "", fmt.Errorf("unexpected connector %q", connector)
	}
	return m.users[remote], nil
}

type mockIdentities struct {
	mu      sync.Mutex
	created []string
	err     error
}

func (m *mockIdentities) GetOrCreateUserIdentity(_ context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.created = append(m.created, username)
	return int64(len(m.created)), nil
}

// --- broadcaster ---

type mockBroadcaster struct {
	mu      sync.Mutex
	actions []event.Action
	failFor map[string]bool // rule titles whose broadcast fails
}

func (m *mockBroadcaster) Broadcast(_ context.Context, action event.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[action.Attributes.RuleTitle] {
		return errors.New("broker unavailable")
	}
	m.actions = append(m.actions, action)
	return nil
}

func (m *mockBroadcaster) count(kind event.ActionKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// --- crowdin ---

type mockCrowdin struct {
	mu           sync.Mutex
	translations []webhook.RemoteTranslation
	lookupErr    error
	lookups      []crowdin.TranslationsRequest
	projects     map[int64]webhook.RemoteProject
	projectCalls int
	remoteHooks  map[int64]webhook.RemoteWebhook // by project id
	createErr    error
	deleteErr    error
	created      []crowdin.CreateWebhookRequest
	deleted      []int64
	nextID       int64
}

func newMockCrowdin() *mockCrowdin {
	return &mockCrowdin{
		projects:    map[int64]webhook.RemoteProject{},
		remoteHooks: map[int64]webhook.RemoteWebhook{},
		nextID:      500,
	}
}

func (m *mockCrowdin) ListProjects(_ context.Context, accessToken string) ([]webhook.RemoteProject, error) {
	if accessToken == "bad" {
		return nil, domain.ErrUnauthorized
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]webhook.RemoteProject, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCrowdin) GetProject(_ context.Context, projectID int64, _ string) (*webhook.RemoteProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectCalls++
	p, ok := m.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *mockCrowdin) CreateWebhook(_ context.Context, req crowdin.CreateWebhookRequest, _ string) (*webhook.RemoteWebhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	m.created = append(m.created, req)
	h := webhook.RemoteWebhook{ID: m.nextID, ProjectID: req.ProjectID, URL: req.URL, Events: req.Events, IsActive: true}
	m.remoteHooks[req.ProjectID] = h
	return &h, nil
}

func (m *mockCrowdin) GetWebhook(_ context.Context, projectID, webhookID int64, _ string) (*webhook.RemoteWebhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.remoteHooks[projectID]
	if !ok || h.ID != webhookID {
		return nil, domain.ErrNotFound
	}
	return &h, nil
}

func (m *mockCrowdin) DeleteWebhook(_ context.Context, projectID, _ int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, projectID)
	if _, ok := m.remoteHooks[projectID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.remoteHooks, projectID)
	return nil
}

func (m *mockCrowdin) ListStringTranslations(_ context.Context, req crowdin.TranslationsRequest, _ string) ([]webhook.RemoteTranslation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, req)
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.translations, nil
}

// --- pool and cache ---

// inlinePool runs tasks synchronously so tests observe their effects.
type inlinePool struct {
	err error
}

func (p inlinePool) Submit(task func()) error {
	if p.err != nil {
		return p.err
	}
	task()
	return nil
}

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	cleared int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mockCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = map[string][]byte{}
	c.cleared++
	return nil
}
