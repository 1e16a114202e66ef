// Package media implements the provider registry the orchestrator dispatches
// PlayMedia/Pause/Resume/Fullscreen intents through.
package media

import "errors"

var (
	ErrNoProviders    = errors.New("media: no providers registered")
	ErrNoResults      = errors.New("media: no results found")
	ErrNothingPlaying = errors.New("media: nothing is currently playing")
)

// Result is one search hit, opaque beyond what a provider needs to resume
// playing it later.
type Result struct {
	Title     string
	URL       string
	Provider  string
	Thumbnail string
}

// Provider is the capability contract a concrete media backend (a browser
// extension bridge, a local player, ...) implements. The orchestrator never
// sees which concrete provider it's talking to.
type Provider interface {
	Name() string
	Search(query string) ([]Result, error)
	Play(result Result) (string, error)
	Pause() (string, error)
	Resume() (string, error)
	Fullscreen() (string, error)
}

// Manager holds an insertion-ordered set of providers and delegates to
// whichever one is currently active.
type Manager struct {
	order  []string
	byName map[string]Provider
	active Provider
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{byName: make(map[string]Provider)}
}

// Register adds a provider, preserving registration order for the
// "pick the first provider" rule in Play.
func (m *Manager) Register(p Provider) {
	if _, exists := m.byName[p.Name()]; !exists {
		m.order = append(m.order, p.Name())
	}
	m.byName[p.Name()] = p
}

// Play searches with the first registered provider and plays the single
// unambiguous result, or returns the raw result list when there's more than
// one match so the caller can disambiguate.
func (m *Manager) Play(query string) (status string, choices []Result, err error) {
	if len(m.order) == 0 {
		return "", nil, ErrNoProviders
	}
	p := m.byName[m.order[0]]

	results, err := p.Search(query)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return "", nil, ErrNoResults
	}
	if len(results) >= 2 {
		return "", results, nil
	}

	m.active = p
	status, err = p.Play(results[0])
	return status, nil, err
}

// Pause delegates to the active provider.
func (m *Manager) Pause() (string, error) {
	if m.active == nil {
		return "", ErrNothingPlaying
	}
	return m.active.Pause()
}

// Resume delegates to the active provider.
func (m *Manager) Resume() (string, error) {
	if m.active == nil {
		return "", ErrNothingPlaying
	}
	return m.active.Resume()
}

// Fullscreen delegates to the active provider.
func (m *Manager) Fullscreen() (string, error) {
	if m.active == nil {
		return "", ErrNothingPlaying
	}
	return m.active.Fullscreen()
}
