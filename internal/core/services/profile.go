package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driving"
)

// Ensure ProfileService implements the interface.
var _ driving.ProfileService = (*ProfileService)(nil)

// Config keys for profile storage. Profile fields live below
// "profiles.<name>.".
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyActive        = "active"
	profilesPrefix   = "profiles."
	fieldBackend     = "backend"
	fieldEndpoint    = "endpoint"
	fieldUpdate      = "update_endpoint"
	fieldStore       = "store_endpoint"
	fieldRepository  = "repository"
	fieldGraph       = "graph"
	fieldUsername    = "username"
	fieldPassword    = "password"
	fieldWorkingDir  = "working_directory"
	fieldCatalogKind = "catalog.kind"
	fieldCatalogID   = "catalog.id"
	fieldCatalogURL  = "catalog.base_url"
	fieldAccessToken = "access_token"
	fieldTimeout     = "timeout"
)

var profileName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ProfileService manages session profiles in a ConfigStore.
type ProfileService struct {
	configStore driven.ConfigStore
}

// NewProfileService creates a new profile service.
func NewProfileService(configStore driven.ConfigStore) *ProfileService {
	return &ProfileService{configStore: configStore}
}

func profileKey(name, field string) string {
	return profilesPrefix + name + "." + field
}

// reload picks up edits made by other processes.
func (s *ProfileService) reload() error {
	if err := s.configStore.Load(); err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	return nil
}

// names returns the stored profile names, sorted.
func (s *ProfileService) names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, k := range s.configStore.Keys(profilesPrefix) {
		name, _, _ := strings.Cut(strings.TrimPrefix(k, profilesPrefix), ".")
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *ProfileService) exists(name string) bool {
	return len(s.configStore.Keys(profilesPrefix+name+".")) > 0
}

// State returns the lifecycle state of the profile store.
func (s *ProfileService) State() (domain.ProfileState, error) {
	if err := s.reload(); err != nil {
		return "", err
	}
	return s.state(), nil
}

func (s *ProfileService) state() domain.ProfileState {
	if len(s.names()) == 0 {
		return domain.StateUninitialized
	}
	if active := s.configStore.GetString(keyActive); active != "" && s.exists(active) {
		return domain.StateActive
	}
	return domain.StateConfigured
}

// Configure creates or replaces a profile.
func (s *ProfileService) Configure(profile domain.SessionProfile) error {
	if !profileName.MatchString(profile.Name) {
		return fmt.Errorf("%w: profile name %q (letters, digits, '-' and '_')", domain.ErrInvalidInput, profile.Name)
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := s.reload(); err != nil {
		return err
	}

	first := s.state() == domain.StateUninitialized
	if err := s.configStore.Delete(s.configStore.Keys(profilesPrefix + profile.Name + ".")...); err != nil {
		return fmt.Errorf("replace profile %s: %w", profile.Name, err)
	}

	type field struct{ key, value string }
	fields := []field{
		{fieldBackend, profile.Backend.String()},
		{fieldEndpoint, profile.Endpoint},
		{fieldUpdate, profile.UpdateEndpoint},
		{fieldStore, profile.StoreEndpoint},
		{fieldRepository, profile.Repository},
		{fieldGraph, profile.Graph},
		{fieldUsername, profile.Username},
		{fieldPassword, profile.Password},
		{fieldWorkingDir, profile.WorkingDirectory},
		{fieldCatalogKind, string(profile.Catalog.Kind)},
		{fieldCatalogID, profile.Catalog.ID},
		{fieldCatalogURL, profile.Catalog.BaseURL},
		{fieldAccessToken, profile.AccessToken},
	}
	if profile.Timeout > 0 {
		fields = append(fields, field{fieldTimeout, profile.Timeout.String()})
	}
	for _, f := range fields {
		if f.value == "" && f.key != fieldBackend {
			continue
		}
		if err := s.configStore.Set(profileKey(profile.Name, f.key), f.value); err != nil {
			return fmt.Errorf("save profile %s %s: %w", profile.Name, f.key, err)
		}
	}

	if first {
		return s.configStore.Set(keyActive, profile.Name)
	}
	return nil
}

// Select makes the named profile active.
func (s *ProfileService) Select(name string) error {
	if err := s.reload(); err != nil {
		return err
	}
	if !s.exists(name) {
		return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}
	return s.configStore.Set(keyActive, name)
}

// Active returns the selected profile.
func (s *ProfileService) Active() (*domain.SessionProfile, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	name := s.configStore.GetString(keyActive)
	if name == "" || !s.exists(name) {
		return nil, &domain.StateError{Operation: "open session", Reason: domain.ErrNoActiveProfile}
	}
	return s.read(name)
}

// Get returns a profile by name.
func (s *ProfileService) Get(name string) (*domain.SessionProfile, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	if !s.exists(name) {
		return nil, fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}
	return s.read(name)
}

// List returns all profiles sorted by name.
func (s *ProfileService) List() ([]domain.SessionProfile, error) {
	if err := s.reload(); err != nil {
		return nil, err
	}
	names := s.names()
	profiles := make([]domain.SessionProfile, 0, len(names))
	for _, name := range names {
		p, err := s.read(name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// ActiveName returns the name of the selected profile, or "".
func (s *ProfileService) ActiveName() string {
	return s.configStore.GetString(keyActive)
}

func (s *ProfileService) read(name string) (*domain.SessionProfile, error) {
	get := func(field string) string {
		return s.configStore.GetString(profileKey(name, field))
	}
	p := &domain.SessionProfile{
		Name:             name,
		Backend:          domain.BackendKind(get(fieldBackend)),
		Endpoint:         get(fieldEndpoint),
		UpdateEndpoint:   get(fieldUpdate),
		StoreEndpoint:    get(fieldStore),
		Repository:       get(fieldRepository),
		Graph:            get(fieldGraph),
		Username:         get(fieldUsername),
		Password:         get(fieldPassword),
		WorkingDirectory: get(fieldWorkingDir),
		Catalog: domain.CatalogSettings{
			Kind:    domain.CatalogKind(get(fieldCatalogKind)),
			ID:      get(fieldCatalogID),
			BaseURL: get(fieldCatalogURL),
		},
		AccessToken: get(fieldAccessToken),
	}
	if t := get(fieldTimeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("%w: profile %q timeout %q", domain.ErrInvalidInput, name, t)
		}
		p.Timeout = d
	}
	if p.Backend == "" {
		p.Backend = domain.BackendSQLite
	}
	return p, nil
}

// Remove deletes a profile. Removing the active profile deselects it.
func (s *ProfileService) Remove(name string) error {
	if err := s.reload(); err != nil {
		return err
	}
	if !s.exists(name) {
		return fmt.Errorf("profile %q: %w", name, domain.ErrNotFound)
	}
	keys := s.configStore.Keys(profilesPrefix + name + ".")
	if s.configStore.GetString(keyActive) == name {
		keys = append(keys, keyActive)
	}
	return s.configStore.Delete(keys...)
}

// RemoveAll deletes every profile.
func (s *ProfileService) RemoveAll() error {
	if err := s.reload(); err != nil {
		return err
	}
	return s.configStore.Delete(append(s.configStore.Keys(profilesPrefix), keyActive)...)
}
