package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/logging"
)

const sessionTTL = 24 * time.Hour

// fingerprintPattern guards the file path against traversal. Anything
// else is rejected outright.
var fingerprintPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// State is what a UI session needs to reattach after a page reload.
type State struct {
	AnalysisID   string            `json:"analysis_id"`
	Symbol       string            `json:"symbol"`
	AnalysisDate string            `json:"analysis_date"`
	FormConfig   map[string]string `json:"form_config,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Store persists per-UI-session state, trying Redis first and falling
// back to a file per session under the data directory.
type Store struct {
	cfg    *config.Config
	client *redis.Client
	log    *logging.Logger
}

// NewStore builds the session store. A nil client or a failed ping
// selects the file store.
func NewStore(ctx context.Context, cfg *config.Config, client *redis.Client) *Store {
	if client != nil {
		if err := client.Ping(ctx).Err(); err != nil {
			logging.Warnf("redis unavailable, storing sessions in files: %v", err)
			client = nil
		}
	}
	return &Store{
		cfg:    cfg,
		client: client,
		log:    logging.ForComponent("session_store"),
	}
}

func sessionKey(fingerprint string) string {
	return "session:" + fingerprint
}

func (s *Store) sessionPath(fingerprint string) string {
	return filepath.Join(s.cfg.DataDir, "sessions", fmt.Sprintf("session_%s.json", fingerprint))
}

// Save stores the session state under the browser fingerprint with a
// 24 h TTL.
func (s *Store) Save(ctx context.Context, fingerprint string, state *State) error {
	if !fingerprintPattern.MatchString(fingerprint) {
		return fmt.Errorf("invalid session fingerprint %q", fingerprint)
	}
	state.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	if s.client != nil {
		if err := s.client.Set(ctx, sessionKey(fingerprint), payload, sessionTTL).Err(); err == nil {
			return nil
		} else {
			s.log.Warnf("redis session write failed, using file: %v", err)
		}
	}

	path := s.sessionPath(fingerprint)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// Load retrieves the session state for a fingerprint. Expired file
// records count as missing.
func (s *Store) Load(ctx context.Context, fingerprint string) (*State, error) {
	if !fingerprintPattern.MatchString(fingerprint) {
		return nil, fmt.Errorf("invalid session fingerprint %q", fingerprint)
	}

	if s.client != nil {
		data, err := s.client.Get(ctx, sessionKey(fingerprint)).Bytes()
		if err == nil {
			var state State
			if err := json.Unmarshal(data, &state); err != nil {
				return nil, fmt.Errorf("decode session state: %w", err)
			}
			return &state, nil
		}
		if err != redis.Nil {
			s.log.Warnf("redis session read failed, trying file: %v", err)
		}
	}

	data, err := os.ReadFile(s.sessionPath(fingerprint))
	if err != nil {
		return nil, fmt.Errorf("session %s not found: %w", fingerprint, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if time.Since(state.UpdatedAt) > sessionTTL {
		_ = os.Remove(s.sessionPath(fingerprint))
		return nil, fmt.Errorf("session %s expired", fingerprint)
	}
	return &state, nil
}

// Delete removes the session state from both stores.
func (s *Store) Delete(ctx context.Context, fingerprint string) error {
	if !fingerprintPattern.MatchString(fingerprint) {
		return fmt.Errorf("invalid session fingerprint %q", fingerprint)
	}
	if s.client != nil {
		_ = s.client.Del(ctx, sessionKey(fingerprint)).Err()
	}
	err := os.Remove(s.sessionPath(fingerprint))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
