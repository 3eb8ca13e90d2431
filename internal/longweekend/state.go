package longweekend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// State is the persisted leave planning state of all users
type State struct {
	Ledgers   map[string]*Ledger `json:"ledgers"` // user id -> ledger
	UpdatedAt string             `json:"updated_at,omitempty"`
}

// StateManager persists leave ledgers in a JSON file
type StateManager struct {
	stateFile     string
	defaultBudget int
	state         *State
	logger        *zap.Logger
}

// NewStateManager creates a new state manager. New ledgers start with defaultBudget leave days.
func NewStateManager(stateFile string, defaultBudget int, logger *zap.Logger) *StateManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateManager{
		stateFile:     stateFile,
		defaultBudget: defaultBudget,
		logger:        logger,
	}
}

// Load loads the state from file
func (sm *StateManager) Load() error {
	data, err := os.ReadFile(sm.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			// created on first save
			sm.state = &State{Ledgers: make(map[string]*Ledger)}
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	if state.Ledgers == nil {
		state.Ledgers = make(map[string]*Ledger)
	}

	sm.state = &state
	sm.logger.Debug("Leave state loaded",
		zap.String("file", sm.stateFile),
		zap.Int("users", len(state.Ledgers)))

	return nil
}

// Save saves the state to file
func (sm *StateManager) Save() error {
	if sm.state == nil {
		return nil
	}
	sm.state.UpdatedAt = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(sm.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if dir := filepath.Dir(sm.stateFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	if err := os.WriteFile(sm.stateFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	sm.logger.Debug("Leave state saved",
		zap.String("file", sm.stateFile),
		zap.Int("users", len(sm.state.Ledgers)))

	return nil
}

// Ledger returns the ledger of a user, creating one with the default budget
func (sm *StateManager) Ledger(userID string) *Ledger {
	if sm.state == nil {
		sm.state = &State{Ledgers: make(map[string]*Ledger)}
	}

	l, ok := sm.state.Ledgers[userID]
	if !ok || l == nil {
		l = NewLedger(sm.defaultBudget)
		sm.state.Ledgers[userID] = l
		return l
	}
	l.ensure()
	return l
}
