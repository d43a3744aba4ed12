package model

import "time"

// SettingsVersion is the current creator settings schema version.
// Records with older versions are migrated on read.
const SettingsVersion = 2

// CreatorSettings is the versioned, explicitly-typed per-creator
// configuration record. It replaces a loose JSON settings column: every
// field is named, optional fields are pointers or zero-valued.
type CreatorSettings struct {
	Version          int       `json:"version"`
	CreatorID        string    `json:"creator_id"`
	ChatEnabled      bool      `json:"chat_enabled"`
	QueueEnabled     bool      `json:"queue_enabled"`
	WaitTimeMinutes  int       `json:"wait_time_minutes"`
	ContactEmail     string    `json:"contact_email,omitempty"`
	BypassIdentities []string  `json:"bypass_identities,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultCreatorSettings returns the settings applied to creators that
// have never saved a record.
func DefaultCreatorSettings(creatorID string, waitMinutes int) *CreatorSettings {
	return &CreatorSettings{
		Version:         SettingsVersion,
		CreatorID:       creatorID,
		ChatEnabled:     true,
		QueueEnabled:    false,
		WaitTimeMinutes: waitMinutes,
	}
}

// Migrate upgrades a settings record loaded from an older schema version.
// Version 1 records predate the queue fields.
func (s *CreatorSettings) Migrate(defaultWaitMinutes int) {
	if s.Version >= SettingsVersion {
		return
	}
	if s.WaitTimeMinutes <= 0 {
		s.WaitTimeMinutes = defaultWaitMinutes
	}
	s.Version = SettingsVersion
}

// HasBypass reports whether the identity may skip the room queue.
func (s *CreatorSettings) HasBypass(identityID string) bool {
	for _, id := range s.BypassIdentities {
		if id == identityID {
			return true
		}
	}
	return false
}
