package model

import "time"

// SystemSetting is one row of the generic key/value store for
// runtime-tunable parameters (verse interval, maintenance mode, safety
// mode, ...). Reads merge in defaults for absent keys.
type SystemSetting struct {
	Key       string    // system_settings.key
	Value     string    // system_settings.value
	UpdatedAt time.Time // system_settings.updated_at
}
