package config

import "time"

// NotificationsConfig contains local notification scheduling configuration.
type NotificationsConfig struct {
	// Enabled toggles the in-process notification scheduler.
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// ReminderLead is how far before an assignment's due time the
	// reminder fires.
	ReminderLead time.Duration `env:"REMINDER_LEAD" envDefault:"24h"`

	// MaxDelay caps how far into the future a notification may be scheduled.
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"720h"`
}

// Sanitize applies guardrails to notification configuration values.
func (n *NotificationsConfig) Sanitize() {
	if n.ReminderLead <= 0 {
		n.ReminderLead = 24 * time.Hour
	}
	if n.MaxDelay <= 0 {
		n.MaxDelay = 720 * time.Hour
	}
}
