package config

import "time"

type AppConfig struct {
	DBDriver   string          `yaml:"db_driver" env:"EDUCONTROL_DB_DRIVER" env-default:"sqlite"`
	DBURL      string          `yaml:"db_url" env:"EDUCONTROL_DB_URL" env-default:"data/educontrol.db"`
	ListenAddr string          `yaml:"listen_addr" env:"EDUCONTROL_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	SessionTTL time.Duration   `yaml:"session_ttl" env:"EDUCONTROL_SESSION_TTL" env-default:"8h"`
	AppEnv     string          `yaml:"app_env" env:"EDUCONTROL_APP_ENV"`
	Pepper     string          `yaml:"pepper" env:"EDUCONTROL_PEPPER"`
	Incidents  IncidentsConfig `yaml:"incidents"`
	Reminders  RemindersConfig `yaml:"reminders"`
}

type IncidentsConfig struct {
	// DefaultEventTitle is used for the automatic registration event
	// created with every new incident.
	DefaultEventTitle string `yaml:"default_event_title" env:"EDUCONTROL_INCIDENTS_DEFAULT_EVENT_TITLE" env-default:"Initial report"`
	ListLimit         int    `yaml:"list_limit" env:"EDUCONTROL_INCIDENTS_LIST_LIMIT" env-default:"0"`
}

type RemindersConfig struct {
	Enabled bool `yaml:"enabled" env:"EDUCONTROL_REMINDERS_ENABLED" env-default:"true"`
	// Spec is a cron expression; the default scans deadlines every
	// morning before classes start.
	Spec string `yaml:"spec" env:"EDUCONTROL_REMINDERS_SPEC" env-default:"0 7 * * *"`
}

const maxUserSessionTTL = 12 * time.Hour

func (c *AppConfig) EffectiveSessionTTL() time.Duration {
	ttl := maxUserSessionTTL
	if c != nil && c.SessionTTL > 0 {
		ttl = c.SessionTTL
	}
	if ttl > maxUserSessionTTL {
		return maxUserSessionTTL
	}
	return ttl
}
