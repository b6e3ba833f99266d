// Package config loads gateway configuration from the environment, the way
// the teacher's cmd/server/main.go inlined its own config struct — split out
// here since SPEC_FULL carries significantly more settings.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
)

// Config is the full set of gateway settings, env-tagged for caarlos0/env.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":7000"`

	SSLEnabled bool   `env:"SSL_ENABLED" envDefault:"false"`
	SSLDomain  string `env:"SSL_DOMAIN"`
	SSLAddr    string `env:"SSL_ADDR" envDefault:":7443"`
	SSLCert    string `env:"SSL_CERT_FILE"`
	SSLKey     string `env:"SSL_KEY_FILE"`

	JWTSecret     string        `env:"JWT_SECRET" envDefault:"change-me"`
	JWTTokenTTL   time.Duration `env:"JWT_TOKEN_TTL" envDefault:"720h"`

	StorePath string `env:"STORE_PATH" envDefault:"./data/store"`

	DownloadDir  string `env:"DOWNLOAD_DIR" envDefault:"./data/downloads"`
	MaxSessions  int    `env:"SWARM_MAX_SESSIONS" envDefault:"20"`
	IdleTimeout  time.Duration `env:"SWARM_IDLE_TIMEOUT" envDefault:"30m"`
	ExtraTrackers []string `env:"SWARM_EXTRA_TRACKERS" envSeparator:","`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`

	HelperMode bool   `env:"HELPER_MODE" envDefault:"false"`
	HelperURL  string `env:"HELPER_URL"`

	BypassEnabled bool          `env:"BYPASS_ENABLED" envDefault:"true"`
	BypassTimeout time.Duration `env:"BYPASS_TIMEOUT" envDefault:"60s"`

	CatalogMetaBaseURL string `env:"CATALOG_META_BASE_URL" envDefault:"https://v3-cinemeta.strem.io"`

	MovieIndexBaseURL  string `env:"MOVIE_INDEX_BASE_URL" envDefault:"https://yts.mx/api/v2/list_movies.json"`
	SeriesIndexBaseURL string `env:"SERIES_INDEX_BASE_URL" envDefault:"https://eztvx.to/api/get-torrents"`
	PirateBayBaseURL   string `env:"PIRATEBAY_BASE_URL" envDefault:"https://apibay.org/q.php"`

	SubtitlesAddonID string `env:"SUBTITLES_ADDON_ID"`

	// LiveTVBaseURL serves ustv*-prefixed content ids (spec §4.2/§4.6): a
	// catalog of locator URLs for USA TV channels, keyed by channel id.
	LiveTVBaseURL string `env:"LIVE_TV_BASE_URL" envDefault:"https://iptv-org.github.io/iptv"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load parses process environment (and any loaded .env file) into a Config.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
