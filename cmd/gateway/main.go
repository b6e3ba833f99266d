package main

import (
	"os"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/streamforge/gateway/internal/catalogmeta"
	"github.com/streamforge/gateway/internal/config"
	"github.com/streamforge/gateway/internal/connector"
	"github.com/streamforge/gateway/internal/gateway"
	"github.com/streamforge/gateway/internal/httpx"
	"github.com/streamforge/gateway/internal/identity"
	"github.com/streamforge/gateway/internal/mediaproxy"
	"github.com/streamforge/gateway/internal/static"
	"github.com/streamforge/gateway/internal/store"
	"github.com/streamforge/gateway/internal/swarm"
)

var maskedPathPattern = regexp.MustCompile(`^/api/addons/install`)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	idm, err := identity.NewManager(cfg.JWTSecret, cfg.JWTTokenTTL)
	if err != nil {
		log.Fatalf("identity: %v", err)
	}

	hc := httpx.New(cfg.BypassEnabled, cfg.BypassTimeout)
	catalog := catalogmeta.New(cfg.CatalogMetaBaseURL)

	builtins := []connector.Connector{
		connector.NewMovieIndex("YTS", cfg.MovieIndexBaseURL),
		connector.NewSeriesIndex("EZTV", cfg.SeriesIndexBaseURL),
		connector.NewPirateBayStyle("The Pirate Bay", cfg.PirateBayBaseURL),
	}

	sm, err := newSwarmManager(cfg)
	if err != nil {
		log.Fatalf("swarm: %v", err)
	}

	gw := gateway.New(st, idm, hc, catalog, builtins, sm)
	gw.SubtitlesAddonID = cfg.SubtitlesAddonID
	gw.DirectResolver = connector.NewDirectResolver()
	gw.LiveTV = connector.NewLiveTV("USA TV", cfg.LiveTVBaseURL)

	if cfg.HelperMode {
		gw.Forwarder = mediaproxy.NewForwardingProxy(cfg.HelperURL)
	} else {
		gw.Proxy = mediaproxy.New(cfg.FFmpegPath)
	}

	if err := seedAdmin(gw, cfg); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	app := newApp(gw)

	if cfg.SSLEnabled {
		go func() {
			sslApp := newApp(gw)
			log.Infof("starting HTTPS server on %s (domain %s)", cfg.SSLAddr, cfg.SSLDomain)
			log.Fatal(sslApp.ListenTLS(cfg.SSLAddr, cfg.SSLCert, cfg.SSLKey))
		}()
	}

	log.Infof("starting HTTP server on %s", cfg.HTTPAddr)
	log.Fatal(app.Listen(cfg.HTTPAddr))
}

// newSwarmManager picks the embedded torrent-client manager or the
// external-helper client per deployment config (spec §4.3 "Alternate
// deployment").
func newSwarmManager(cfg config.Config) (swarm.SessionManager, error) {
	if cfg.HelperMode {
		return swarm.NewHelperClient(cfg.HelperURL), nil
	}
	return swarm.New(cfg.DownloadDir, swarm.DefaultSettings())
}

// seedAdmin creates the bootstrap admin user on first run, the way an
// operator would otherwise have to reach into the store directly. Only runs
// when ADMIN_PASSWORD is set and the username doesn't already exist.
func seedAdmin(gw *gateway.Gateway, cfg config.Config) error {
	if cfg.AdminPassword == "" {
		return nil
	}
	if _, err := gw.Store.GetUserByUsername(cfg.AdminUsername); err == nil {
		return nil
	}

	hash, err := gateway.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return gw.Store.CreateUser(store.User{
		ID:           uuid.NewString(),
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    time.Now(),
	})
}

func newApp(gw *gateway.Gateway) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		CustomTags: map[string]logger.LogFunc{
			"maskedPath": func(output logger.Buffer, c *fiber.Ctx, data *logger.Data, extraParam string) (int, error) {
				urlPath := c.Path()
				loc := maskedPathPattern.FindStringIndex(urlPath)
				if loc != nil {
					return output.WriteString(urlPath[:loc[1]] + "/***")
				}
				return output.WriteString(urlPath)
			},
		},
		Format:        "${time} | ${status} | ${latency} | ${ip} | ${method} | ${maskedPath} | ${error}\n",
		TimeFormat:    "15:04:05",
		TimeZone:      "Local",
		TimeInterval:  500 * time.Millisecond,
		Output:        os.Stdout,
		DisableColors: false,
	}))

	gw.RegisterRoutes(app)
	app.Get("/configure", static.HandleConfigure)

	return app
}
