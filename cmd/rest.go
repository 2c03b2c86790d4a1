package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	clientRest "github.com/AzielCF/az-localseo/clients/adapter/rest"
	contentRest "github.com/AzielCF/az-localseo/content/adapter/rest"
	"github.com/AzielCF/az-localseo/content/application"
	"github.com/AzielCF/az-localseo/ui/rest"
	"github.com/AzielCF/az-localseo/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the content engine over http",
	Long:  `Starts the admin API, the job webhooks and, unless disabled, the production and reconcile loops.`,
	Run:   restServer,
}

func init() {
	restCmd.Flags().Bool("no-scheduler", false, "serve the API without running the production loops")
	rootCmd.AddCommand(restCmd)
}

func restServer(cmd *cobra.Command, _ []string) {
	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		// los chunks de subida de video largo llegan por aqui
		BodyLimit:             64 * 1024 * 1024,
		Network:               "tcp",
		AppName:               "LocalSEO Content Engine",
		DisableStartupMessage: false,
		ServerHeader:          "Hidden",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())

	origins := strings.Join(cfg.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, cfg.App.BaseUrl) {
		origins += ", " + cfg.App.BaseUrl
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Webhook-Token",
	}))
	app.Use(middleware.Recovery())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if cfg.App.Debug {
		app.Use(logger.New())
	}

	if len(cfg.App.BasicAuth) == 0 {
		logrus.Fatalln("APP_BASIC_AUTH is required. Nothing should be public; please set APP_BASIC_AUTH=<user>:<secret>[,<user2>:<secret2>] and restart.")
	}
	account := make(map[string]string)
	for _, basicAuth := range cfg.App.BasicAuth {
		ba := strings.SplitN(basicAuth, ":", 2)
		if len(ba) != 2 {
			logrus.Fatalln("Basic auth is not valid, please this following format <user>:<secret>")
		}
		account[ba[0]] = ba[1]
	}

	contentHandler := contentRest.NewContentHandler(contentRest.Services{
		Items:      itemService,
		Scheduler:  scheduler,
		Generation: dispatcher,
		Publisher:  publisher,
		Reconciler: reconciler,
		Uploads:    uploads,
	}, cfg.App.WebhookSecret)

	// Los hosts de media llaman a los webhooks sin basic auth; los protege el secreto compartido
	contentHandler.RegisterWebhooks(app.Group(cfg.App.BasePath))

	apiGroup := app.Group(cfg.App.BasePath + "/api")
	apiGroup.Use(basicauth.New(basicauth.Config{
		Users: account,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
	}))

	clientRest.NewClientHandler(clientService).RegisterRoutes(apiGroup)
	contentHandler.RegisterRoutes(apiGroup)
	rest.InitRestSystem(apiGroup, rest.System{
		Version:  cfg.App.Version,
		Settings: settingsSvc,
		Pool:     cyclePool,
		DB:       dbPing,
		Cache:    cachePing(),
	})

	loopCtx, stopLoops := context.WithCancel(context.Background())
	noScheduler, _ := cmd.Flags().GetBool("no-scheduler")
	if cfg.Scheduler.Enabled && !noScheduler {
		scheduler.StartLoop(loopCtx, application.Loops{
			Tick:      cfg.Scheduler.TickInterval,
			Reconcile: cfg.Scheduler.ReconcileInterval,
		}, reconciler)
	} else {
		logrus.Info("[SCHEDULER] Production loops disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		stopLoops()
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		StopApp()
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}

func dbPing(ctx context.Context) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func cachePing() rest.PingFunc {
	if vk == nil {
		return nil
	}
	return vk.Ping
}
