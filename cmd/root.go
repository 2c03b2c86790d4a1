package cmd

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	clientApp "github.com/AzielCF/az-localseo/clients/application"
	clientRepo "github.com/AzielCF/az-localseo/clients/repository"
	"github.com/AzielCF/az-localseo/content/application"
	"github.com/AzielCF/az-localseo/content/domain"
	contentRepo "github.com/AzielCF/az-localseo/content/repository"
	coreconfig "github.com/AzielCF/az-localseo/core/config"
	"github.com/AzielCF/az-localseo/core/database"
	settingsApp "github.com/AzielCF/az-localseo/core/settings/application"
	"github.com/AzielCF/az-localseo/infrastructure/lock"
	"github.com/AzielCF/az-localseo/infrastructure/valkey"
	"github.com/AzielCF/az-localseo/integrations/cms"
	"github.com/AzielCF/az-localseo/integrations/generators"
	"github.com/AzielCF/az-localseo/integrations/mediahost"
	"github.com/AzielCF/az-localseo/integrations/sitemap"
	"github.com/AzielCF/az-localseo/integrations/social"
	"github.com/AzielCF/az-localseo/integrations/storage"
	"github.com/AzielCF/az-localseo/integrations/youtube"
	"github.com/AzielCF/az-localseo/pkg/crypto"
	"github.com/AzielCF/az-localseo/pkg/pipelinemonitor"
	"github.com/AzielCF/az-localseo/pkg/utils"
	"github.com/AzielCF/az-localseo/pkg/workerpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

var (
	cfg *coreconfig.Config
	db  *gorm.DB
	vk  *valkey.Client

	// Clients
	clientService *clientApp.ClientService

	// Content pipeline
	settingsSvc  *settingsApp.SettingsService
	itemService  *application.ItemService
	dispatcher   *application.Dispatcher
	publisher    *application.PublishOrchestrator
	reconciler   *application.Reconciler
	scheduler    *application.CycleScheduler
	uploads      *application.UploadService
	cyclePool    *workerpool.Pool
	poolCancel   context.CancelFunc
	schemaSynced bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "localseo",
	Short: "Local SEO content engine",
	Long: `Produces local-search content for service businesses: articles, images, podcasts,
short videos and social posts, published to each client's site and the shared directory.`,
}

func init() {
	// .env es opcional; las variables del entorno siempre ganan
	_ = godotenv.Load()

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "hide or displaying log with --debug <true/false> | example: --debug=true")
	rootCmd.PersistentFlags().String("db-driver", "", `database driver --db-driver <sqlite|postgres> | example: --db-driver="postgres"`)
	rootCmd.PersistentFlags().StringSliceP("basic-auth", "b", nil, "basic auth credential | -b=yourUsername:yourPassword")
	rootCmd.PersistentFlags().Int("cycle-workers", 0, "number of concurrent cycle workers --cycle-workers <number> | example: --cycle-workers=8")

	_ = viper.BindPFlag("app_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("app_debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("app_basic_auth", rootCmd.PersistentFlags().Lookup("basic-auth"))
	_ = viper.BindPFlag("cycle_worker_pool_size", rootCmd.PersistentFlags().Lookup("cycle-workers"))
}

// initEnvConfig loads configuration from the environment, then applies flag overrides.
func initEnvConfig() {
	// el driver decide el nombre por defecto de la base, asi que va antes de cargar
	if v := viper.GetString("db_driver"); v != "" {
		_ = os.Setenv("DB_DRIVER", v)
	}

	loaded, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	cfg = loaded

	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viper.GetStringSlice("app_basic_auth"); len(v) > 0 {
		cfg.App.BasicAuth = v
	}
	if v := viper.GetInt("cycle_worker_pool_size"); v > 0 {
		cfg.WorkerPool.Size = v
	}
}

func initApp() {
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.EnsureStorageDirectories(); err != nil {
		logrus.Errorln(err)
	}

	if err := crypto.SetEncryptionKey(cfg.App.SecretKey); err != nil {
		logrus.Fatalf("invalid APP_SECRET_KEY: %v", err)
	}
	if cfg.App.SecretKey == "" {
		logrus.Warn("[SECURITY] APP_SECRET_KEY is empty, client credentials are stored unencrypted")
	}

	pipelinemonitor.Configure(cfg.Monitor.Buffer, cfg.Monitor.TTL)

	ctx := context.Background()

	var err error
	db, err = database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	// 1. Repositories and schema
	clients := clientRepo.NewClientGormRepository(db)
	locations := clientRepo.NewLocationGormRepository(db)
	topics := clientRepo.NewTopicGormRepository(db)
	items := contentRepo.NewItemGormRepository(db)
	uploadSessions := contentRepo.NewUploadGormRepository(db)
	settingsSvc = settingsApp.NewSettingsService(db)

	if err := syncSchema(ctx, clients, locations, topics, items, settingsSvc); err != nil {
		logrus.Fatalf("failed to init schema: %v", err)
	}

	// 2. Valkey (optional) for cross-process locks and the sitemap cache
	ownerID := utils.LockOwnerID(os.Getenv("SERVER_ID"), cfg.Paths.Storages)
	var locker application.Locker = lock.NewMemoryLocker()
	var pageCache sitemap.Cache = sitemap.NewMemoryCache(cfg.Sitemap.CacheSize, cfg.Sitemap.CacheTTL)
	if cfg.Database.ValkeyEnabled {
		vk, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[VALKEY] Unavailable, falling back to in-process locks")
			vk = nil
		} else {
			locker = lock.NewValkeyLocker(vk, ownerID)
			pageCache = sitemap.NewValkeyCache(vk, cfg.Sitemap.CacheTTL)
			logrus.Infof("[VALKEY] Connected to %s as %s", cfg.Database.ValkeyAddress, ownerID)
		}
	}

	// 3. Client aggregate
	clientService = clientApp.NewClientService(clients, locations, topics)

	// 4. External systems
	var store generators.ObjectStore
	if strings.TrimSpace(cfg.Storage.Bucket) != "" {
		bucket, err := storage.NewBucket(cfg.Storage)
		if err != nil {
			logrus.WithError(err).Warn("[STORAGE] Object storage disabled")
		} else {
			store = bucket
		}
	}

	gens, err := generators.Build(ctx, cfg.Generation, cfg.APIKeys, store)
	if err != nil {
		logrus.Fatalf("failed to build generators: %v", err)
	}

	hosts := buildMediaHosts(ctx)

	var socialScheduler domain.SocialScheduler
	if sc := social.NewClient(cfg.Social.BaseURL, cfg.Social.APIKey); sc.Configured() {
		socialScheduler = sc
	}

	resolver := cms.NewResolver(cfg.Directory.CMSBaseURL, cfg.Directory.CMSUser, cfg.Directory.CMSPassword)
	matcher := sitemap.NewMatcher(pageCache)

	// Generation and publishing share one budget of concurrent provider calls
	limit := cfg.Generation.Concurrency
	if limit <= 0 {
		limit = 4
	}
	limiter := semaphore.NewWeighted(int64(limit))

	// 5. Content pipeline
	dispatcher = application.NewDispatcher(application.DispatcherDeps{
		Items:        items,
		Clients:      clientService,
		Generators:   gens,
		Hosts:        hosts,
		Social:       socialScheduler,
		Pages:        matcher,
		Settings:     settingsSvc,
		Limiter:      limiter,
		Timeout:      cfg.Generation.Timeout,
		RelatedPages: cfg.Sitemap.RelatedPages,
	})
	embeds := application.NewEmbedComposer(items, clientService, resolver)
	publisher = application.NewPublishOrchestrator(application.PublishDeps{
		Items:               items,
		Clients:             clientService,
		Locations:           clientService,
		CMS:                 resolver,
		Renderer:            cms.NewRenderer(),
		Hosts:               hosts,
		Social:              socialScheduler,
		Embeds:              embeds,
		Settings:            settingsSvc,
		DirectoryProfileKey: cfg.Directory.SocialKey,
		Limiter:             limiter,
		Timeout:             cfg.Publish.Timeout,
	})
	reconciler = application.NewReconciler(items, hosts, socialScheduler, embeds, settingsSvc)
	itemService = application.NewItemService(items, dispatcher, hosts, socialScheduler)
	clientService.SetItemCounter(itemService)

	var poolCtx context.Context
	poolCtx, poolCancel = context.WithCancel(context.Background())
	cyclePool = workerpool.New(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	cyclePool.Start(poolCtx)

	scheduler = application.NewCycleScheduler(application.SchedulerDeps{
		Items:      items,
		Clients:    clientService,
		Topics:     clientApp.NewTopicSelector(topics),
		Locations:  clientApp.NewLocationRotator(locations),
		Tx:         database.NewTransactor(db),
		Generation: dispatcher,
		Locker:     locker,
		Runner:     cyclePool,
		Settings:   settingsSvc,
		LockTTL:    cfg.Scheduler.CycleLockTTL,
		StaleAfter: cfg.Scheduler.StaleGeneration,
	})

	uploads = application.NewUploadService(items, uploadSessions, hosts.LongVideo, cfg.Paths.Uploads)
}

type schemaInitializer interface {
	InitSchema(ctx context.Context) error
}

func syncSchema(ctx context.Context, targets ...schemaInitializer) error {
	for _, t := range targets {
		if err := t.InitSchema(ctx); err != nil {
			return err
		}
	}
	schemaSynced = true
	return nil
}

// buildMediaHosts only fills the hosts that are configured; a nil interface means "not configured".
func buildMediaHosts(ctx context.Context) application.MediaHosts {
	var hosts application.MediaHosts
	if audio := mediahost.NewClient("audio", cfg.MediaHost.AudioBaseURL, cfg.MediaHost.AudioToken); audio.Configured() {
		hosts.Audio = audio
	}
	if video := mediahost.NewClient("video", cfg.MediaHost.VideoBaseURL, cfg.MediaHost.VideoToken); video.Configured() {
		hosts.Video = video
	}
	yt, err := youtube.New(ctx, cfg.YouTube)
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		logrus.Info("[YOUTUBE] Long video host not configured")
	case err != nil:
		logrus.WithError(err).Warn("[YOUTUBE] Long video host disabled")
	default:
		hosts.LongVideo = yt
	}
	return hosts
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp drains the cycle workers and closes the stores.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if cyclePool != nil {
		cyclePool.Stop()
	}
	if poolCancel != nil {
		poolCancel()
	}
	if vk != nil {
		vk.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
