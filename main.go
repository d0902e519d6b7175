package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/config"
	"github.com/bjscha03/Final-Banner-Site-sub004/controllers"
	"github.com/bjscha03/Final-Banner-Site-sub004/routes"
	"github.com/bjscha03/Final-Banner-Site-sub004/services"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	if err := utils.InitLogger(utils.LogOptions{
		Dir:        cfg.LogDir,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAge,
		Console:    !cfg.IsProduction(),
	}); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	policy, err := config.LoadRecoveryPolicy(cfg.RecoveryPolicyFile)
	if err != nil {
		utils.LogError("Error loading recovery policy: %v", err)
		log.Fatal("Error loading recovery policy:", err)
	}
	interval, _ := cfg.SweepEvery()

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.LogError("Database initialization failed: %v", err)
		log.Fatal("Database initialization failed:", err)
	}

	store := services.NewGormStore(db)
	discounts := services.NewDiscountGuard(store)
	mailer := utils.NewMailer(utils.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	reminders := services.NewReminderSender(store, discounts, mailer, policy, services.ReminderLinks{
		PublicURL:   cfg.PublicURL,
		FrontendURL: cfg.FrontendURL,
	})

	var dispatcher services.Dispatcher = services.NewLocalDispatcher(reminders)
	if cfg.EmailDispatchURL != "" {
		dispatcher = services.NewHTTPDispatcher(cfg.EmailDispatchURL, cfg.CronSecret, 30*time.Second)
		utils.LogInfo("Reminders dispatched to %s", cfg.EmailDispatchURL)
	}
	detector := services.NewDetector(store, dispatcher, policy)

	var locker services.Locker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL:", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			utils.LogError("Redis unreachable, sweeps will run without the shared lock: %v", err)
		}
		locker = services.NewRedisLocker(client)
	}
	scheduler := services.NewScheduler(detector, locker, interval)

	router := routes.SetupRouter(routes.Controllers{
		Cart:      controllers.NewCartController(services.NewSnapshotWriter(store)),
		Discounts: controllers.NewDiscountController(discounts),
		Recovery:  controllers.NewRecoveryController(scheduler, reminders),
		Admin: controllers.NewAdminController(controllers.AdminCredentials{
			Email:        cfg.AdminEmail,
			PasswordHash: cfg.AdminPasswordHash,
			JWTSecret:    cfg.JWTSecret,
		}, store, discounts, services.NewReportService(store), scheduler),
	}, routes.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.IsProduction(),
		CronSecret:    cfg.CronSecret,
		JWTSecret:     cfg.JWTSecret,
		AllowOrigin:   cfg.FrontendURL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.SchedulerEnabled {
		go scheduler.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.LogError("Error starting server: %v", err)
			log.Fatal("Error starting server:", err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	utils.LogInfo("Shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError("Server shutdown failed: %v", err)
	}
}
