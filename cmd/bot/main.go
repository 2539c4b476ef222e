package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/trialbot/internal/api"
	"github.com/C4T-BuT-S4D/trialbot/internal/config"
	"github.com/C4T-BuT-S4D/trialbot/internal/lifecycle"
	"github.com/C4T-BuT-S4D/trialbot/internal/logging"
	"github.com/C4T-BuT-S4D/trialbot/internal/metrics"
	"github.com/C4T-BuT-S4D/trialbot/internal/monitor"
	"github.com/C4T-BuT-S4D/trialbot/internal/notify"
	"github.com/C4T-BuT-S4D/trialbot/internal/presence"
	"github.com/C4T-BuT-S4D/trialbot/internal/scheduler"
	"github.com/C4T-BuT-S4D/trialbot/internal/session"
	"github.com/C4T-BuT-S4D/trialbot/internal/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v4"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	setupConfig()
	logging.Init()

	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}
	logrus.Debugf("config: %+v", cfg)

	db, err := storage.Open(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	store := storage.New(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	defer initCancel()

	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	globalState, err := store.GetOrCreateGlobalState(initCtx)
	if err != nil {
		logrus.Fatalf("Failed to get or create global state: %v", err)
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.TelegramToken,
		Poller: &telebot.LongPoller{
			Timeout:      10 * time.Second,
			LastUpdateID: globalState.LastUpdateID,
			AllowedUpdates: []string{
				"message",
				"callback_query",
				"chat_member",
				"chat_join_request",
			},
		},
		OnError: func(err error, c telebot.Context) {
			logrus.Errorf("Bot error: %v", err)
		},
	})
	if err != nil {
		logrus.Fatalf("Failed to create bot: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	channels := notify.Multi{notify.NewTelegram(bot, store)}
	if cfg.NotifyWebhookURL != "" {
		channels = append(channels, notify.NewWebhook(cfg.NotifyWebhookURL))
	}

	engine := lifecycle.NewEngine(
		lifecycle.Settings{
			Chats: lifecycle.Chats{
				Primary:   cfg.PrimaryChatID,
				Secondary: cfg.SecondaryChatID,
			},
			TrialDuration: cfg.TrialDuration,
			ExpiryWarning: cfg.ExpiryWarning,
		},
		store,
		presence.NewTelegram(bot),
		channels,
		lifecycle.WithMetrics(m),
	)

	sessions := newSessionStore(initCtx, cfg)
	mon := monitor.New(cfg.BotHandleTimeout, engine, sessions, store)

	bot.Handle("/start", mon.Wrap(mon.HandleStart))
	bot.Handle(telebot.OnText, mon.Wrap(mon.HandleText))
	bot.Handle(telebot.OnCallback, mon.Wrap(mon.HandleCallback))
	bot.Handle(telebot.OnChatJoinRequest, mon.Wrap(mon.HandleJoinRequest))
	bot.Handle(telebot.OnChatMember, mon.Wrap(mon.HandleChatMember))

	sched := scheduler.New()
	if err := sched.Every("reconcile", cfg.CheckInterval, func(ctx context.Context) {
		if _, err := engine.Reconcile(ctx); err != nil {
			logrus.Errorf("Reconciliation failed: %v", err)
		}
	}); err != nil {
		logrus.Fatalf("Failed to schedule reconciliation: %v", err)
	}
	if err := sched.Every("expiry", cfg.CheckInterval, engine.RunExpiryChecks); err != nil {
		logrus.Fatalf("Failed to schedule expiry checks: %v", err)
	}

	server := api.NewService(cfg.APIToken, store, reg).Echo()

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		bot.Start()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Infof("Starting ops API on %s", cfg.HTTPAddr)
		if err := server.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Ops API failed: %v", err)
		}
	}()

	if err := engine.AnnounceStartup(ctx); err != nil {
		logrus.Warnf("Failed to announce startup: %v", err)
	}

	<-ctx.Done()

	bot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to shut down ops API: %v", err)
	}

	logrus.Info("waiting for services to finish")
	wg.Wait()
}

// newSessionStore keeps pending admin actions in redis when it is configured.
func newSessionStore(ctx context.Context, cfg *config.Config) session.Store {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.PendingActionTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Fatalf("Failed to connect to redis: %v", err)
	}
	return session.NewRedisStore(client, cfg.PendingActionTTL)
}

func setupConfig() {
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.SetDefault("pending_action_ttl", "5m")
	viper.SetDefault("http_addr", "127.0.0.1:8080")
	config.SetupCommon()
}
