package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/swearbot/internal/adapters"
	"github.com/iamwavecut/swearbot/internal/adapters/classifier/perspective"
	"github.com/iamwavecut/swearbot/internal/bot"
	"github.com/iamwavecut/swearbot/internal/config"
	"github.com/iamwavecut/swearbot/internal/handlers/chat"
	"github.com/iamwavecut/swearbot/internal/handlers/moderation"
	"github.com/iamwavecut/swearbot/internal/infra"
	"github.com/iamwavecut/swearbot/internal/lifecycle"
	"github.com/iamwavecut/swearbot/internal/observability"
)

func main() {
	log.SetFormatter(&config.LogFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatal("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if exe, err := os.Executable(); err == nil {
		changed := infra.WatchFile(ctx, exe, infra.DefaultWatchInterval)
		go func() {
			<-changed
			stop()
		}()
	}

	lists, err := config.LoadLists(ctx, cfg)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("cant load lists")
	}

	service, err := bot.NewService(cfg.DiscordToken)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("cant initialize discord client")
	}

	var clf adapters.Classifier
	if cfg.Classifier.Enabled {
		clf, err = perspective.NewPerspective(cfg.Classifier.APIKey,
			perspective.WithEndpoint(cfg.Classifier.Endpoint),
			perspective.WithLanguages(cfg.Classifier.Languages...),
			perspective.WithDoNotStore(cfg.Classifier.DoNotStore),
		)
		if err != nil {
			log.WithField("error", err.Error()).Fatal("cant initialize classifier")
		}
	}

	matcher := moderation.NewMatcher(lists.Patterns)
	moderator := moderation.NewModerator(service, moderation.Dependencies{
		Classifier:    clf,
		Matcher:       matcher,
		Tracker:       moderation.NewTracker(cfg.Moderation.Strikes),
		EligibleUsers: lists.EligibleUsers,
	}, moderation.Config{
		GuildID:           snowflake.ID(cfg.Moderation.GuildID),
		Threshold:         cfg.Classifier.Threshold,
		ClassifierTimeout: cfg.Classifier.Timeout,
		WarningEmoji:      cfg.Moderation.WarningEmoji,
		WarningMessage:    cfg.Moderation.WarningMessage,
		TimeoutDuration:   cfg.Moderation.TimeoutDuration,
	})
	reactor := chat.NewReactor(service, lists.Gifs, chat.Config{
		GuildID: snowflake.ID(cfg.Reactor.GuildID),
		Emoji:   cfg.Reactor.Emoji,
	})

	processor := bot.NewUpdateProcessor(map[string]bot.Handler{
		"reactor":   reactor,
		"moderator": moderator,
	}, cfg.EnabledHandlers, cfg.MaxConcurrency)
	service.Subscribe(func(msg *bot.Message) {
		processor.Dispatch(msg)
	})

	runtime := lifecycle.NewRuntime(lifecycle.DefaultStopTimeout)
	runtime.Register("observability", observability.New(cfg.MetricsAddr))
	runtime.Register("processor", processor)
	runtime.Register("gateway", service)

	log.WithFields(log.Fields{
		"handlers":   cfg.EnabledHandlers,
		"classifier": cfg.Classifier.Enabled,
		"patterns":   matcher.Len(),
	}).Info("starting swearbot")
	if err := runtime.Run(ctx); err != nil {
		log.WithField("error", err.Error()).Fatal("runtime failed")
	}
	log.Info("bye")
}
