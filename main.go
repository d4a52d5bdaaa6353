package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"QuoteChat/bot"
	"QuoteChat/entity"
	"QuoteChat/impl/core"
	"QuoteChat/internal/config"
	repository "QuoteChat/internal/database"
	"QuoteChat/internal/http-server/api"
	"QuoteChat/internal/lib/identity"
	"QuoteChat/internal/lib/logger"
	"QuoteChat/internal/lib/sl"
	"QuoteChat/internal/service/product"
	"QuoteChat/internal/storage/memory"
	"QuoteChat/internal/storage/sqlstore"
	"QuoteChat/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	// .env is optional; values from it are read by cleanenv below
	_ = godotenv.Load()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	// Initialize Telegram bot if enabled
	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.StaffChat, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			if conf.Telegram.LogErrors {
				lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelError)
			}
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
				slog.Int64("staff_chat", conf.Telegram.StaffChat),
			).Info("telegram bot initialized")
		}
	}

	lg.Info("starting quotechat", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	handler := core.New(lg)
	handler.SetAuthenticator(identity.NewVerifier(conf.Auth.Secret, conf.Auth.Issuer))
	handler.SetFileSigning(conf.Files.Secret, conf.Files.TTL)

	products := make([]entity.Product, 0, len(conf.Catalog.Products))
	for _, p := range conf.Catalog.Products {
		products = append(products, entity.Product{ID: p.ID, Name: p.Name})
	}

	switch conf.Store.Driver {
	case config.StoreMongo:
		db, err := repository.NewMongoClient(conf, lg)
		if err != nil {
			lg.Error("mongo client", sl.Err(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err = db.EnsureIndexes(ctx); err != nil {
			lg.Error("mongo indexes", sl.Err(err))
		}
		if err = db.UpsertProducts(ctx, products); err != nil {
			lg.Error("seed products", sl.Err(err))
		}
		cancel()

		handler.SetStore(db)
		handler.SetProductCatalog(db)
		handler.SetProfileSource(db)
		handler.SetFileStorage(db)
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")

	case config.StorePostgres, config.StoreSQLite:
		store, err := sqlstore.New(sqlstore.Config{Driver: conf.Store.Driver, DSN: conf.SQL.DSN})
		if err != nil {
			lg.Error("sql store", sl.Err(err), slog.String("driver", conf.Store.Driver))
			return
		}
		defer store.Close()
		handler.SetStore(store)
		lg.With(
			slog.String("driver", conf.Store.Driver),
			sl.Secret("dsn", conf.SQL.DSN),
		).Info("sql store initialized")

	default:
		handler.SetStore(memory.New())
		lg.Warn("using in-memory store, threads are lost on restart")
	}

	if conf.Store.Driver != config.StoreMongo {
		ps := product.NewProductService(product.Options{
			Products: products,
			BaseURL:  conf.Catalog.BaseURL,
			Login:    conf.Catalog.Login,
			Password: conf.Catalog.Password,
			TTL:      conf.Catalog.TTL,
		}, lg)
		handler.SetProductCatalog(ps)
		lg.With(
			slog.Int("static", len(products)),
			slog.String("url", conf.Catalog.BaseURL),
		).Info("product service initialized")
	}

	if tgBot != nil {
		handler.SetNotifier(tgBot)
		tgBot.SetStatusHandler(handler, conf.Telegram.StaffUser)

		go func() {
			if err := tgBot.Start(); err != nil {
				lg.Error("telegram bot error", sl.Err(err))
			}
		}()
	}

	hub := ws.NewHub(lg)
	go hub.Run()
	handler.SetPublisher(hub)

	// *** blocking start with http server ***
	err := api.New(conf, lg, handler, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
