package main

import (
	"context"
	"time"

	"github.com/cppla/devboard/config"
	"github.com/cppla/devboard/controllers"
	"github.com/cppla/devboard/routes"
	"github.com/cppla/devboard/services"
	"github.com/cppla/devboard/stores"
	"github.com/cppla/devboard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	store := openStore(cfg)

	rc := utils.NewRedisClient(cfg)
	auth := services.NewAuthService(store, []byte(cfg.JWTSecret), time.Duration(cfg.TokenTTLHours)*time.Hour, utils.NewTokenBlacklist(rc))
	posts := services.NewPostService(store, store)

	if cfg.SeedDemoData {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := posts.SeedDemoPosts(ctx, services.DemoPostCount)
		cancel()
		if err != nil {
			utils.Sugar.Errorf("seeding demo posts failed after %d posts: %v", n, err)
		} else if n > 0 {
			utils.Sugar.Infof("seeded %d demo posts", n)
		}
	}

	r := routes.SetupRouter(routes.Deps{
		Config: cfg,
		Auth:   auth,
		Posts:  posts,
		States: utils.NewStateStore(rc),
		OAuth:  controllers.NewOAuthProviders(cfg),
	})

	srv := utils.NewServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func(ctx context.Context) {
		if err := store.Close(ctx); err != nil {
			utils.Sugar.Warnf("closing %s store: %v", cfg.StoreDriver, err)
		}
		if rc != nil {
			_ = rc.Close()
		}
	})

	utils.Sugar.Infof("Starting server on port %s (graceful, store=%s)", cfg.AppPort, cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func openStore(cfg config.AppConfig) stores.Store {
	switch cfg.StoreDriver {
	case "mysql", "postgres":
		return stores.NewGormStore(config.InitDatabase(stores.GormModels()...))
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := stores.NewMongoStore(ctx, config.InitMongo())
		if err != nil {
			utils.Sugar.Fatalf("failed to prepare mongo store: %v", err)
		}
		return s
	case "memory":
		utils.Sugar.Warn("using in-memory store, data is lost on restart")
		return stores.NewMemoryStore()
	default:
		utils.Sugar.Fatalf("unknown STORE_DRIVER %q (want mysql, postgres, mongo or memory)", cfg.StoreDriver)
		return nil
	}
}
