package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	users "github.com/goliatone/go-users"
	"github.com/goliatone/go-users/cmd/users-api/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("users-api"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	db, err := openDatabase(ctx, cfg.Raw().GetPersistence().GetDSN())
	if err != nil {
		panic(err)
	}

	repo := users.NewRepositoryManager(db)
	repo.MustValidate()

	authCfg := cfg.Raw().GetAuth()
	tokens := users.NewTokenProvider(
		[]byte(authCfg.GetSigningKey()),
		authCfg.GetIssuer(),
		users.LoadLocation(authCfg),
		lgr.GetLogger("tokens"),
	)

	service := users.NewService(repo, tokens, authCfg).
		WithLogger(lgr.GetLogger("service"))

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})
	srv.Router().WithLogger(lgr.GetLogger("router"))

	authController := users.NewAuthController(service).
		WithLogger(lgr.GetLogger("auth"))
	userController := users.NewUserController(service).
		WithLogger(lgr.GetLogger("users"))

	protected := users.RequireAuth(tokens, nil)

	users.RegisterAuthRoutes(srv.Router(), authController)
	users.RegisterUserRoutes(srv.Router(), userController, protected)

	address := cfg.Raw().GetServer().GetAddress()
	lgr.Info("listening", "address", address)

	srv.Serve(address)

	waitExitSignal()
}

// openDatabase opens the sqlite store and applies the embedded
// migrations in lexical order. Migrations are idempotent so reruns at
// boot are safe.
func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	migrations, err := fs.Sub(users.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	if err := applyMigrations(ctx, db, migrations); err != nil {
		return nil, err
	}

	return db, nil
}

func applyMigrations(ctx context.Context, db *bun.DB, migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := fs.ReadFile(migrations, name)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(script), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s: %w", name, err)
			}
		}
	}

	return nil
}

func waitExitSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
