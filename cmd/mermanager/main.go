package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"mermanager/internal/config"
	"mermanager/internal/domain"
	"mermanager/internal/http/handlers"
	applog "mermanager/internal/log"
	"mermanager/internal/services"
	"mermanager/internal/store"
)

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.StoreDriver == "mongo" {
		return store.OpenMongo(context.Background(), cfg.MongoURI, cfg.MongoDB)
	}
	return store.OpenSQLite(cfg.DBDSN)
}

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Auth wiring: the read model follows the signed-in user.
	authSvc := services.NewAuthService(st)
	readModel := services.NewReadModel(st)
	authSvc.Subscribe(func(u *domain.User) {
		if err := readModel.SetUser(u); err != nil {
			log.Printf("[readmodel] subscribe failed: %v", err)
		}
	})
	authH := &handlers.AuthHandler{Auth: authSvc}

	// Templates & app
	engine := html.New("./web/templates", ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "エラーが発生しました。もう一度お試しください。",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/v1/stream"
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "セキュリティチェックに失敗しました。再読み込みしてください。"})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok := c.Locals("csrf"); tok != nil {
			c.Locals("CSRFToken", tok.(string))
		}
		return c.Next()
	})

	// ---------- App handlers ----------
	deps := handlers.NewDeps(st, cfg, authSvc, readModel)
	requireUser := handlers.RequireUser(authSvc)

	// Auth
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{Max: 10, Expiration: time.Minute}), authH.Login)
	app.Post("/logout", authH.Logout)

	// Dashboard & listings
	app.Get("/", requireUser, deps.DashboardHandler.Home)
	app.Get("/listings", requireUser, deps.ListingHandler.List)

	// Editor
	app.Get("/listings/new", requireUser, deps.EditorHandler.New)
	app.Get("/listings/:id/edit", requireUser, deps.EditorHandler.Edit)
	app.Post("/listings/save", requireUser, deps.EditorHandler.Save)
	app.Post("/listings/optimize", requireUser, deps.EditorHandler.Optimize)
	app.Post("/listings/delete", requireUser, deps.EditorHandler.Delete)
	app.Post("/listings/cancel", requireUser, deps.EditorHandler.Cancel)

	// API
	api := app.Group("/api/v1")
	api.Get("/listings", requireUser, deps.ListingHandler.Snapshot)
	api.Get("/stream", requireUser, deps.StreamHandler.Stream)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "ページが見つかりません"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
