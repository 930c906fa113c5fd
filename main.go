package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	jujuerrors "github.com/juju/errors"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/acme/autocert"
	_ "modernc.org/sqlite"

	"feedboard/feed"
	"feedboard/handler"
	"feedboard/realtime"
	"feedboard/store"
)

const DEV_ENV = "dev"
const PRO_ENV = "pro"

func main() {
	env := os.Getenv("ENV")
	if env == "" {
		env = PRO_ENV
	}

	fmt.Println("Running database schema migrations...")
	db, err := setupDB()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No database schema migration ran. Database schema already in latest version")
		} else {
			fmt.Printf("Error during database schema migration: %v", err)
		}
	}
	jwtSecret, err := fetchSecret(env)
	if err != nil {
		panic(err)
	}

	imagesDir := os.Getenv("IMAGES_DIR")
	if imagesDir == "" {
		imagesDir = "images"
	}
	images, err := store.NewImageStore(imagesDir)
	if err != nil {
		panic(err)
	}

	st := store.New(db)
	hub := realtime.NewHub(nil)
	gateway := realtime.NewGateway(hub, nil)
	feedService := feed.NewService(st, images, hub, nil)

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	e.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(jwtSecret),
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/auth/login", "/auth/signup", "/ws":
				return true
			}
			return c.Request().Method == http.MethodOptions ||
				strings.HasPrefix(c.Path(), "/images/")
		},
		// Missing, malformed and expired tokens are all the same 401
		// to callers.
		ErrorHandler: func(c echo.Context, err error) error {
			return jujuerrors.Unauthorizedf("not authenticated")
		},
	}))

	h := handler.Handler{
		Feed:      feedService,
		Store:     st,
		Images:    images,
		JWTSecret: jwtSecret,
	}

	e.Static("/images", imagesDir)
	e.GET("/ws", gateway.Handle)

	e.GET("/feed/posts", h.GetPosts)
	e.GET("/feed/posts/:id", h.GetPost)
	e.POST("/feed/posts", h.CreatePost)
	e.PUT("/feed/posts/:id", h.UpdatePost)
	e.DELETE("/feed/posts/:id", h.DeletePost)

	e.POST("/auth/signup", h.Signup)
	e.POST("/auth/login", h.Login)
	e.GET("/auth/status", h.GetStatus)
	e.PUT("/auth/status", h.UpdateStatus)

	e.HTTPErrorHandler = handler.HTTPErrorHandler
	addr := os.Getenv("ADDRESS_LISTEN")
	if env == DEV_ENV && addr == "" {
		addr = ":4000"
	}

	if addr != "" {
		e.Logger.Fatal(e.Start(addr))
	} else {
		// Cache certificates to avoid issues with rate limits (https://letsencrypt.org/docs/rate-limits)
		e.AutoTLSManager.Cache = autocert.DirCache("/var/www/.cache")
		if onlyHost := os.Getenv("WHITELIST_HOST"); onlyHost != "" {
			e.AutoTLSManager.HostPolicy = autocert.HostWhitelist(onlyHost)
		}
		e.Pre(middleware.HTTPSRedirect())
		e.Logger.Fatal(e.StartAutoTLS(":443"))
	}
}

func fetchSecret(env string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" && env == DEV_ENV {
		secret = "unsecure"
	}
	if secret == "" {
		return "", errors.New("no secret defined")
	}
	return secret, nil
}

func setupDB() (*sql.DB, error) {
	dbDriver := os.Getenv("DB_DRIVER")
	dataSourceName := os.Getenv("DB_URL")

	if dbDriver == "" {
		dbDriver = "sqlite"
	}

	var db *sql.DB
	var err error
	var driver database.Driver
	if dbDriver == "sqlite" {
		if dataSourceName == "" {
			dataSourceName = "./feedboard.db?_pragma=foreign_keys(1)"
		}
		db, err = sql.Open(dbDriver, dataSourceName)
		if err != nil {
			return nil, err
		}
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
		if err != nil {
			return nil, err
		}
	}
	m, err := migrate.NewWithDatabaseInstance(
		"file://db/migrations",
		dbDriver, driver)
	if err != nil {
		return nil, err
	}

	err = m.Up()

	return db, err
}
