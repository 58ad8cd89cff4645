package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"finera/config"
	"finera/database"
	"finera/logger"
	"finera/middleware"
	"finera/router"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// @title Finera API
// @version 1.0
// @description Personal finance backend: categories, transactions, monthly budgets, dashboard and AI spending suggestions
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "external config file (optional)")
	flag.StringVar(&configFile, "c", "", "external config file (shorthand)")
	flag.StringVar(&port, "port", "", "listen port, e.g. 8080 or :8080")
	flag.StringVar(&port, "p", "", "listen port (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&showVersion, "v", false, "print version (shorthand)")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("finera %s\n", router.Version)
		return
	}

	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "reading .env: %v\n", err)
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}

	logger.Setup(cfg.Server.Mode, cfg.Server.LogFormat)
	config.PrintConfig()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := database.Init(cfg); err != nil {
		log.Fatal().Err(err).Msg("database initialization failed")
	}

	middleware.InitJWT(cfg)

	r := router.SetupRouter(cfg)

	log.Info().
		Str("api", fmt.Sprintf("http://localhost%s/api/", cfg.Server.Port)).
		Str("swagger", fmt.Sprintf("http://localhost%s/swagger/index.html", cfg.Server.Port)).
		Msg("finera started")

	if err := r.Run(cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
