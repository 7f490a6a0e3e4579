package main

import (
	"context"
	"flag"
	"os"

	"github.com/Temutjin2k/ride-hail-driver/config"
	"github.com/Temutjin2k/ride-hail-driver/internal/app"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
)

// @title           Driver Session Control API
// @version         1.0
// @description     Local control surface of a driver session: availability, ride offers, the active ride lifecycle, device location and a live event stream.

// @host      localhost:8090
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the control token.

const serviceName = "driver-session"

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger(serviceName, logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	// Printing configuration
	config.PrintConfig(cfg)

	log = logger.InitLogger(serviceName, cfg.Log.Level)

	// Creating application
	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	// Running the application
	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
