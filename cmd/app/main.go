package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"CoinPulse/internal/di"
	"CoinPulse/pkg/config"
	"CoinPulse/pkg/server"
	"CoinPulse/pkg/util"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults only when empty)")
	mode := flag.String("mode", server.ModeRun, "run: analyze coins once; serve: start the HTTP API")
	coinFlag := flag.String("coin", "", `coin id, comma separated list, or "both" for the configured coins`)
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s mode=%s coins=%s", cfg.Environment, *mode, strings.Join(cfg.Coins, ","))

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(*mode, parseCoins(*coinFlag)); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

// parseCoins returns nil (configured coins) for "" and "both".
func parseCoins(v string) []string {
	coins := util.SplitList(v)
	if len(coins) == 0 || (len(coins) == 1 && coins[0] == "both") {
		return nil
	}
	return coins
}
