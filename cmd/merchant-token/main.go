// Command merchant-token mints a bearer token for the session creation API.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"hosted-checkout/internal/config"
	"hosted-checkout/internal/infra/api"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	merchant := flag.String("merchant", "", "merchant id placed in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *merchant == "" {
		log.Fatal("-merchant is required")
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	auth := api.NewMerchantAuth(cfg.Merchant.APISecret)
	if auth == nil {
		log.Fatal("merchant.api_secret (or MERCHANT_API_SECRET) is not set; auth is disabled")
	}

	tok, err := auth.Mint(*merchant, *ttl)
	if err != nil {
		log.Fatalf("mint: %v", err)
	}
	fmt.Println(tok)
}
