// Package main provides a CLI for minting development bearer tokens for the
// consent engine API. Tokens are signed with the dev key and will NOT work
// against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "travlr/internal/jwt_token"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set.
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "travlr"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token      string `json:"token"`
	Identifier string `json:"identifier"`
	ExpiresIn  string `json:"expires_in"`
	Usage      string `json:"usage"`
}

func main() {
	identifier := flag.String("identifier", "", "identity the token authenticates (required)")
	ttl := flag.Duration("ttl", defaultTokenTTL, "token time-to-live")
	signingKey := flag.String("signing-key", "", "override the dev signing key")
	asJSON := flag.Bool("json", false, "output as JSON")
	flag.Parse()

	if *identifier == "" {
		fmt.Fprintln(os.Stderr, "usage: tokengen -identifier <identity> [-ttl 15m] [-json]")
		os.Exit(2)
	}

	key := devSigningKey
	if *signingKey != "" {
		key = *signingKey
	}

	svc := jwttoken.NewService(key, defaultIssuer, *ttl)
	token, err := svc.GenerateToken(*identifier)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}

	if *asJSON {
		out := tokenOutput{
			Token:      token,
			Identifier: *identifier,
			ExpiresIn:  ttl.String(),
			Usage:      "Authorization: Bearer <token>",
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Println(token)
}
