package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/scanlink/scanlink-core/internal/auth"
	"github.com/scanlink/scanlink-core/internal/infrastructure/config"
)

const (
	exitSuccess      = 0
	exitCommandError = 2
)

// runToken prints a host API token signed with the configured JWT secret.
//
//	scanlink token [-subject desktop] [-ttl 720h]
func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "desktop", "token subject, logged with every kick")
	ttl := fs.Duration("ttl", 0, "token lifetime (default security.jwt.token_ttl)")
	if err := fs.Parse(args); err != nil {
		return exitCommandError
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		fmt.Fprintf(stderr, "Error: loading config: %v\n", err)
		return exitCommandError
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.Security.JWT.TTL()
	}

	token, err := auth.GenerateHostToken(cfg.Security.JWT.Secret, *subject, lifetime)
	if errors.Is(err, auth.ErrNoSecret) {
		fmt.Fprintln(stderr, "Error: security.jwt.secret is not set (use SCANLINK_JWT_SECRET)")
		return exitCommandError
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "expires %s\n", time.Now().Add(lifetime).UTC().Format(time.RFC3339))
	return exitSuccess
}
