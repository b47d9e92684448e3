// Command token issues an operator bearer token for the sync API, signed with
// the configured JWT secret. Intended for local use and smoke tests.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fintrack/backend/internal/infrastructure/auth"
	"github.com/fintrack/backend/internal/infrastructure/config"
	"github.com/google/uuid"
)

type options struct {
	userID string
	email  string
	admin  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.userID, "user-id", "", "Operator ID placed in the token (default: random)")
	flag.StringVar(&opts.email, "email", "", "Operator email")
	flag.BoolVar(&opts.admin, "admin", false, "Grant crm_sync:admin in addition to crm_sync:read")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := issue(auth.NewJWTService(cfg.JWT), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}
}

func issue(tokens *auth.JWTService, opts options, out io.Writer) error {
	userID := uuid.New()
	if opts.userID != "" {
		parsed, err := uuid.Parse(opts.userID)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", opts.userID, err)
		}
		userID = parsed
	}

	perms := []string{auth.PermissionSyncRead}
	if opts.admin {
		perms = append(perms, auth.PermissionSyncAdmin)
	}

	issued, err := tokens.GenerateToken(auth.GenerateTokenInput{
		UserID:      userID,
		Email:       opts.email,
		Permissions: perms,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(issued)
}
