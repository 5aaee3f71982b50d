// Command gen-token signs HS256 session tokens for LOCAL_AUTH_MODE=hs256 and
// AUTH0_TEST_MODE runs.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	orgID    string
	orgRole  string
	orgName  string
	audience string
	ttl      time.Duration
	count    int
	prefix   string
	start    int
	output   string
}

func main() {
	opts := tokenOptions{}
	cmd := &cobra.Command{
		Use:           "gen-token [user-id]",
		Short:         "Sign session tokens with the shared local secret",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("LOCAL_AUTH_SHARED_SECRET")
			if secret == "" {
				secret = os.Getenv("TEST_JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("LOCAL_AUTH_SHARED_SECRET or TEST_JWT_SECRET must be set")
			}
			if len(args) > 0 && opts.count > 1 {
				return fmt.Errorf("explicit user ID cannot be provided when generating multiple tokens")
			}
			tokens, err := generateTokens([]byte(secret), opts, args, time.Now())
			if err != nil {
				return err
			}
			if opts.output != "" {
				if err := writeTokens(opts.output, tokens); err != nil {
					return fmt.Errorf("write tokens: %w", err)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), tokens[0])
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.orgID, "org", "", "organization id claim; empty issues a token without an organization")
	f.StringVar(&opts.orgRole, "role", "member", "organization role claim; org:admin sees the dashboard")
	f.StringVar(&opts.orgName, "org-name", "", "organization display name claim")
	f.StringVar(&opts.audience, "audience", os.Getenv("AUTH0_AUDIENCE"), "aud claim")
	f.DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	f.IntVar(&opts.count, "count", 1, "number of tokens to generate")
	f.StringVar(&opts.prefix, "prefix", "local-user", "prefix for generated user IDs")
	f.IntVar(&opts.start, "start", 1, "starting index for generated user IDs when count > 1")
	f.StringVar(&opts.output, "output", "", "file to write generated tokens as a JSON array")

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func generateTokens(secret []byte, opts tokenOptions, args []string, now time.Time) ([]string, error) {
	if opts.count < 1 {
		return nil, fmt.Errorf("count must be at least 1")
	}
	if opts.start < 1 {
		return nil, fmt.Errorf("start index must be at least 1")
	}
	tokens := make([]string, opts.count)
	for i := range tokens {
		var userID string
		switch {
		case len(args) > 0:
			userID = args[0]
		case opts.count == 1:
			userID = opts.prefix
		default:
			userID = fmt.Sprintf("%s-%d", opts.prefix, opts.start+i)
		}
		tok, err := signToken(secret, userID, opts, now)
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}
	return tokens, nil
}

func signToken(secret []byte, userID string, opts tokenOptions, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(opts.ttl).Unix(),
	}
	if opts.audience != "" {
		claims["aud"] = opts.audience
	}
	if opts.orgID != "" {
		claims["org_id"] = opts.orgID
		claims["org_role"] = opts.orgRole
		if opts.orgName != "" {
			claims["org_name"] = opts.orgName
		}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
