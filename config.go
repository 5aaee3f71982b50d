package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"coaching-api/api"
	"coaching-api/storage"
)

type config struct {
	ListenAddr string
	Debug      bool

	StorageConnStr string
	Tables         storage.Tables
	ActivityQueue  string

	RedisConnStr  string
	CurriculumTTL time.Duration
	DeduperTTL    time.Duration

	Blobs storage.BlobConfig

	Auth         api.AuthConfig
	Auth0Domain  string
	SignInURL    string
	OrgSelectURL string

	Publisher       api.PublisherConfig
	ShutdownTimeout time.Duration
}

// loadConfig reads the process configuration from the environment and
// exits on missing or malformed values.
func loadConfig() config {
	cfg := config{
		ListenAddr: ":8080",
		Debug:      envBool("DEBUG"),

		StorageConnStr: os.Getenv("STORAGE_CONNECTION_STRING"),
		Tables: storage.Tables{
			Curriculum:    os.Getenv("CURRICULUM_TABLE"),
			Completions:   os.Getenv("COMPLETIONS_TABLE"),
			Organizations: os.Getenv("ORGANIZATIONS_TABLE"),
			Participants:  os.Getenv("PARTICIPANTS_TABLE"),
			Hypotheses:    os.Getenv("HYPOTHESES_TABLE"),
			Questions:     os.Getenv("QUESTIONS_TABLE"),
			Responses:     os.Getenv("RESPONSES_TABLE"),
			Attachments:   os.Getenv("ATTACHMENTS_TABLE"),
			Boards:        os.Getenv("BOARDS_TABLE"),
		},
		ActivityQueue: os.Getenv("ACTIVITY_QUEUE"),

		RedisConnStr:  os.Getenv("REDIS_CONNECTION_STRING"),
		CurriculumTTL: envDur("CURRICULUM_CACHE_TTL", 10*time.Minute),
		DeduperTTL:    envDur("DEDUPER_TTL", 24*time.Hour),

		Blobs: storage.BlobConfig{
			Region:          os.Getenv("BLOB_S3_REGION"),
			Bucket:          os.Getenv("BLOB_S3_BUCKET"),
			Endpoint:        os.Getenv("BLOB_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("BLOB_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("BLOB_S3_SECRET_ACCESS_KEY"),
			PathStyle:       envBool("BLOB_S3_PATH_STYLE"),
			PublicBaseURL:   os.Getenv("BLOB_PUBLIC_BASE_URL"),
		},

		Auth: api.AuthConfig{
			Audience:    os.Getenv("AUTH0_AUDIENCE"),
			KeyCacheTTL: envDur("JWKS_CACHE_TTL", 15*time.Minute),
		},
		Auth0Domain:  os.Getenv("AUTH0_DOMAIN"),
		SignInURL:    os.Getenv("SIGN_IN_URL"),
		OrgSelectURL: os.Getenv("ORG_SELECT_URL"),

		Publisher: api.PublisherConfig{
			Workers:        envInt("ACTIVITY_WORKERS", 8),
			Buffer:         envInt("ACTIVITY_BUFFER", 1024),
			EnqueueTimeout: envDur("ACTIVITY_TIMEOUT", 30*time.Second),
			HandoffTimeout: envDur("ACTIVITY_HANDOFF_TIMEOUT", 15*time.Millisecond),
		},
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		cfg.ListenAddr = ":" + val
	}
	if cfg.StorageConnStr == "" {
		log.Fatal("missing storage config")
	}
	if err := cfg.Tables.Validate(); err != nil {
		log.Fatalf("storage tables: %v", err)
	}
	if cfg.RedisConnStr == "" {
		log.Fatal("missing redis config")
	}
	if cfg.Blobs.Bucket == "" {
		log.Fatal("missing BLOB_S3_BUCKET")
	}

	switch mode := strings.ToLower(os.Getenv("LOCAL_AUTH_MODE")); mode {
	case "":
		if os.Getenv("AUTH0_TEST_MODE") == "1" {
			secret := os.Getenv("TEST_JWT_SECRET")
			if secret == "" {
				log.Fatal("TEST_JWT_SECRET must be set when AUTH0_TEST_MODE=1")
			}
			cfg.Auth.HS256Secret = []byte(secret)
		}
	case "hs256":
		secret := os.Getenv("LOCAL_AUTH_SHARED_SECRET")
		if secret == "" {
			log.Fatal("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256")
		}
		cfg.Auth.HS256Secret = []byte(secret)
	default:
		log.Fatalf("unsupported LOCAL_AUTH_MODE value %q", mode)
	}
	if len(cfg.Auth.HS256Secret) == 0 {
		if cfg.Auth.Audience == "" || cfg.Auth0Domain == "" {
			log.Fatal("missing Auth0 config")
		}
		cfg.Auth.Issuer = "https://" + cfg.Auth0Domain + "/"
	}
	return cfg
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Fatalf("invalid %s: %q", name, raw)
	}
	return n
}

func envDur(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Fatalf("invalid %s: %q", name, raw)
	}
	return d
}
