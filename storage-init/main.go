// Command storage-init provisions the tables and queues the API depends on
// and seeds the shared curriculum.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coaching-api/storage"
)

type options struct {
	connStr string
	redis   string
	debug   bool
}

func tablesFromEnv() storage.Tables {
	return storage.Tables{
		Curriculum:    os.Getenv("CURRICULUM_TABLE"),
		Completions:   os.Getenv("COMPLETIONS_TABLE"),
		Organizations: os.Getenv("ORGANIZATIONS_TABLE"),
		Participants:  os.Getenv("PARTICIPANTS_TABLE"),
		Hypotheses:    os.Getenv("HYPOTHESES_TABLE"),
		Questions:     os.Getenv("QUESTIONS_TABLE"),
		Responses:     os.Getenv("RESPONSES_TABLE"),
		Attachments:   os.Getenv("ATTACHMENTS_TABLE"),
		Boards:        os.Getenv("BOARDS_TABLE"),
	}
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           "storage-init",
		Short:         "Provision storage for the coaching API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.debug {
				log.SetLevel(log.DebugLevel)
			}
			if opts.connStr == "" {
				return fmt.Errorf("missing STORAGE_CONNECTION_STRING")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := provisionTables(cmd.Context(), opts); err != nil {
				return err
			}
			if err := provisionQueues(cmd.Context(), opts); err != nil {
				return err
			}
			if file := os.Getenv("CURRICULUM_FILE"); file != "" {
				return seedFromFile(cmd.Context(), opts, file)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.connStr, "connection-string", os.Getenv("STORAGE_CONNECTION_STRING"), "storage account connection string")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", os.Getenv("DEBUG") == "true", "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "tables",
		Short: "Create every table that does not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return provisionTables(cmd.Context(), opts)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "queues",
		Short: "Create the activity queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return provisionQueues(cmd.Context(), opts)
		},
	})
	seed := &cobra.Command{
		Use:   "seed <curriculum.yaml>",
		Short: "Write the curriculum lists, sections and tasks from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedFromFile(cmd.Context(), opts, args[0])
		},
	}
	root.PersistentFlags().StringVar(&opts.redis, "redis", os.Getenv("REDIS_CONNECTION_STRING"), "evict the cached curriculum from this Redis after seeding")
	root.AddCommand(seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func provisionTables(ctx context.Context, opts *options) error {
	tables := tablesFromEnv()
	if err := tables.Validate(); err != nil {
		return err
	}
	if err := createTables(ctx, opts.connStr, tables.Names()); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	log.Info("tables ready")
	return nil
}

func provisionQueues(ctx context.Context, opts *options) error {
	if err := createQueues(ctx, opts.connStr, []string{os.Getenv("ACTIVITY_QUEUE")}); err != nil {
		return fmt.Errorf("create queues: %w", err)
	}
	log.Info("queues ready")
	return nil
}

func seedFromFile(ctx context.Context, opts *options, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	c, err := parseCurriculum(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	store, err := storage.New(opts.connStr, tablesFromEnv(), "")
	if err != nil {
		return err
	}
	if err := seedCurriculum(ctx, store, c); err != nil {
		return err
	}
	log.WithFields(log.Fields{"lists": len(c.Lists), "sections": len(c.Sections), "tasks": len(c.Tasks)}).Info("curriculum seeded")

	if opts.redis != "" {
		rc := redis.NewClient(storage.RedisOptions(opts.redis))
		defer rc.Close()
		storage.NewCache(store, rc, 0).EvictCurriculum(ctx)
	}
	return nil
}
