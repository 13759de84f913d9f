package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/internal/infrastructure/kafka"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	ensureTopic bool
	dryRun      bool
)

var rootCmd = &cobra.Command{
	Use:   "enqueue <file-or-dir>...",
	Short: "Publish crawled product JSON files to the ingestion topic",
	Long: `Publish crawled product records to the ingestion topic.

Each argument is a JSON file (one object or an array of objects) or a
directory that is scanned recursively for *.json files. Records without an
id get one derived from store_url.

Examples:
  enqueue ./data/jsons
  enqueue --ensure-topic product1.json product2.json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&ensureTopic, "ensure-topic", false, "create the ingestion and dead-letter topics if missing")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print records instead of publishing")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logger.NewSlogLogger()
	_ = godotenv.Load()

	records, err := loadRecords(args)
	if err != nil {
		return err
	}
	log.Infof("loaded %d records", len(records))

	if dryRun {
		for _, r := range records {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.ID, r.Payload)
		}
		return nil
	}

	kafkaCfg, err := config.LoadKafkaCfg()
	if err != nil {
		log.Errorf(err, "failed to load kafka config")
		return err
	}

	producer := kafka.NewProducer(log, kafkaCfg)
	defer producer.Close(context.Background())

	if ensureTopic {
		if err := producer.EnsureTopic(10 * time.Second); err != nil {
			log.Errorf(err, "failed to ensure kafka topics")
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	published := 0
	for _, r := range records {
		if err := producer.PublishRecord(ctx, r.ID, r.Payload); err != nil {
			log.Errorf(err, "failed to publish record %s from %s", r.ID, r.Source)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		published++
	}

	log.Infof("published %d/%d records to %s", published, len(records), kafkaCfg.Topic)
	if published < len(records) {
		return fmt.Errorf("%d records were not published", len(records)-published)
	}
	return nil
}
