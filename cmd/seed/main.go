// cmd/seed writes small demo partitions for every dataset domain so the
// API can be exercised locally without the upstream pipeline.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/afridata/datalayer/dataset"
)

func main() {
	dir := flag.String("dir", "./data/clean", "dataset root to seed")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "datalayer-seed").Logger()

	prices := map[string][]dataset.PriceRecord{
		"prices/kenya/2024-01-01.parquet": {
			{Provider: "acme", Country: "kenya", Region: "nairobi", Date: "2024-01-01", Item: "maize", Price: 10, Currency: "KES"},
			{Provider: "acme", Country: "kenya", Region: "mombasa", Date: "2024-01-01", Item: "maize", Price: 30, Currency: "KES"},
			{Provider: "globex", Country: "kenya", Region: "nairobi", Date: "2024-01-01", Item: "rice", Price: 120, Currency: "KES"},
		},
		"prices/nigeria/2024-01-02.parquet": {
			{Provider: "globex", Country: "nigeria", Region: "lagos", Date: "2024-01-02", Item: "rice", Price: 850, Currency: "NGN"},
			{Provider: "naira-mart", Country: "nigeria", Region: "abuja", Date: "2024-01-02", Item: "yam", Price: 400, Currency: "NGN"},
		},
	}
	listings := map[string][]dataset.ListingRecord{
		"realestate/ghana/2024-02-01.parquet": {
			{Provider: "homes", Country: "ghana", Region: "greater accra", Date: "2024-02-01", City: "accra", Bedrooms: 2, Price: 650},
			{Provider: "homes", Country: "ghana", Region: "greater accra", Date: "2024-02-01", City: "tema", Bedrooms: 3, Price: 820},
			{Provider: "castle", Country: "ghana", Region: "ashanti", Date: "2024-02-01", City: "kumasi", Bedrooms: 4, Price: 1100},
		},
	}
	providers := map[string][]dataset.ProviderRow{
		"providers/registry.parquet": {
			{Provider: "acme", Country: "kenya", Region: "nairobi", Category: "grocery"},
			{Provider: "globex", Country: "nigeria", Region: "lagos", Category: "grocery"},
			{Provider: "naira-mart", Country: "nigeria", Region: "abuja", Category: "grocery"},
			{Provider: "homes", Country: "ghana", Region: "greater accra", Category: "realestate"},
			{Provider: "castle", Country: "ghana", Region: "ashanti", Category: "realestate"},
		},
	}

	for rel, rows := range prices {
		write(logger, *dir, rel, rows)
	}
	for rel, rows := range listings {
		write(logger, *dir, rel, rows)
	}
	for rel, rows := range providers {
		write(logger, *dir, rel, rows)
	}
	logger.Info().Str("dir", *dir).Msg("demo datasets written")
}

func write[T any](logger zerolog.Logger, dir, rel string, rows []T) {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Fatal().Err(err).Str("path", rel).Msg("creating partition directory failed")
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		logger.Fatal().Err(err).Str("path", rel).Msg("writing partition failed")
	}
	logger.Info().Str("path", rel).Int("rows", len(rows)).Msg("partition written")
}
