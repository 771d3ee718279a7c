// sync-events rebuilds the Elasticsearch event index from Postgres. Run it
// after enabling search on an existing deployment or when the index drifts.
package main

import (
	"context"
	"time"

	"rsvp/internal/config"
	"rsvp/internal/database"
	"rsvp/internal/logger"
	"rsvp/internal/repository"
	"rsvp/internal/search"
)

const pageSize = 500

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if !cfg.Elasticsearch.Enabled {
		logger.Fatal("Elasticsearch is disabled, set ELASTICSEARCH_ENABLED=true")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", "error", err)
	}

	repo := repository.NewEventRepository(db)
	ctx := context.Background()
	start := time.Now()

	indexed := 0
	for page := 1; ; page++ {
		events, err := repo.List(ctx, repository.ListFilter{Page: page, PageSize: pageSize})
		if err != nil {
			logger.Fatal("Failed to list events", "page", page, "error", err)
		}
		if len(events) == 0 {
			break
		}

		for i := range events {
			if err := es.IndexEvent(ctx, &events[i]); err != nil {
				logger.Fatal("Failed to index event", "event_id", events[i].EventID, "error", err)
			}
			indexed++
		}
		logger.Get().Info("Indexed page", "page", page, "events", len(events))
	}

	total, err := es.Count(ctx, "", "", "")
	if err != nil {
		logger.Fatal("Failed to count indexed events", "error", err)
	}
	if int(total) < indexed {
		logger.Fatal("Index is missing documents after reindex",
			"indexed", indexed, "counted", total)
	}

	logger.Get().Info("Reindex complete",
		"events", indexed, "counted", total, "took", time.Since(start))
}
