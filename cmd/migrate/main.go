package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kdimtricp/vidportal/internal/database"
	"github.com/kdimtricp/vidportal/internal/metadata"
)

func main() {
	var (
		from   = flag.String("from", "./data/videos.json", "Source store: a .json file or a .db SQLite file")
		to     = flag.String("to", "./data/videos.db", "Target store: a .json file or a .db SQLite file")
		status = flag.Bool("status", false, "Show migration status only")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	source, err := openStore(*from)
	if err != nil {
		log.Fatal().Err(err).Str("path", *from).Msg("Failed to open source store")
	}
	defer source.Close()

	target, err := openStore(*to)
	if err != nil {
		log.Fatal().Err(err).Str("path", *to).Msg("Failed to open target store")
	}
	defer target.Close()

	ctx := context.Background()
	migrator := database.NewMigrator(source, target)

	if *status {
		st, err := migrator.Status(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get migration status")
		}
		fmt.Printf("Migration Status: %s -> %s\n", *from, *to)
		fmt.Println("=================")
		fmt.Printf("Total:   %d\n", st.Total)
		fmt.Printf("Applied: %d\n", st.Applied)
		fmt.Printf("Pending: %d\n", st.Pending)
		return
	}

	copied, err := migrator.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	fmt.Printf("Migrated %d videos from %s to %s\n", copied, *from, *to)
}

func openStore(path string) (metadata.Store, error) {
	if strings.HasSuffix(path, ".json") {
		return metadata.NewJSONStore(path)
	}
	db, err := database.NewDB(database.Config{SQLitePath: path})
	if err != nil {
		return nil, err
	}
	return sqliteStore{database.NewVideoRepository(db), db}, nil
}

// sqliteStore closes the underlying database along with the repository.
type sqliteStore struct {
	*database.VideoRepository
	db *database.DB
}

func (s sqliteStore) Close() error {
	return s.db.Close()
}
