package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"doc-chat/internal/config"
	"doc-chat/internal/embedding"
	"doc-chat/internal/helper"
	"doc-chat/internal/llmclient"
	"doc-chat/internal/models"
	"doc-chat/internal/session"
	"doc-chat/internal/vectorindex"
	"doc-chat/internal/vectorindex/chromemstore"
	"doc-chat/internal/vectorindex/pgstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	cfgPath := flag.String("config", configFilePath, "Path to the config file")
	files := flag.String("file", "", "Comma separated list of documents to ingest")
	query := flag.String("query", "", "One-shot question to answer")
	chat := flag.Bool("chat", false, "Interactive chat on stdin")
	resetDocs := flag.Bool("reset-docs", false, "Clear stored documents and the persisted index")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx := context.Background()
	sess := newSession(ctx, cfg)

	switch {
	case *resetDocs:
		if err := sess.ClearDocuments(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error clearing documents")
		}
	case *files != "":
		ingestFiles(ctx, sess, strings.Split(*files, ","))
	case *query != "":
		ask(ctx, sess, *query)
	case *chat:
		chatLoop(ctx, sess)
	default:
		log.Fatal().Msg("Please provide -file, -query, -reset-docs or -chat")
	}
}

func newSession(ctx context.Context, cfg *config.Config) *session.Session {
	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	var store vectorindex.Store
	switch cfg.Store.Type {
	case "postgres":
		pg := pgstore.New(pgstore.Connect(cfg.Store.DSN, cfg.Store.Password), cfg.Store.Debug)
		if err := pg.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing postgres store")
		}
		store = pg
	case "chromem", "":
		if err := helper.CreateFolder(cfg.Store.Path); err != nil {
			log.Fatal().Err(err).Msg("Error creating vector database folder")
		}
		store, err = chromemstore.New(cfg.Store.Path, cfg.Store.Collection, false)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating vector database")
		}
	default:
		log.Fatal().Str("type", cfg.Store.Type).Msg("Unknown store type")
	}

	index := vectorindex.New(store, embedder, cfg.Embedding.Model)
	if err := index.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error loading index")
	}

	return session.New(cfg, log.Logger, index, llmclient.New(&cfg.LLM))
}

func ingestFiles(ctx context.Context, sess *session.Session, paths []string) {
	uploads := make([]models.UploadedFile, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			log.Fatal().Err(err).Msgf("Error reading file: %s", p)
		}
		uploads = append(uploads, models.UploadedFile{Name: filepath.Base(p), Data: data})
	}

	previews := sess.Ingest(ctx, uploads)
	helper.PrettyPrint(previews)
}

func ask(ctx context.Context, sess *session.Session, question string) {
	fmt.Printf("%s\n\n", question)

	// snapshots are cumulative, print only the new suffix
	shown := 0
	for snapshot := range sess.Converse(ctx, question) {
		if len(snapshot) < shown {
			fmt.Printf("\n%s", snapshot)
			shown = len(snapshot)
			continue
		}
		fmt.Print(snapshot[shown:])
		shown = len(snapshot)
	}
	fmt.Printf("\n\n")
}

func chatLoop(ctx context.Context, sess *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Type a message and press Enter. /reset clears the conversation, /quit exits.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return
		case "/reset":
			sess.ResetConversation()
			continue
		}
		ask(ctx, sess, line)
	}
}
