package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/velikanov/bookshelf/internal/handler"
	"github.com/velikanov/bookshelf/internal/library"
	"github.com/velikanov/bookshelf/internal/messages"
	"github.com/velikanov/bookshelf/internal/resolver"
	"github.com/velikanov/bookshelf/internal/rewriter"
	"github.com/velikanov/bookshelf/internal/service"
	"github.com/velikanov/bookshelf/internal/storage"
)

type config struct {
	BooksDir     string `json:"books_dir"`
	Addr         string `json:"addr"`
	DBPath       string `json:"db_path"`
	MessagesPath string `json:"messages_path"`
	Debug        bool   `json:"debug"`
}

func readCfg(path string) (*config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c config
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return nil, err
	}
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if c.DBPath == "" {
		c.DBPath = "./positions.db"
	}
	return &c, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "./cfg.json"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := readCfg(cfgPath)
	if err != nil {
		return err
	}

	// the scan must finish before any request is served; an unreadable
	// books directory is the one fatal load condition
	lib, err := library.Scan(cfg.BooksDir)
	if err != nil {
		return err
	}
	log.Printf("loaded %d books from %s", lib.Len(), cfg.BooksDir)

	var store *storage.Storage
	if cfg.Debug {
		store, err = storage.NewTempStorage()
	} else {
		store, err = storage.NewStorage(cfg.DBPath)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	msgs := messages.Default()
	if cfg.MessagesPath != "" {
		watcher, err := msgs.LoadAndWatch(cfg.MessagesPath)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	rw := rewriter.New(resolver.Scheme)
	res := resolver.New(lib, rw)
	svc := service.NewService(lib, store)

	mx := chi.NewRouter()
	handler.NewHandlers(svc, res, msgs).Register(mx)

	srv := &http.Server{Addr: cfg.Addr, Handler: mx}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	log.Printf("serving on %s", cfg.Addr)

	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-terminate:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
