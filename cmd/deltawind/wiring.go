package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/deltawind/internal/adapters/casedoc"
	"github.com/PabloGalante/deltawind/internal/adapters/llm"
	badgerstore "github.com/PabloGalante/deltawind/internal/adapters/storage/badger"
	firestorestore "github.com/PabloGalante/deltawind/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/deltawind/internal/adapters/storage/memory"
	"github.com/PabloGalante/deltawind/internal/app/completion"
	"github.com/PabloGalante/deltawind/internal/app/conversation"
	"github.com/PabloGalante/deltawind/internal/config"
	"github.com/PabloGalante/deltawind/internal/domain"
	"github.com/PabloGalante/deltawind/internal/observability"
)

// app is the wired service plus whatever must be closed on exit.
type app struct {
	cfg     *config.Config
	svc     *conversation.Service
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := observability.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	log := observability.Logger()

	backend, err := llm.New(ctx, llm.Config{
		Provider:    cfg.Provider,
		APIKey:      cfg.APIKey(),
		BaseURL:     cfg.OpenAIBaseURL,
		Project:     cfg.GCPProjectID,
		Location:    cfg.GCPLocation,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("completion backend: %w", err)
	}
	log.Info("completion backend ready", "provider", cfg.Provider, "model", cfg.ModelName())

	client := completion.NewClient(backend, completion.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Timeout:     cfg.Timeout,
	})

	a := &app{cfg: cfg}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	src := casedoc.Resolve(ctx, cfg.CaseCandidates()...)
	a.svc = conversation.NewService(client, store,
		conversation.WithModel(cfg.ModelName()),
		conversation.WithCase(src.Document, src.Case),
	)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (domain.SessionStore, error) {
	log := observability.Logger()

	switch a.cfg.StorageBackend {
	case config.StorageBadger:
		db, err := badgerstore.Open(a.cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		log.Info("using badger storage", "path", a.cfg.BadgerPath)
		return badgerstore.NewSessionStore(db, log), nil

	case config.StorageFirestore:
		fs, err := firestorestore.NewStore(ctx, a.cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("error initializing Firestore store: %w", err)
		}
		a.closers = append(a.closers, fs.Close)
		log.Info("using firestore storage", "project", a.cfg.GCPProjectID)
		return fs, nil

	default:
		log.Info("using in-memory storage")
		return memstore.NewSessionStore(), nil
	}
}

// withApp builds the app, runs fn and closes the app.
func withApp(ctx context.Context, fn func(*app) error) (err error) {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
