package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	apimiddleware "freshkart/internal/adapter/api/middleware"
	"freshkart/internal/adapter/repository"
	"freshkart/internal/adapter/repository/memory"
	"freshkart/internal/domain/entity"
	domainrepo "freshkart/internal/domain/repository"
	"freshkart/internal/infrastructure/firebase"
	"freshkart/internal/infrastructure/storage"
	"freshkart/internal/usecase"
	"freshkart/pkg/config"
	"freshkart/pkg/logger"
)

// backends holds the stores and external clients selected by config.
type backends struct {
	users         domainrepo.UserRepository
	products      domainrepo.ProductRepository
	conversations domainrepo.ConversationRepository
	messages      domainrepo.MessageRepository
	typing        domainrepo.TypingRepository

	verifier    apimiddleware.TokenVerifier
	authClient  *firebase.FirebaseAuthClient
	attachments usecase.AttachmentVerifier

	closers []func() error
}

func newBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}
	var err error
	switch cfg.StoreBackend {
	case config.StoreMemory:
		err = b.useMemory(ctx, cfg)
	default:
		err = b.useFirestore(ctx, cfg)
	}
	if err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backends) useMemory(ctx context.Context, cfg *config.Config) error {
	if cfg.Environment == "production" {
		return fmt.Errorf("the memory store is not allowed in production")
	}
	store := memory.NewStore()
	b.users = memory.NewUserRepository(store)
	b.products = memory.NewProductRepository(store)
	b.conversations = memory.NewConversationRepository(store)
	b.messages = memory.NewMessageRepository(store)
	b.typing = memory.NewTypingRepository(store)
	b.verifier = firebase.DevTokenVerifier{}

	if cfg.TypingBackend == config.TypingRedis {
		if err := b.useRedisTyping(ctx, cfg); err != nil {
			return err
		}
	}

	logger.Warn("Using the in-memory store with development tokens; data is lost on restart")
	return seedDemoData(ctx, b.users, b.products)
}

func (b *backends) useFirestore(ctx context.Context, cfg *config.Config) error {
	opts := credentialOptions(cfg)

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		return fmt.Errorf("initialize firebase: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("initialize firebase auth: %w", err)
	}
	b.authClient = firebase.NewFirebaseAuthClient(authClient)
	b.verifier = b.authClient

	client, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		return fmt.Errorf("create firestore client: %w", err)
	}
	b.closers = append(b.closers, client.Close)

	b.users = repository.NewFirestoreUserRepository(client)
	b.products = repository.NewFirestoreProductRepository(client)
	b.conversations = repository.NewFirestoreConversationRepository(client)
	b.messages = repository.NewFirestoreMessageRepository(client)

	switch cfg.TypingBackend {
	case config.TypingRedis:
		if err := b.useRedisTyping(ctx, cfg); err != nil {
			return err
		}
	default:
		b.typing = repository.NewFirestoreTypingRepository(client)
	}

	if cfg.StorageBucket != "" {
		gcs, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
		if err != nil {
			return fmt.Errorf("initialize cloud storage: %w", err)
		}
		b.closers = append(b.closers, gcs.Close)
		b.attachments = gcs
	}
	return nil
}

func (b *backends) useRedisTyping(ctx context.Context, cfg *config.Config) error {
	cli := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		cli.Close()
		return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	b.closers = append(b.closers, cli.Close)
	b.typing = repository.NewRedisTypingRepository(cli)
	return nil
}

func credentialOptions(cfg *config.Config) []option.ClientOption {
	switch {
	case cfg.ServiceAccountJSON != "":
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))}
	case cfg.ServiceAccountPath != "":
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.ServiceAccountPath)}
	}
	logger.Info("Using application default credentials")
	return nil
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("Failed to close backend: %v", err)
		}
	}
	b.closers = nil
}

// seedDemoData gives the memory store a buyer, a seller and a listing so
// the dev tokens "dev:demo-buyer" and "dev:demo-seller" can chat at once.
func seedDemoData(ctx context.Context, users domainrepo.UserRepository, products domainrepo.ProductRepository) error {
	now := time.Now().UTC()
	seed := []*entity.User{
		{ID: "demo-buyer", Name: "Demo Buyer", Role: entity.RoleBuyer, CreatedAt: now},
		{ID: "demo-seller", Name: "Demo Farm", Role: entity.RoleSeller, CreatedAt: now},
	}
	for _, u := range seed {
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	return products.Create(ctx, &entity.Product{
		ID:       "demo-tomatoes",
		Name:     "Heirloom Tomatoes",
		SellerID: "demo-seller",
		Price:    40,
		Unit:     "kg",
		Status:   "active",
	})
}
