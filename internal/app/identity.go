package app

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	appservice "github.com/turtacn/perimeter/internal/application/service"
	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
	"github.com/turtacn/perimeter/internal/infrastructure/monitoring"
	"github.com/turtacn/perimeter/internal/infrastructure/persistence/gormstore"
	"github.com/turtacn/perimeter/internal/infrastructure/persistence/redis"
	httpapi "github.com/turtacn/perimeter/internal/interfaces/http"
	"github.com/turtacn/perimeter/internal/interfaces/http/handlers"
	"github.com/turtacn/perimeter/pkg/logger"
)

// IdentityService is the credential store answering the auth service.
type IdentityService struct {
	Router  *httpapi.Router
	Service appservice.IdentityAppService

	db    *gormstore.DBConnection
	redis *redis.RedisConnection
}

// NewIdentity opens the database, migrates it, seeds the admin account on an
// empty store and builds the router.
func NewIdentity(ctx context.Context, rt *Runtime) (*IdentityService, error) {
	cfg := rt.Config
	log := rt.Logger
	metrics := monitoring.NewMetricsAdapter(rt.Metrics)

	db, err := gormstore.NewDBConnection(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &IdentityService{db: db}
	pingers := []handlers.Pinger{db}

	var client *goredis.Client
	if cfg.Redis.Enabled {
		s.redis = redis.NewRedisConnection(&cfg.Redis, log)
		if err := s.redis.Ping(ctx); err != nil {
			log.Warn(ctx, "Redis unreachable at startup, serving from the local cache until it recovers", logger.Err(err))
		}
		client = s.redis.Client()
		pingers = append(pingers, s.redis)
	}

	s.Service = appservice.NewIdentityAppService(
		gormstore.NewUserRepository(db.DB()),
		redis.NewUserCache(client, metrics),
		crypto.NewBcryptVerifier(0),
		metrics,
		log,
	)

	id := cfg.Identity
	if id.AdminPassword == "" {
		log.Warn(ctx, "identity.admin_password is empty, no account will be seeded")
	} else if err := s.Service.EnsureAdmin(ctx, id.AdminUsername, id.AdminEmail, id.AdminPassword, id.AdminRoles); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.Router = httpapi.NewIdentityRouter(cfg, log, rt.Observability(),
		handlers.NewHealthHandler(log, nil, pingers...),
		handlers.NewIdentityHandler(s.Service),
	)
	return s, nil
}

// Close releases the database and Redis connections.
func (s *IdentityService) Close() error {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	return s.db.Close()
}
