package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/millionaire/internal/api"
	"github.com/victornm/millionaire/internal/domain"
	"github.com/victornm/millionaire/internal/event"
	"github.com/victornm/millionaire/internal/game"
	"github.com/victornm/millionaire/internal/leaderboard"
	"github.com/victornm/millionaire/internal/ledger"
	"github.com/victornm/millionaire/internal/postgres"
	"github.com/victornm/millionaire/internal/question"
	"github.com/victornm/millionaire/internal/session"
	"github.com/victornm/millionaire/internal/telemetry"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Auth struct {
		Secret string
	}

	Storage struct {
		Driver string
	}

	Questions struct {
		File string
	}

	Redis struct {
		Leaderboard struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Game postgres.Config
	}

	Game struct {
		TimeLimit       time.Duration `mapstructure:"time_limit"`
		Prizes          []int64
		FireproofLevels []int  `mapstructure:"fireproof_levels"`
		HelpScope       string `mapstructure:"help_scope"`
		// Seed makes games reproducible, 0 picks a random seed.
		Seed uint64
	}

	Help struct {
		Friends            []string
		FriendCallTemplate string `mapstructure:"friend_call_template"`
	}
}

// DefaultConfig returns the configuration used for keys missing from the file and environment.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Storage.Driver = StoragePostgres
	c.Redis.Leaderboard.Prefix = "millionaire"
	c.Redis.Pubsub.Prefix = "millionaire"
	c.Game.TimeLimit = game.DefaultTimeLimit
	c.Game.Prizes = game.DefaultPrizes()
	c.Game.FireproofLevels = game.DefaultFireproofLevels()
	c.Game.HelpScope = string(game.HelpScopeQuestion)
	c.Help.Friends = game.DefaultFriends
	c.Help.FriendCallTemplate = game.DefaultFriendCallTemplate
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
		}

		postgres struct {
			game *pgxpool.Pool
		}
	}

	service struct {
		engine      *game.Engine
		questions   game.QuestionSource
		ledger      session.Ledger
		store       session.Store
		session     *session.Service
		leaderboard *leaderboard.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()
	telemetry.MonitorGames(s.eb)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.initService(); err != nil {
		return nil, fmt.Errorf("server: init service: %w", err)
	}

	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if s.c.Storage.Driver == StoragePostgres {
		if err := s.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}

	return nil
}

func (s *Server) initRedis() error {
	connect := func(addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard.Addrs, s.c.Redis.Leaderboard.Pass)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	return nil
}

func (s *Server) initPostgres() (err error) {
	s.infra.postgres.game, err = postgres.Connect(s.c.Postgres.Game, telemetry.PostgresTracer())
	if err != nil {
		return fmt.Errorf("game: %w", err)
	}

	return nil
}

func (s *Server) initService() error {
	prizes, err := game.NewPrizeTable(s.c.Game.Prizes, s.c.Game.FireproofLevels)
	if err != nil {
		return fmt.Errorf("prizes: %w", err)
	}

	scope := game.HelpScope(s.c.Game.HelpScope)
	if scope != game.HelpScopeQuestion && scope != game.HelpScopeGame {
		return fmt.Errorf("unknown help scope %q", scope)
	}

	rnd := game.DefaultRand()
	if s.c.Game.Seed != 0 {
		rnd = game.NewSeededRand(s.c.Game.Seed)
	}

	s.service.engine = game.NewEngine(game.Config{
		Prizes:             prizes,
		TimeLimit:          s.c.Game.TimeLimit,
		HelpScope:          scope,
		Rand:               rnd,
		Friends:            s.c.Help.Friends,
		FriendCallTemplate: s.c.Help.FriendCallTemplate,
	})

	switch s.c.Storage.Driver {
	case StorageMemory:
		err = s.initMemoryStorage()
	case StoragePostgres:
		err = s.initPostgresStorage()
	default:
		err = fmt.Errorf("unknown storage driver %q", s.c.Storage.Driver)
	}
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	s.service.session = session.NewService(session.Config{
		Engine:    s.service.engine,
		Store:     s.service.store,
		Questions: s.service.questions,
		Ledger:    s.service.ledger,
		EventBus:  s.eb,
	})

	s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
		EventBus: s.eb,
		Redis:    s.infra.redis.leaderboard,
		Prefix:   s.c.Redis.Leaderboard.Prefix,
	})

	return nil
}

func (s *Server) initMemoryStorage() error {
	if s.c.Questions.File == "" {
		return fmt.Errorf("questions.file is required with the %s driver", StorageMemory)
	}

	pool, err := question.LoadFile(s.c.Questions.File)
	if err != nil {
		return err
	}

	s.checkLevels(pool.Levels())

	s.service.questions = pool
	s.service.ledger = ledger.NewMemory()
	s.service.store = session.NewMemoryStore()
	return nil
}

func (s *Server) initPostgresStorage() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := s.infra.postgres.game
	repo := question.NewRepository(question.Config{DB: db})

	counts, err := repo.CountByLevel(ctx)
	if err != nil {
		return err
	}

	// an empty question table is seeded from the questions file, if any
	if len(counts) == 0 && s.c.Questions.File != "" {
		if counts, err = s.seedQuestions(ctx, repo); err != nil {
			return err
		}
	}

	levels := make([]int, 0, len(counts))
	for l := range counts {
		levels = append(levels, l)
	}
	s.checkLevels(levels)

	s.service.questions = repo
	s.service.ledger = ledger.NewService(ledger.Config{DB: db})
	s.service.store = session.NewPostgresStore(db)
	return nil
}

func (s *Server) seedQuestions(ctx context.Context, repo *question.Repository) (map[int]int, error) {
	pool, err := question.LoadFile(s.c.Questions.File)
	if err != nil {
		return nil, err
	}

	var qs []domain.Question
	for _, l := range pool.Levels() {
		lqs, _ := pool.QuestionsAtLevel(ctx, l)
		for _, q := range lqs {
			q.ID = 0
			qs = append(qs, q)
		}
	}

	if err := repo.Insert(ctx, qs); err != nil {
		return nil, fmt.Errorf("seed questions: %w", err)
	}

	slog.InfoContext(ctx, "server: questions seeded", "file", s.c.Questions.File, "count", len(qs))

	return repo.CountByLevel(ctx)
}

// checkLevels warns about ladder levels without questions, games cannot be created until they are filled.
func (s *Server) checkLevels(levels []int) {
	have := make(map[int]bool, len(levels))
	for _, l := range levels {
		have[l] = true
	}

	for l := range s.service.engine.Prizes().Levels() {
		if !have[l] {
			slog.Warn("server: no questions at level", "level", l)
		}
	}
}

func (s *Server) initAPI() {
	gin.SetMode(gin.ReleaseMode)

	e := gin.New()
	e.Use(gin.Recovery(), telemetry.GinLogger(), cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	api.New(api.Config{
		HTTP:         e,
		EventBus:     s.eb,
		Session:      s.service.session,
		Leaderboard:  s.service.leaderboard,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
		Secret:       []byte(s.c.Auth.Secret),
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	if s.infra.postgres.game != nil {
		s.infra.postgres.game.Close()
	}
	for _, r := range []redis.UniversalClient{s.infra.redis.leaderboard, s.infra.redis.pubsub} {
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
