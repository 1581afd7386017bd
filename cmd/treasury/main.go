package main

import (
	"context"
	"errors"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/redis/go-redis/v9"

	"treasury-faucet/faucet"
	"treasury-faucet/faucet/application"
	"treasury-faucet/faucet/domain"
	"treasury-faucet/faucet/infra"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	policy, err := faucet.LoadPolicy(cfg.policyFile)
	if err != nil {
		log.Fatalf("policy error: %v", err)
	}
	epochCfg := policy.EpochConfig()
	if cfg.epochSeconds > 0 {
		epochCfg.EpochLength = time.Duration(cfg.epochSeconds) * time.Second
	}
	if cfg.defaultLimit != "" {
		limit, ok := newBig(cfg.defaultLimit)
		if !ok {
			log.Fatalf("invalid DEFAULT_LIMIT: %q", cfg.defaultLimit)
		}
		epochCfg.DefaultLimit = limit
	}

	state := infra.NewMemoryState(epochCfg)
	gate := infra.NewMemoryGate()
	if err := policy.Apply(gate, state, cfg.selfAddress); err != nil {
		log.Fatalf("policy apply error: %v", err)
	}

	var transferor domain.Transferor
	if cfg.settleURL != "" {
		transferor = &infra.HTTPSettler{URL: cfg.settleURL}
	} else {
		transferor = infra.NewMemoryLedger()
	}

	invoker := &infra.HTTPMintInvoker{BaseURL: cfg.mintTargetBaseURL}

	var events domain.EventSink
	if cfg.eventsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.eventsRedisAddr,
			Password: cfg.eventsRedisPassword,
			DB:       cfg.eventsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis events ping error: %v", err)
		}

		events = infra.NewRedisEvents(
			rdb,
			infra.WithEventsPrefix(cfg.eventsPrefix),
			infra.WithEventsTTL(cfg.eventsTTL),
			infra.WithEventsBucket(cfg.eventsBucket),
			infra.WithEventsTrackUsers(cfg.eventsTrackUsers),
			infra.WithEventsStream(cfg.eventsStream, cfg.eventsStreamMaxLen),
		)
	} else {
		events = infra.NewMemoryEvents()
	}

	svcs := faucet.Services{
		Throttle: application.Throttle{State: state},
		Withdraw: application.WithdrawalService{State: state, Gate: gate, Transfer: transferor, Events: events},
		Mint: application.MintProxyService{
			Gate:    gate,
			Invoker: invoker,
			Events:  events,
			Slots:   infra.NewChanPool(cfg.mintMaxInflight, infra.WithAcquireTimeout(cfg.mintAcquireTimeout)),
		},
		Roles: application.RoleManager{Gate: gate, Self: cfg.selfAddress, Events: events},
		Admin: application.Admin{State: state, Gate: gate, Events: events},
		Pool:  application.Pool{State: state},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	h := faucet.Handler(faucet.Options{Services: svcs, CallerHeader: cfg.callerHeader})
	if cfg.rateEnabled {
		store := infra.NewRateStore(cfg.rateRPS, cfg.rateBurst)
		store.StartJanitor(ctx)
		h = faucet.RateMiddleware(faucet.RateOptions{
			Store:               store,
			CallerHeader:        cfg.callerHeader,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
		})(h)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("treasury listening on %s self=%s", cfg.listenAddr, cfg.selfAddress.Hex())
	log.Printf("epoch: length=%s defaultLimit=%s", epochCfg.EpochLength, epochCfg.DefaultLimit)
	log.Printf("mint: targetBase=%q maxInflight=%d acquireTimeout=%s", cfg.mintTargetBaseURL, cfg.mintMaxInflight, cfg.mintAcquireTimeout)
	log.Printf("rate: enabled=%v rps=%.3f burst=%d", cfg.rateEnabled, cfg.rateRPS, cfg.rateBurst)
	log.Printf("events: redisAddr=%q bucket=%q stream=%q trackUsers=%v", cfg.eventsRedisAddr, cfg.eventsBucket, cfg.eventsStream, cfg.eventsTrackUsers)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	listenAddr   string
	callerHeader string
	selfAddress  common.Address
	policyFile   string
	epochSeconds int64
	defaultLimit string

	mintTargetBaseURL  string
	mintMaxInflight    int
	mintAcquireTimeout time.Duration

	settleURL string

	rateEnabled bool
	rateRPS     float64
	rateBurst   int
	retryAfter  time.Duration
	addHeaders  bool

	eventsRedisAddr     string
	eventsRedisPassword string
	eventsRedisDB       int
	eventsPrefix        string
	eventsTTL           time.Duration
	eventsBucket        string
	eventsTrackUsers    bool
	eventsStream        string
	eventsStreamMaxLen  int64
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.callerHeader = getenvDefault("CALLER_HEADER", faucet.DefaultCallerHeader)
	cfg.policyFile = os.Getenv("POLICY_FILE")
	cfg.epochSeconds = int64(getenvIntDefault("EPOCH_SECONDS", 0))
	cfg.defaultLimit = os.Getenv("DEFAULT_LIMIT")

	selfHex := getenvDefault("SELF_ADDRESS", "0x00000000000000000000000000000000000fa0ce")
	if !common.IsHexAddress(selfHex) {
		return config{}, errors.New("SELF_ADDRESS must be a hex address")
	}
	cfg.selfAddress = common.HexToAddress(selfHex)
	if cfg.selfAddress == (common.Address{}) {
		return config{}, errors.New("SELF_ADDRESS must not be the null address")
	}

	cfg.mintTargetBaseURL = os.Getenv("MINT_TARGET_BASE_URL")
	cfg.mintMaxInflight = getenvIntDefault("MINT_MAX_INFLIGHT", 16)
	cfg.mintAcquireTimeout = getenvDurationDefault("MINT_ACQUIRE_TIMEOUT", 2*time.Second)

	cfg.settleURL = os.Getenv("SETTLE_URL")

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 10)
	// IMPORTANTE: o "burst" permite uma rajada inicial de requisições.
	// Com RPS muito baixo (ex: 0.02), o padrão 20 pode dar a impressão de que
	// o limiter não está funcionando, porque as primeiras ~20 passam.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 20
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	cfg.eventsRedisAddr = getenvDefault("EVENTS_REDIS_ADDR", "")
	cfg.eventsRedisPassword = os.Getenv("EVENTS_REDIS_PASSWORD")
	cfg.eventsRedisDB = getenvIntDefault("EVENTS_REDIS_DB", 0)
	cfg.eventsPrefix = getenvDefault("EVENTS_PREFIX", "treasury:events")
	cfg.eventsTTL = getenvDurationDefault("EVENTS_TTL", 24*time.Hour)
	cfg.eventsBucket = getenvDefault("EVENTS_BUCKET", "minute")
	cfg.eventsTrackUsers = getenvBoolDefault("EVENTS_TRACK_USERS", false)
	cfg.eventsStream = os.Getenv("EVENTS_STREAM")
	cfg.eventsStreamMaxLen = int64(getenvIntDefault("EVENTS_STREAM_MAXLEN", 10000))

	if strings.TrimSpace(cfg.mintTargetBaseURL) == "" {
		return config{}, errors.New("MINT_TARGET_BASE_URL is required")
	}
	if cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	if cfg.mintMaxInflight <= 0 {
		return config{}, errors.New("MINT_MAX_INFLIGHT must be > 0")
	}
	return cfg, nil
}

// newBig aceita decimal ("100") ou hex com prefixo ("0x64").
func newBig(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := hexutil.DecodeBig(s)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return new(big.Int).SetString(s, 10)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
