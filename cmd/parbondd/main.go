package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"parbond/config"
	"parbond/ledger"
	"parbond/native/bond"
	"parbond/observability/logging"
	"parbond/rpc"
	"parbond/token"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./parbond.toml", "path to parbondd config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup("parbondd", cfg.Environment, cfg.LogFile)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(cfg.DataDir, "settlement.db")), &gorm.Config{})
	if err != nil {
		log.Fatalf("open settlement db: %v", err)
	}
	if err := ledger.AutoMigrate(db); err != nil {
		log.Fatalf("migrate settlement db: %v", err)
	}
	recorder := ledger.NewRecorder(db, logger)

	params, err := cfg.EngineParams()
	if err != nil {
		log.Fatalf("engine params: %v", err)
	}
	custody, owner, timelock := cfg.Addresses()
	referenceAddr, bondAddr := cfg.TokenAddresses()

	reference := token.NewLedger("REF", referenceAddr)
	bonds := token.NewLedger("BOND", bondAddr)
	directory := token.NewDirectory(custody)
	directory.Register(reference)
	directory.Register(bonds)

	engine, err := bond.NewEngine(custody, owner, timelock, params)
	if err != nil {
		log.Fatalf("construct engine: %v", err)
	}
	engine.SetReferenceToken(referenceAddr, reference.Handle(custody))
	engine.SetBondToken(bondAddr, bonds.Handle(custody))
	engine.SetRoles(bond.NewRoleSet())
	engine.SetTokenDirectory(directory)
	engine.SetEmitter(recorder)

	api := rpc.NewServer(engine, recorder, logger).
		WithRateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("parbondd listening", "addr", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("parbondd shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
