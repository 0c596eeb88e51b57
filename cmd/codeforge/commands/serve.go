package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/codeforge-edu/codeforge/internal/catalog"
	"github.com/codeforge-edu/codeforge/internal/config"
	"github.com/codeforge-edu/codeforge/internal/server"
	"github.com/codeforge-edu/codeforge/internal/store"
	"github.com/codeforge-edu/codeforge/playground"
)

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	// Parse arguments
	dir := "."
	var configPath string
	var port string
	var host string
	var watch *bool
	var operator string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--watch" || arg == "-w" {
			watchVal := true
			watch = &watchVal
		} else if arg == "--port" || arg == "-p" {
			if i+1 < len(args) {
				port = args[i+1]
				i++
			}
		} else if arg == "--host" {
			if i+1 < len(args) {
				host = args[i+1]
				i++
			}
		} else if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		} else if arg == "--operator" || arg == "-o" {
			if i+1 < len(args) {
				operator = args[i+1]
				i++
			}
		} else if !strings.HasPrefix(arg, "-") {
			// Positional argument (directory)
			dir = arg
		}
	}

	// Set operator identity (defaults to $USER if not specified)
	config.SetOperator(operator)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", dir)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Load configuration
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("📝 Using config: %s\n", configPath)
	} else {
		cfg, err = config.LoadFromDir(absDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// CLI flags override config
	if port != "" {
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port: %s", port)
		}
		cfg.Server.Port = portInt
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if watch != nil {
		cfg.Features.HotReload = *watch
	}

	// Relative store and content paths resolve against the served directory
	if cfg.Store.Type == "sqlite" && cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(absDir, cfg.Store.Path)
	}
	if cfg.Catalog.ContentDir != "" && !filepath.IsAbs(cfg.Catalog.ContentDir) {
		cfg.Catalog.ContentDir = filepath.Join(absDir, cfg.Catalog.ContentDir)
	}

	fmt.Printf("🛠  CodeForge Playground Server\n\n")
	fmt.Printf("Serving: %s\n", absDir)

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var cat *catalog.Catalog
	if cfg.Features.Catalog {
		cat, err = catalog.New(cfg.Catalog.ContentDir, catalogDB(cfg, st))
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		fmt.Printf("Catalog: %d course(s) from %s\n", len(cat.Courses()), cfg.Catalog.ContentDir)
	}

	srv := server.New(cfg, st, cat)
	defer srv.Close()

	if cfg.Features.HotReload && cat != nil {
		if err := srv.EnableWatch(cfg.Server.Debug); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Printf("👀 Watch mode enabled - catalog content reloads on change\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("\n🌐 Server running at http://%s\n", addr)
	if op := config.GetOperator(); op != "" {
		fmt.Printf("👤 Operator: %s\n", op)
	}
	if len(cfg.GetTokens()) == 0 {
		fmt.Printf("🔓 Single-user mode (no auth tokens configured)\n")
	} else {
		fmt.Printf("🔐 Bearer token auth enabled (%d token(s))\n", len(cfg.GetTokens()))
	}
	fmt.Printf("⚡ Gzip compression enabled\n")
	fmt.Printf("Press Ctrl+C to stop\n\n")

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}

// openStore builds the configured snippet store. The second return value
// closes it.
func openStore(cfg *config.Config) (playground.Store, func(), error) {
	switch cfg.Store.Type {
	case "pg":
		dsn := cfg.Store.GetDSN()
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		if dsn == "" {
			return nil, nil, fmt.Errorf("store.type is pg but no DSN configured (set store.dsn or DATABASE_URL)")
		}
		st, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		fmt.Printf("Store: postgres\n")
		return st, func() { st.Close() }, nil
	default:
		path := cfg.Store.Path
		if path == "" {
			path = "./codeforge.db"
		}
		st, err := store.NewSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		fmt.Printf("Store: sqlite (%s)\n", path)
		return st, func() { st.Close() }, nil
	}
}

// catalogDB returns the database handle shared with the catalog, or nil when
// the store backend cannot provide one. Challenge and leaderboard queries use
// sqlite placeholder syntax, so only the sqlite store shares its handle; with
// postgres the catalog serves markdown courses only.
func catalogDB(cfg *config.Config, st playground.Store) *sql.DB {
	if cfg.Store.Type != "sqlite" {
		return nil
	}
	if s, ok := st.(*store.SQLiteStore); ok {
		return s.DB()
	}
	return nil
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
