package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erazemk/trailpack/internal/actions"
	"github.com/erazemk/trailpack/internal/api"
	"github.com/erazemk/trailpack/internal/auth"
	"github.com/erazemk/trailpack/internal/csvexport"
	"github.com/erazemk/trailpack/internal/db"
	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/persist"
	"github.com/erazemk/trailpack/internal/share"
	"github.com/erazemk/trailpack/internal/state"
	"github.com/erazemk/trailpack/internal/store"
	"github.com/erazemk/trailpack/internal/websocket"
)

// errHelp is returned after -h printed the command usage.
var errHelp = errors.New("help requested")

// options holds the flags shared by every command.
type options struct {
	dbPath  string
	logPath string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (o *options) register(fs *flag.FlagSet) {
	def := envOr("TRAILPACK_DB", "trailpack.sqlite3")
	fs.StringVar(&o.dbPath, "db", def, "")
	fs.StringVar(&o.dbPath, "d", def, "")
	fs.StringVar(&o.logPath, "log", "", "")
	fs.StringVar(&o.logPath, "l", "", "")
}

const commonFlags = `  -d, -db <path>          SQLite database path (default: trailpack.sqlite3, env TRAILPACK_DB)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit
`

// parse parses args and installs the logger. The returned cleanup closes
// the log file and may be nil.
func parse(fs *flag.FlagSet, o *options, args []string, quiet bool) (func(), error) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, errHelp
		}
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return setupLogger(o.logPath, quiet)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	var o options
	o.register(fs)

	var passcode string
	fs.StringVar(&passcode, "passcode", "", "")
	fs.StringVar(&passcode, "p", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: trailpack init [flags]

Flags:
  -p, -passcode <code>    owner passcode (default: generated and printed once)
`+commonFlags)
	}

	closeLog, err := parse(fs, &o, args, false)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := db.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		return err
	}

	ctx := context.Background()
	existing, err := store.GetPasscodeHash(ctx, database)
	if err != nil {
		return err
	}
	if existing != "" && passcode == "" {
		return fmt.Errorf("database %s already has a passcode, pass -passcode to replace it", o.dbPath)
	}

	generated := passcode == ""
	if generated {
		if passcode, err = generatePasscode(16); err != nil {
			return fmt.Errorf("generating passcode: %w", err)
		}
	}
	if err := setPasscode(ctx, database, passcode); err != nil {
		return err
	}

	printInitResult(o.dbPath, passcode, generated)
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var o options
	o.register(fs)

	addrDefault := envOr("TRAILPACK_ADDR", ":8080")
	var addr, baseURL, origins string
	fs.StringVar(&addr, "addr", addrDefault, "")
	fs.StringVar(&addr, "a", addrDefault, "")
	fs.StringVar(&baseURL, "base", "", "")
	fs.StringVar(&baseURL, "b", "", "")
	fs.StringVar(&origins, "origin", "", "")
	fs.StringVar(&origins, "o", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: trailpack serve [flags]

Flags:
  -a, -addr <host:port>   listen address (default: :8080, env TRAILPACK_ADDR)
  -b, -base <url>         public URL used in share links (default: from request)
  -o, -origin <hosts>     comma-separated extra websocket origins
`+commonFlags)
	}

	closeLog, err := parse(fs, &o, args, false)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(o.dbPath); os.IsNotExist(err) {
		passcode, err := initDatabase(o.dbPath)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(o.dbPath, passcode, true)
		fmt.Println()
	}

	database, err := db.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.Migrate(database); err != nil {
		return err
	}
	slog.Info("database ready", "path", o.dbPath)

	ctx := context.Background()
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return err
	}

	logger := slog.Default()
	gateway := persist.NewGateway(store.DocumentBackend{DB: database}, logger)
	doc := gateway.Load(ctx)

	if n, err := store.DeleteUnreferencedPhotos(ctx, database, store.ReferencedPhotos(doc)); err != nil {
		slog.Warn("failed to clean up photos", "error", err)
	} else if n > 0 {
		slog.Info("removed unreferenced photos", "count", n)
	}

	st := state.New(doc, logger)
	gateway.Attach(st)
	history := state.NewHistory(st, state.HistoryLimit)
	hub := websocket.NewHub(logger)
	hub.Attach(st)

	handler := api.NewRouter(api.Config{
		DB:             database,
		JWTSecret:      jwtSecret,
		Store:          st,
		History:        history,
		Actions:        actions.New(st, history, logger),
		Hub:            hub,
		Logger:         logger,
		BaseURL:        baseURL,
		OriginPatterns: splitList(origins),
	})

	// No WriteTimeout: /ws connections stay open.
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}

	if err := gateway.LastSaveError(); err != nil {
		slog.Warn("last save failed", "error", err)
	}
	slog.Info("server stopped, closing database")
	return nil
}

func cmdShare(args []string) error {
	fs := flag.NewFlagSet("share", flag.ContinueOnError)
	var o options
	o.register(fs)

	var walkRef, baseURL string
	fs.StringVar(&walkRef, "walk", "", "")
	fs.StringVar(&walkRef, "w", "", "")
	fs.StringVar(&baseURL, "base", "http://localhost:8080/", "")
	fs.StringVar(&baseURL, "b", "http://localhost:8080/", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: trailpack share -walk <id|name> [flags]

Flags:
  -w, -walk <id|name>     walk to share (required)
  -b, -base <url>         base URL of the link (default: http://localhost:8080/)
`+commonFlags)
	}

	closeLog, err := parse(fs, &o, args, true)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}
	if walkRef == "" {
		fs.Usage()
		return errors.New("-walk is required")
	}

	doc, err := loadDocument(o.dbPath)
	if err != nil {
		return err
	}
	walk, err := findWalk(doc, walkRef)
	if err != nil {
		return err
	}

	token, err := share.Encode(&walk)
	if err != nil {
		return fmt.Errorf("encoding walk %q: %w", walk.Name, err)
	}
	link, err := share.Link(baseURL, token)
	if err != nil {
		return err
	}
	fmt.Println(link)
	return nil
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var o options
	o.register(fs)

	var walkRef, unit string
	fs.StringVar(&walkRef, "walk", "", "")
	fs.StringVar(&walkRef, "w", "", "")
	fs.StringVar(&unit, "unit", "", "")
	fs.StringVar(&unit, "u", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: trailpack export [flags]

Flags:
  -w, -walk <id|name>     walk to export (default: the whole inventory)
  -u, -unit <g|kg|lb|oz>  weight unit (default: the saved setting)
`+commonFlags)
	}

	closeLog, err := parse(fs, &o, args, true)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	doc, err := loadDocument(o.dbPath)
	if err != nil {
		return err
	}

	u := doc.Settings.WeightUnit
	if unit != "" {
		if u, err = model.ParseWeightUnit(unit); err != nil {
			return err
		}
	}

	var rows [][]string
	if walkRef == "" {
		rows = csvexport.InventoryRows(doc, u)
	} else {
		walk, err := findWalk(doc, walkRef)
		if err != nil {
			return err
		}
		rows = csvexport.WalkRows(doc, walk, u)
	}

	out, err := csvexport.Format(rows)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// loadDocument reads the saved document from an existing database.
func loadDocument(path string) (model.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return model.Document{}, fmt.Errorf("database %s not found, run init first", path)
	}
	database, err := db.Open(path)
	if err != nil {
		return model.Document{}, err
	}
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		return model.Document{}, err
	}
	return persist.NewGateway(store.DocumentBackend{DB: database}, nil).Load(context.Background()), nil
}

// findWalk matches ref against walk ids first, then names ignoring case.
func findWalk(doc model.Document, ref string) (model.Walk, error) {
	if i := doc.FindWalk(ref); i >= 0 {
		return doc.Walks[i], nil
	}
	for _, w := range doc.Walks {
		if strings.EqualFold(w.Name, ref) {
			return w, nil
		}
	}
	return model.Walk{}, fmt.Errorf("walk %q not found", ref)
}

// initDatabase creates a new database with a generated passcode.
func initDatabase(path string) (string, error) {
	database, err := db.Open(path)
	if err != nil {
		return "", err
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		os.Remove(path)
		return "", err
	}

	passcode, err := generatePasscode(16)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("generating passcode: %w", err)
	}
	if err := setPasscode(context.Background(), database, passcode); err != nil {
		os.Remove(path)
		return "", err
	}
	return passcode, nil
}

func setPasscode(ctx context.Context, database *sql.DB, passcode string) error {
	hash, err := auth.HashPasscode(passcode)
	if err != nil {
		return fmt.Errorf("hashing passcode: %w", err)
	}
	return store.SetPasscodeHash(ctx, database, hash)
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, passcode string, generated bool) {
	fmt.Printf("Database ready: %s\n", dbPath)
	fmt.Println("Owner passcode set.")
	if generated {
		fmt.Println()
		fmt.Printf("  Passcode: %s\n", passcode)
		fmt.Println()
		fmt.Println("Save this passcode, it cannot be recovered.")
		fmt.Println("Run init again with -passcode to replace it.")
	}
}

// generatePasscode creates a random passcode of the given length.
func generatePasscode(length int) (string, error) {
	const charset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
