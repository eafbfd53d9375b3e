package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/gradeboard/internal/drive"
	"github.com/pavelanni/gradeboard/internal/feedback"
	"github.com/pavelanni/gradeboard/internal/handler"
	appI18n "github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/model"
	"github.com/pavelanni/gradeboard/internal/retry"
	"github.com/pavelanni/gradeboard/internal/runner"
	"github.com/pavelanni/gradeboard/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradeboard",
		Short: "Grading dashboard for student programming submissions",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `gradeboard --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the grading dashboard server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "gradeboard.db", "SQLite database path")
	f.String("drive-url", "", "Base URL of the drive API (empty with --demo uses in-memory data)")
	f.Bool("demo", false, "Serve a seeded in-memory drive instead of a remote one")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.String("impl-name", "impl.go", "Default implementation file name")
	f.String("test-name", "test.go", "Default test file name")
	f.String("entry", "main.RunTests", "Entry function the runner invokes")
	f.Int("retries", retry.DefaultPolicy.MaxRetries, "Retries per drive call")
	f.Duration("retry-base", retry.DefaultPolicy.Base, "Base backoff between retries")
	f.Duration("run-timeout", 30*time.Second, "Timeout for a single grading run")
	f.String("feedback-url", "", "OpenAI-compatible API base URL for feedback drafts (empty disables)")
	f.String("feedback-key", "", "API key for the feedback model")
	f.String("feedback-model", "llama3.2", "Feedback model name")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set GRADEBOARD_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved grading run as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "gradeboard.db", "SQLite database path")
	f.String("session", "", "Saved grading run id (empty lists saved runs)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("GRADEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradeboard")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradeboard")
	v.AddConfigPath("/etc/gradeboard")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	handle := &drive.Handle{}
	switch {
	case v.GetBool("demo"):
		handle.Publish(demoDrive())
		slog.Info("using in-memory demo drive", "assignment", demoAssignmentID)
	case v.GetString("drive-url") != "":
		handle.Publish(drive.NewClient(v.GetString("drive-url")))
		slog.Info("using remote drive", "url", v.GetString("drive-url"))
	default:
		return fmt.Errorf("either --drive-url or --demo is required")
	}

	policy := retry.DefaultPolicy
	policy.MaxRetries = v.GetInt("retries")
	policy.Base = v.GetDuration("retry-base")

	var fb *feedback.Client
	if url := v.GetString("feedback-url"); url != "" {
		fb = feedback.New(url, v.GetString("feedback-key"), v.GetString("feedback-model"))
		slog.Info("feedback drafts enabled", "url", url, "model", v.GetString("feedback-model"))
	}

	cfg := model.GradeConfig{
		ImplName:      v.GetString("impl-name"),
		TestName:      v.GetString("test-name"),
		Entry:         v.GetString("entry"),
		SecureCookies: v.GetBool("secure-cookies"),
	}

	run := runner.NewTimeout(runner.NewYaegi(), v.GetDuration("run-timeout"))

	h, err := handler.New(db, handle, run, policy, fb, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"impl_name", cfg.ImplName,
		"test_name", cfg.TestName,
		"entry", cfg.Entry,
		"retries", policy.MaxRetries,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id := v.GetString("session")
	if id == "" {
		sessions, err := db.ListGradeSessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		for _, s := range sessions {
			fmt.Printf("%s\t%s\t%d students\t%s\n",
				s.ID, s.AssignmentID, s.Students, s.CreatedAt.Format(time.RFC3339))
		}
		return nil
	}

	gs, err := db.GetGradeSession(id)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if gs == nil {
		return fmt.Errorf("session %s not found", id)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := io.WriteString(w, gs.Exported); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or GRADEBOARD_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
