package main

import (
	"context"
	"encoding/json"
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

	"github.com/cikmis/examclient/internal/api"
	"github.com/cikmis/examclient/internal/exam"
	"github.com/cikmis/examclient/internal/handler"
	appI18n "github.com/cikmis/examclient/internal/i18n"
	"github.com/cikmis/examclient/internal/llm"
	"github.com/cikmis/examclient/internal/model"
	"github.com/cikmis/examclient/internal/store"
)

//go:generate templ generate -path ../../internal/handler/views

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examclient",
		Short: "Exam browser and practice client for the exam service",
	}

	serve := serveCmd()
	root.AddCommand(serve, takeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("api-url", "http://localhost:8000", "Exam service base URL")
	f.Duration("api-timeout", 30*time.Second, "Timeout for exam service requests")
	f.String("db", "examclient.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default UI language (en, tr)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addAssistFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("assist-backend", string(model.AssistRemote), "Who answers explain and similar-question requests (remote, openai, gemini)")
	f.Duration("assist-timeout", 60*time.Second, "Timeout for one assist request")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for the OpenAI-compatible endpoint")
	f.String("llm-model", "llama3.2", "Model name for the OpenAI-compatible endpoint")
	f.String("gemini-key", "", "Gemini API key")
	f.String("gemini-model", "gemini-1.5-flash", "Gemini model name")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web client",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	addAssistFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /tr)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("session-key", "", "Key signing the visitor cookie (or set EXAMCLIENT_SESSION_KEY)")
	return cmd
}

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take an exam in the terminal",
		RunE:  runTake,
	}
	addCommonFlags(cmd)
	addAssistFlags(cmd)
	cmd.Flags().Int64("exam-id", 0, "Exam to take (required)")
	_ = cmd.MarkFlagRequired("exam-id")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the attempt history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examclient.db", "SQLite database path")
	f.Int64("exam-id", 0, "Only export attempts of this exam")
	f.String("attempt-id", "", "Only export this attempt")
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

	v.SetEnvPrefix("EXAMCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examclient")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examclient")
	v.AddConfigPath("/etc/examclient")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// newAssistant picks the assist backend. The returned close function releases
// backend resources and is never nil.
func newAssistant(ctx context.Context, v *viper.Viper, client *api.Client) (exam.Assistant, func(), error) {
	noop := func() {}
	switch backend := model.AssistBackend(strings.ToLower(v.GetString("assist-backend"))); backend {
	case model.AssistRemote, "":
		return client, noop, nil
	case model.AssistOpenAI:
		a := llm.NewOpenAI(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"))
		if err := a.Ping(ctx); err != nil {
			return nil, noop, fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		return a, noop, nil
	case model.AssistGemini:
		g, err := llm.NewGemini(ctx, v.GetString("gemini-key"), v.GetString("gemini-model"))
		if err != nil {
			return nil, noop, err
		}
		return g, func() {
			if err := g.Close(); err != nil {
				slog.Warn("close gemini client", "error", err)
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown assist backend %q", backend)
	}
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	go cleanupSessions(cmd.Context(), db, time.Hour)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	client := api.New(v.GetString("api-url"), v.GetDuration("api-timeout"))
	assist, closeAssist, err := newAssistant(cmd.Context(), v, client)
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}
	defer closeAssist()

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.ClientConfig{
		APIURL:        v.GetString("api-url"),
		APITimeout:    v.GetDuration("api-timeout"),
		Lang:          lang,
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		SessionKey:    v.GetString("session-key"),
		Assist:        model.AssistBackend(v.GetString("assist-backend")),
		AssistTimeout: v.GetDuration("assist-timeout"),
	}

	h, err := handler.New(client, assist, db, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.SecureCookies))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"api_url", cfg.APIURL,
		"assist", cfg.Assist,
		"lang", lang,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

// cleanupSessions drops expired admin sessions every interval until ctx ends.
func cleanupSessions(ctx context.Context, db *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := db.CleanupExpiredSessions(); err != nil {
			slog.Warn("cleanup admin sessions", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runTake(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx = appI18n.WithLanguage(ctx, lang)

	client := api.New(v.GetString("api-url"), v.GetDuration("api-timeout"))
	assist, closeAssist, err := newAssistant(ctx, v, client)
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}
	defer closeAssist()

	a, err := exam.Load(ctx, client, v.GetInt64("exam-id"))
	if err != nil {
		msgID := "FetchFailed"
		if exam.KindOf(err) == exam.KindNotFound {
			msgID = "NoQuestions"
		}
		fmt.Fprintln(cmd.OutOrStdout(), appI18n.T(ctx, msgID))
		return err
	}

	r := &runner{
		in:            cmd.InOrStdin(),
		out:           cmd.OutOrStdout(),
		session:       exam.NewSession(a, assist),
		assistTimeout: v.GetDuration("assist-timeout"),
		record:        db.RecordAttempt,
	}
	return r.run(ctx)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportHistory(v.GetInt64("exam-id"))
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}
	if attemptID := v.GetString("attempt-id"); attemptID != "" {
		rec, err := db.GetAttempt(attemptID)
		if err != nil {
			return fmt.Errorf("get attempt: %w", err)
		}
		if rec == nil {
			return fmt.Errorf("attempt %s not found", attemptID)
		}
		export.Attempts = []model.AttemptRecord{*rec}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	slog.Info("exported attempts", "count", len(export.Attempts))
	return nil
}
