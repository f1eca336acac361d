package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dirshare/internal/config"
	"dirshare/internal/httpserver"
	"dirshare/internal/logging"
	"dirshare/internal/registry"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "passwd":
			passwdCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		}
	}

	var (
		addr      = flag.String("addr", "0.0.0.0:8000", "listen address")
		root      = flag.String("root", "", "directory to serve (default: current directory)")
		stateDir  = flag.String("state", "", "state dir for thumbnails (default: <root>/.dirshare)")
		password  = flag.String("password", "", "shared password gating all routes (empty: no auth)")
		cfgPath   = flag.String("config", "", "path to config json (optional)")
		regPath   = flag.String("registry", "", "instance registry file (default: user config dir)")
		dav       = flag.Bool("dav", false, "mount the root for WebDAV clients under /dav/")
		logLevel  = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat = flag.String("log-format", "console", "log format (console or json)")
	)
	flag.Parse()

	if err := logging.Init(logging.Config{Level: *logLevel, Format: *logFormat}); err != nil {
		fmt.Fprintln(os.Stderr, "logging init:", err)
		os.Exit(1)
	}
	defer logging.Sync()

	var cfg config.Config
	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			logging.Fatal("read config", zap.Error(err))
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			logging.Fatal("parse config", zap.Error(err))
		}
	} else {
		cfg.Addr = *addr
		cfg.Root = *root
		cfg.StateDir = *stateDir
		cfg.Password = *password
		cfg.RegistryPath = *regPath
		cfg.EnableDAV = *dav
	}

	if cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			logging.Fatal("getwd", zap.Error(err))
		}
		cfg.Root = wd
	}
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		logging.Fatal("abs root", zap.Error(err))
	}
	cfg.Root = absRoot
	if cfg.StateDir == "" {
		cfg.StateDir = filepath.Join(cfg.Root, ".dirshare")
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		logging.Fatal("mkdir state", zap.Error(err))
	}
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = registry.DefaultPath()
	}

	srv, err := httpserver.New(httpserver.Options{Config: cfg})
	if err != nil {
		logging.Fatal("server init", zap.Error(err))
	}

	host, port := splitAddr(cfg.Addr)
	reg := registry.New(cfg.RegistryPath)
	if err := reg.Register(registry.Entry{
		PID:       os.Getpid(),
		Interface: host,
		Port:      port,
		Cwd:       cfg.Root,
		StartedAt: time.Now(),
	}); err != nil {
		logging.Warn("registry update failed", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: withHeaders(accessLog(srv.Handler())),
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logging.Info("shutting down")
		if err := reg.Deregister(os.Getpid()); err != nil {
			logging.Warn("registry cleanup failed", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}()

	logging.Info("dirshare listening",
		zap.String("addr", cfg.Addr),
		zap.String("root", cfg.Root),
		zap.Bool("auth", cfg.HasPassword()),
		zap.Bool("dav", cfg.EnableDAV))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("listen", zap.Error(err))
	}
	logging.Info("bye")
}

func passwdCmd(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	var (
		password = fs.String("p", "", "password (required)")
		cost     = fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	)
	_ = fs.Parse(args)
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: dirshare passwd -p <password>")
		os.Exit(2)
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "invalid cost %d (min=%d max=%d)\n", *cost, bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bcrypt:", err)
		os.Exit(1)
	}
	fmt.Println(string(h))
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	regPath := fs.String("registry", registry.DefaultPath(), "instance registry file")
	_ = fs.Parse(args)

	reg := registry.New(*regPath)
	live, err := reg.Live()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read registry:", err)
		os.Exit(1)
	}
	// drop exited instances while we're here
	if err := reg.Save(live); err != nil {
		fmt.Fprintln(os.Stderr, "prune registry:", err)
	}

	if len(live) == 0 {
		fmt.Println("no running dirshare instances")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tADDRESS\tROOT\tSTARTED")
	for _, e := range live {
		fmt.Fprintf(tw, "%d\t%s:%d\t%s\t%s\n",
			e.PID, e.Interface, e.Port, e.Cwd, e.StartedAt.Format(time.RFC3339))
	}
	_ = tw.Flush()
}

func splitAddr(addr string) (host string, port int) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	if h == "" {
		h = "0.0.0.0"
	}
	n, _ := strconv.Atoi(p)
	return h, n
}

func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Basic hardening / UX.
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if strings.HasPrefix(r.URL.Path, "/__thumb__") {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logging.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("took", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}
