package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kintai.org/internal/httpapi"
	"kintai.org/internal/obs"
	"kintai.org/internal/payroll"
	"kintai.org/internal/store/pg"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("GIT_COMMIT"))

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// With a DSN the API runs on Postgres; without one it falls back to
	// the in-memory store, which is enough for local poking.
	var (
		svc   payroll.Service
		probe httpapi.ReadyProbe
	)
	if dsn := databaseDSN(); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		defer store.Close()
		svc = store
		probe = httpapi.ReadyProbe{Pinger: store}
	} else {
		log.Println("no database configured, using in-memory store")
		svc = payroll.NewInMemory()
	}

	api := httpapi.New(svc, probe, version, env)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting kintai-api %s on %s (env=%s)", version, srv.Addr, env)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

// databaseDSN prefers KINTAI_PG_DSN and otherwise composes one from the
// discrete DB_* variables.
func databaseDSN() string {
	if dsn := os.Getenv("KINTAI_PG_DSN"); dsn != "" {
		return dsn
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	name := os.Getenv("DB_NAME")
	if name == "" {
		name = "kintai"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%s", host, port),
		Path:   "/" + name,
	}
	if user := os.Getenv("DB_USER"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DB_PASSWORD"))
	}
	q := u.Query()
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		q.Set("sslmode", mode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
