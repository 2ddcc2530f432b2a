// ytmscrobble submits recent YouTube Music plays to Last.fm. One
// invocation processes one history batch and exits; a cron entry or systemd
// timer provides the schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/llehouerou/ytmscrobble/internal/config"
	"github.com/llehouerou/ytmscrobble/internal/lastfm"
	"github.com/llehouerou/ytmscrobble/internal/run"
	"github.com/llehouerou/ytmscrobble/internal/store"
	"github.com/llehouerou/ytmscrobble/internal/ytmusic"
)

var version = "0.1.0"

const authTimeout = 5 * time.Minute

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfgPath := flag.String("config", "", "path to config.toml")
	dbPath := flag.String("db", "", "path to the scrobble database")
	auth := flag.Bool("auth", false, "link a Last.fm account and exit")
	dryRun := flag.Bool("dry-run", false, "log decisions without submitting or writing anything")
	verbose := flag.Bool("v", false, "debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("ytmscrobble " + version)
		return 0
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error("load config", "err", err)
		return 1
	}
	if !cfg.HasLastfmConfig() {
		log.Error("last.fm api key and secret are not configured")
		return 1
	}

	path := *dbPath
	if path == "" {
		path = cfg.DatabasePath
	}
	if path == "" {
		path, err = store.DefaultPath()
		if err != nil {
			log.Error("resolve database path", "err", err)
			return 1
		}
	}

	st, err := store.Open(path)
	if err != nil {
		log.Error("open store", "err", err, "path", path)
		return 1
	}
	defer st.Close()

	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)

	if *auth {
		return linkAccount(client, st, log)
	}

	// Stored session takes priority; a configured session key covers
	// machines where the link flow already ran elsewhere.
	if sess, err := st.Session(); err == nil && sess != nil {
		client.SetSessionKey(sess.SessionKey)
	} else if cfg.Lastfm.SessionKey != "" {
		client.SetSessionKey(cfg.Lastfm.SessionKey)
	}
	if !client.IsAuthenticated() {
		log.Error("no last.fm session; run with -auth to link an account")
		return 1
	}

	if !cfg.HasYtmusicConfig() {
		log.Error("ytmusic history endpoint is not configured")
		return 1
	}
	history := ytmusic.NewClient(cfg.Ytmusic.Endpoint, cfg.Ytmusic.AuthHeader)

	runner := &run.Runner{
		Store:   st,
		History: history,
		Lastfm:  client,
		Pacing:  cfg.GetPacing(),
		Log:     log,
		DryRun:  *dryRun,
	}
	if *dryRun {
		// No point pacing submissions that never happen.
		runner.Sleep = func(time.Duration) {}
	}

	if _, err := runner.Run(context.Background()); err != nil {
		log.Error("run failed", "err", err)
		return 1
	}
	return 0
}

// linkAccount walks the desktop authorization flow: open the browser on
// the Last.fm consent page, catch the redirect on the local callback
// server, exchange the token, and persist the session.
func linkAccount(client *lastfm.Client, st *store.Store, log *slog.Logger) int {
	srv, err := lastfm.StartAuthServer()
	if err != nil {
		log.Error("start callback server", "err", err)
		return 1
	}
	defer srv.Shutdown()

	url := client.CallbackAuthURL(lastfm.CallbackURL())
	log.Info("opening browser for last.fm authorization", "url", url)
	if err := lastfm.OpenBrowser(url); err != nil {
		log.Warn("could not open browser, visit the url manually", "err", err, "url", url)
	}

	var token string
	select {
	case token = <-srv.TokenChan():
	case <-time.After(authTimeout):
		log.Error("timed out waiting for authorization")
		return 1
	}
	if token == "" {
		log.Error("authorization callback carried no token")
		return 1
	}

	username, sessionKey, err := client.GetSession(token)
	if err != nil {
		log.Error("exchange token for session", "err", err)
		return 1
	}
	if err := st.SaveSession(username, sessionKey); err != nil {
		log.Error("save session", "err", err)
		return 1
	}

	log.Info("last.fm account linked", "username", username)
	return 0
}
