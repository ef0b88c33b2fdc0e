// warden is a moderation-propagation bot: it watches the subreddits its
// account moderates, keeps a shared ban registry on a wiki page, propagates
// registry bans across the whole fleet, and messages the moderator who
// originated each propagated ban with a behavioral report.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"

	"github.com/modfleet/warden/reddit"
	"github.com/modfleet/warden/registry"
	"github.com/modfleet/warden/report"
	"github.com/modfleet/warden/warden"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:    "warden",
		Usage:   "ban propagation bot for a moderated subreddit fleet",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "client-id",
			Usage:    "OAuth client id of the script app",
			Required: true,
			EnvVars:  []string{"WARDEN_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:     "client-secret",
			Usage:    "OAuth client secret of the script app",
			Required: true,
			EnvVars:  []string{"WARDEN_CLIENT_SECRET"},
		},
		&cli.StringFlag{
			Name:     "username",
			Usage:    "bot account username",
			Required: true,
			EnvVars:  []string{"WARDEN_USERNAME"},
		},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "bot account password",
			Required: true,
			EnvVars:  []string{"WARDEN_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "user-agent",
			Usage:   "User-Agent header for API requests",
			EnvVars: []string{"WARDEN_USER_AGENT"},
		},
		&cli.StringFlag{
			Name:     "registry-subreddit",
			Usage:    "subreddit whose wiki hosts the ban registry",
			Required: true,
			EnvVars:  []string{"WARDEN_REGISTRY_SUBREDDIT"},
		},
		&cli.StringFlag{
			Name:    "keyword",
			Usage:   "marker in ban notes that tags a ban for registry promotion",
			Value:   "WARDEN",
			EnvVars: []string{"WARDEN_KEYWORD"},
		},
		&cli.StringFlag{
			Name:    "ban-reason",
			Usage:   "reason string shown on propagated bans",
			Value:   warden.DefaultBanReason,
			EnvVars: []string{"WARDEN_BAN_REASON"},
		},
		&cli.StringFlag{
			Name:    "wordlist",
			Usage:   "path to a JSON wordlist for the profanity classifier",
			EnvVars: []string{"WARDEN_WORDLIST"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"WARDEN_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "also append run logs to this file",
			EnvVars: []string{"WARDEN_LOG_FILE"},
		},
		&cli.StringFlag{
			Name:    "error-log",
			Usage:   "append-only file for fatal run errors",
			Value:   "warden_errors.md",
			EnvVars: []string{"WARDEN_ERROR_LOG"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to serve prometheus metrics on (loop mode)",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "poll-period",
			Usage:   "seconds between reconciliation passes in loop mode",
			Value:   600,
			EnvVars: []string{"WARDEN_POLL_PERIOD"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "execute a reconciliation pass (or keep polling with --loop)",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "loop",
			Usage:   "keep running passes on the poll period instead of exiting",
			EnvVars: []string{"WARDEN_LOOP"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger, closeLog, err := setupLogger(cctx.String("log-level"), cctx.String("log-file"))
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := buildEngine(ctx, cctx, logger)
		if err != nil {
			// startup failures (bad credentials, unreadable wordlist) are
			// logged like any other fatal run error and exit normally
			logger.Error("startup failed", "err", err)
			logError(cctx.String("error-log"), err)
			return nil
		}

		if cctx.String("metrics-listen") != "" && cctx.Bool("loop") {
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(cctx.String("metrics-listen"), nil); err != nil {
					logger.Error("metrics endpoint failed", "err", err)
				}
			}()
		}

		period := time.Duration(cctx.Int("poll-period")) * time.Second
		for {
			if err := engine.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("manual shutdown")
					return nil
				}
				logger.Error("run failed", "err", err)
				logError(cctx.String("error-log"), err)
			}
			if !cctx.Bool("loop") {
				return nil
			}
			logger.Info("sleeping until next pass", "period", period)
			select {
			case <-ctx.Done():
				logger.Info("manual shutdown")
				return nil
			case <-time.After(period):
			}
		}
	},
}

func buildEngine(ctx context.Context, cctx *cli.Context, logger *slog.Logger) (*warden.Engine, error) {
	client := reddit.NewClient(reddit.Credentials{
		ClientID:     cctx.String("client-id"),
		ClientSecret: cctx.String("client-secret"),
		Username:     cctx.String("username"),
		Password:     cctx.String("password"),
	}, cctx.String("user-agent"))

	logger.Info("startup", "version", versioninfo.Short(), "username", client.Username())
	if err := client.Login(ctx); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	var classifier report.Classifier
	if p := cctx.String("wordlist"); p != "" {
		c, err := report.LoadWordlistJSON(p)
		if err != nil {
			return nil, fmt.Errorf("loading wordlist: %w", err)
		}
		classifier = c
	} else {
		classifier = report.NewWordlistClassifier(nil)
	}

	store := registry.NewStore(logger, client, cctx.String("registry-subreddit"))
	notifier := warden.NewMessageNotifier(logger, client)
	generator := report.NewGenerator(logger, client, classifier)

	return &warden.Engine{
		Logger:    logger.With("system", "engine"),
		Client:    client,
		Registry:  store,
		Resolver:  &warden.Resolver{Log: client, Self: client.Username()},
		Reporter:  generator,
		Notifier:  notifier,
		Keyword:   cctx.String("keyword"),
		BanReason: cctx.String("ban-reason"),
	}, nil
}

func setupLogger(level, logFile string) (*slog.Logger, func(), error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	out := io.Writer(os.Stderr)
	closeLog := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closeLog = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
	return logger, closeLog, nil
}
