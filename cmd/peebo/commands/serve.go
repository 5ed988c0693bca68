package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/peebo/peebo/internal/api"
	"github.com/peebo/peebo/internal/app/list"
	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/browser/chrome"
	"github.com/peebo/peebo/internal/browser/extract"
	browserfake "github.com/peebo/peebo/internal/browser/fake"
	"github.com/peebo/peebo/internal/browser/input"
	"github.com/peebo/peebo/internal/browser/tab"
	"github.com/peebo/peebo/internal/channel"
	"github.com/peebo/peebo/internal/control"
	"github.com/peebo/peebo/internal/conventions"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/notify"
)

const (
	browserChrome = "chrome"
	browserFake   = "fake"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	browser        string
	chromeURL      string
	headless       bool
	settleDelay    time.Duration
	allowedOrigins []string
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Run the browser coordinator, the command channel and the HTTP API.")
	c.Cmd.Flag("browser", "Browser driver.").Default(browserChrome).EnumVar(&c.browser, browserChrome, browserFake)
	c.Cmd.Flag("chrome-url", "DevTools endpoint of a running Chrome, empty launches a new one.").Envar("PEEBO_CHROME_URL").StringVar(&c.chromeURL)
	c.Cmd.Flag("headless", "Launch Chrome headless (only when launching it).").BoolVar(&c.headless)
	c.Cmd.Flag("settle-delay", "Wait after issuing a navigation.").Default("1500ms").DurationVar(&c.settleDelay)
	c.Cmd.Flag("allowed-origin", "Extra CORS origin allowed by the API (repeatable).").StringsVar(&c.allowedOrigins)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	repo, closeRepo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	driver, closeDriver, err := c.newDriver(ctx, logger)
	if err != nil {
		return err
	}
	defer closeDriver()

	ctrl, err := tab.NewController(tab.ControllerConfig{
		Driver:      driver,
		SettleDelay: c.settleDelay,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create tab controller: %w", err)
	}

	extr, err := extract.NewExtractor(extract.ExtractorConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create extractor: %w", err)
	}

	synth, err := input.NewSynthesizer(input.SynthesizerConfig{Resolver: extr, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create input synthesizer: %w", err)
	}

	dispatcher, err := control.NewDispatcher(control.DispatcherConfig{
		Controller:  ctrl,
		Extractor:   extr,
		Synthesizer: synth,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create dispatcher: %w", err)
	}

	chanServer, err := channel.NewServer(channel.ServerConfig{
		Handler: dispatcher,
		OnNotification: func(_ context.Context, n channel.Notification) {
			logger.WithValues(log.Kv{"event": n.Event}).Infof("Controller notification: %s", n.Message)
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create channel server: %w", err)
	}
	defer chanServer.Close()

	notifier := notify.Multi(
		notify.NewLogNotifier(logger),
		notify.NewChannelNotifier(chanServer),
	)

	applicant := c.rootCmd.loadApplicantOrEmpty(ctx)
	applySvc, err := c.rootCmd.newApplyService(repo, applicant, notifier)
	if err != nil {
		return fmt.Errorf("could not create apply service: %w", err)
	}
	defer applySvc.Close()

	listSvc, err := list.NewService(list.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create list service: %w", err)
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Tasks:          applySvc,
		Applications:   listSvc,
		Applicant:      applicant,
		Channel:        chanServer,
		AllowedOrigins: c.allowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create api handler: %w", err)
	}

	var g run.Group

	// HTTP server.
	{
		server := &http.Server{Addr: c.rootCmd.Listen, Handler: handler}
		g.Add(
			func() error {
				logger.Infof("Listening on %s (channel at %s)", c.rootCmd.Listen, conventions.ChannelURL(c.rootCmd.Listen))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			},
		)
	}

	// Termination.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				<-ctx.Done()
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	err = g.Run()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := ctrl.Cleanup(cleanupCtx); cerr != nil {
		logger.Warningf("Tab cleanup was partial: %s", cerr)
	}

	return err
}

func (c ServeCommand) newDriver(ctx context.Context, logger log.Logger) (browser.Driver, func(), error) {
	if c.browser == browserFake {
		d, err := browserfake.NewDriver(browserfake.DriverConfig{Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("could not create fake browser: %w", err)
		}
		d.OpenTab(conventions.BlankPage)
		return d, func() {}, nil
	}

	// The driver outlives the command context so the tab can be cleaned up on exit.
	d, err := chrome.NewDriver(context.WithoutCancel(ctx), chrome.DriverConfig{
		RemoteURL: c.chromeURL,
		Headless:  c.headless,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to chrome: %w", err)
	}
	return d, func() {
		if err := d.Close(); err != nil {
			logger.Warningf("Could not close chrome: %s", err)
		}
	}, nil
}
