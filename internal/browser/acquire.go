package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrNotApplicable marks a strategy that has nothing to try, such as a
// remote strategy without a debugger URL.
var ErrNotApplicable = errors.New("strategy not applicable")

// AcquireError is the typed failure reason of one bootstrap strategy
type AcquireError struct {
	Strategy string
	Err      error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// Options configures browser bootstrap
type Options struct {
	Headless        bool
	DisableImages   bool
	DebuggerURL     string
	BinPath         string
	SearchPaths     []string
	AllowDownload   bool
	DownloadDir     string
	PageLoadTimeout time.Duration
	ActionTimeout   time.Duration
}

// Strategy starts or locates a browser and returns its DevTools control URL
type Strategy interface {
	Name() string
	Start(ctx context.Context) (controlURL string, cleanup func(), err error)
}

// ConnectFunc turns a control URL into a ready handle
type ConnectFunc func(ctx context.Context, controlURL string, cleanup func()) (Handle, error)

// Acquirer tries bootstrap strategies in order and stops at the first
// one that yields a connected handle.
type Acquirer struct {
	strategies []Strategy
	connect    ConnectFunc
	logger     *zap.Logger
}

// NewAcquirer creates an acquirer using the default strategy order for opts
func NewAcquirer(opts Options, logger *zap.Logger) *Acquirer {
	logger = logger.Named("browser")
	return &Acquirer{
		strategies: DefaultStrategies(opts),
		connect:    rodConnector(opts, logger),
		logger:     logger,
	}
}

// NewAcquirerWith creates an acquirer from explicit strategies and connector
func NewAcquirerWith(strategies []Strategy, connect ConnectFunc, logger *zap.Logger) *Acquirer {
	return &Acquirer{strategies: strategies, connect: connect, logger: logger.Named("browser")}
}

// Acquire returns a handle from the first strategy that succeeds. When all
// fail, the returned error joins every strategy's AcquireError.
func (a *Acquirer) Acquire(ctx context.Context) (Handle, error) {
	var failures []error

	for _, s := range a.strategies {
		if err := ctx.Err(); err != nil {
			failures = append(failures, &AcquireError{Strategy: s.Name(), Err: err})
			break
		}

		a.logger.Info("Trying browser strategy", zap.String("strategy", s.Name()))

		controlURL, cleanup, err := s.Start(ctx)
		if err != nil {
			if errors.Is(err, ErrNotApplicable) {
				a.logger.Debug("Browser strategy skipped", zap.String("strategy", s.Name()), zap.Error(err))
			} else {
				a.logger.Warn("Browser strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
			}
			failures = append(failures, &AcquireError{Strategy: s.Name(), Err: err})
			continue
		}

		handle, err := a.connect(ctx, controlURL, cleanup)
		if err != nil {
			if cleanup != nil {
				cleanup()
			}
			a.logger.Warn("Browser connection failed", zap.String("strategy", s.Name()), zap.Error(err))
			failures = append(failures, &AcquireError{Strategy: s.Name(), Err: err})
			continue
		}

		a.logger.Info("Browser ready", zap.String("strategy", s.Name()))
		return handle, nil
	}

	return nil, fmt.Errorf("no browser strategy succeeded: %w", errors.Join(failures...))
}

// DefaultStrategies returns the bootstrap order: an already running
// browser, the configured binary, well-known local paths, the system
// browser, and finally a browser managed by rod.
func DefaultStrategies(opts Options) []Strategy {
	return []Strategy{
		remoteStrategy{url: opts.DebuggerURL},
		binaryStrategy{name: "configured-binary", paths: nonEmpty(opts.BinPath), opts: opts},
		binaryStrategy{name: "search-paths", paths: opts.SearchPaths, opts: opts},
		systemStrategy{opts: opts},
		managedStrategy{opts: opts},
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

type remoteStrategy struct {
	url string
}

func (s remoteStrategy) Name() string { return "remote-debugger" }

func (s remoteStrategy) Start(ctx context.Context) (string, func(), error) {
	if s.url == "" {
		return "", nil, fmt.Errorf("%w: no debugger url configured", ErrNotApplicable)
	}
	u, err := launcher.ResolveURL(s.url)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve debugger url: %w", err)
	}
	// Not ours to kill
	return u, nil, nil
}

type binaryStrategy struct {
	name  string
	paths []string
	opts  Options
}

func (s binaryStrategy) Name() string { return s.name }

func (s binaryStrategy) Start(ctx context.Context) (string, func(), error) {
	if len(s.paths) == 0 {
		return "", nil, fmt.Errorf("%w: no binary paths", ErrNotApplicable)
	}
	for _, p := range s.paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return launch(ctx, s.opts, p)
		}
	}
	return "", nil, fmt.Errorf("no browser binary found in %v", s.paths)
}

type systemStrategy struct {
	opts Options
}

func (s systemStrategy) Name() string { return "system-browser" }

func (s systemStrategy) Start(ctx context.Context) (string, func(), error) {
	bin, found := launcher.LookPath()
	if !found {
		return "", nil, errors.New("no browser found on the system")
	}
	return launch(ctx, s.opts, bin)
}

type managedStrategy struct {
	opts Options
}

func (s managedStrategy) Name() string { return "managed-browser" }

func (s managedStrategy) Start(ctx context.Context) (string, func(), error) {
	b := launcher.NewBrowser()
	b.Context = ctx
	bin, err := b.Get()
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch managed browser: %w", err)
	}
	return launch(ctx, s.opts, bin)
}

func launch(ctx context.Context, opts Options, bin string) (string, func(), error) {
	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(opts.Headless).
		Set(flags.Flag("start-maximized")).
		Set(flags.Flag("disable-notifications"))
	if opts.DisableImages {
		l = l.Set(flags.Flag("blink-settings"), "imagesEnabled=false")
	}

	u, err := l.Launch()
	if err != nil {
		return "", nil, fmt.Errorf("failed to launch %s: %w", bin, err)
	}
	cleanup := func() {
		l.Kill()
		l.Cleanup()
	}
	return u, cleanup, nil
}

// rodConnector connects to controlURL, points downloads at the staging
// directory and opens the single page the run works in.
func rodConnector(opts Options, logger *zap.Logger) ConnectFunc {
	return func(ctx context.Context, controlURL string, cleanup func()) (Handle, error) {
		b := rod.New().Context(ctx).ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}

		if opts.AllowDownload && opts.DownloadDir != "" {
			dir, err := filepath.Abs(opts.DownloadDir)
			if err != nil {
				_ = b.Close()
				return nil, fmt.Errorf("failed to resolve download dir: %w", err)
			}
			err = proto.BrowserSetDownloadBehavior{
				Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
				DownloadPath: dir,
			}.Call(b)
			if err != nil {
				_ = b.Close()
				return nil, fmt.Errorf("failed to set download directory: %w", err)
			}
		}

		page, err := b.Page(proto.TargetCreateTarget{})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to open page: %w", err)
		}

		pageLoadTimeout := opts.PageLoadTimeout
		if pageLoadTimeout <= 0 {
			pageLoadTimeout = 10 * time.Second
		}
		actionTimeout := opts.ActionTimeout
		if actionTimeout <= 0 {
			actionTimeout = 15 * time.Second
		}

		return &rodHandle{
			browser:         b,
			page:            page,
			pageLoadTimeout: pageLoadTimeout,
			actionTimeout:   actionTimeout,
			cleanup:         cleanup,
			logger:          logger,
		}, nil
	}
}
