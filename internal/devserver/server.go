package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/assets"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
	"github.com/wolfeidau/frontbuild/internal/logger"
)

// Builder produces the files the server hands out.
type Builder interface {
	Build(ctx context.Context) (*assets.Result, error)
	BuildConfig() *buildconfig.BuildConfig
	OutputDir() string
	SrcDirs() []string
}

type Options struct {
	Host       string
	Port       int
	Open       bool
	LiveReload bool
	// Debounce is how long the watcher waits for changes to settle
	Debounce time.Duration
	// HMR refreshes stylesheets in place when only stylesheets changed
	HMR bool
	// ReloadAll refreshes every stylesheet instead of only the changed one
	ReloadAll bool
}

// OptionsFrom reads the devServer block and the extract-css step options.
func OptionsFrom(cfg *buildconfig.BuildConfig) Options {
	opts := Options{Host: "localhost", Port: 8080}
	if cfg.DevServer != nil {
		opts.Open = cfg.DevServer.Open
		opts.LiveReload = cfg.DevServer.LiveReload
		if cfg.DevServer.Port != 0 {
			opts.Port = cfg.DevServer.Port
		}
	}
	if step, ok := cfg.Step(buildconfig.ToolExtractCSS); ok {
		opts.HMR = step.Options.Bool("hmr", false)
		opts.ReloadAll = step.Options.Bool("reloadAll", false)
	}
	return opts
}

type Server struct {
	builder Builder
	opts    Options
	hub     *Hub
	logger  zerolog.Logger

	// openURL is swapped in tests
	openURL func(string) error
	failed  bool
}

func New(builder Builder, opts Options, log zerolog.Logger) *Server {
	return &Server{
		builder: builder,
		opts:    opts,
		hub:     NewHub(log),
		logger:  log,
		openURL: browser.OpenURL,
	}
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Handler serves the output directory. Responses are compressed and HTML
// pages carry the reload client when live reload is on.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.opts.LiveReload {
		mux.Handle(ReloadPath, s.hub)
	}

	var files http.Handler = &staticHandler{
		dir:    s.builder.OutputDir(),
		inject: s.opts.LiveReload,
	}
	files = gzhttp.GzipHandler(files)
	mux.Handle("/", logger.Requests(s.logger)(files))

	return mux
}

// Run watches the sources, rebuilds on change and serves until ctx is
// cancelled. The caller runs the first build.
func (s *Server) Run(ctx context.Context) error {
	ctx = s.logger.WithContext(ctx)

	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	watcher, err := NewWatcher(s.builder.SrcDirs(), []string{s.builder.OutputDir()}, s.opts.Debounce)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	srv := configureHTTPServer(s.Handler())

	errc := make(chan error, 2)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go func() {
		errc <- watcher.Run(ctx, func(changed []string) { s.rebuild(ctx, changed) })
	}()

	url := "http://" + ln.Addr().String() + "/"
	s.logger.Info().Str("url", url).Bool("live_reload", s.opts.LiveReload).Msg("Dev server listening")

	if s.opts.Open {
		if err := s.openURL(url); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to open browser")
		}
	}

	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	return err
}

// rebuild runs a build for a batch of changed files and tells the browsers
// what to do about it.
func (s *Server) rebuild(ctx context.Context, changed []string) {
	log := zerolog.Ctx(ctx)
	log.Info().Strs("files", changed).Msg("Rebuilding")

	res, err := s.builder.Build(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Rebuild failed")
		s.failed = true
		if s.opts.LiveReload {
			s.hub.Error(err.Error())
		}
		return
	}

	if !s.opts.LiveReload {
		return
	}

	if s.failed {
		s.failed = false
		s.hub.Clear()
	}

	if s.opts.HMR && stylesheetOnly(changed) && len(res.Stylesheets) > 0 {
		file := ""
		if !s.opts.ReloadAll && len(res.Stylesheets) == 1 {
			file = path.Base(res.Stylesheets[0])
		}
		s.hub.CSS(file)
		return
	}

	s.hub.Reload()
}

func configureHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// staticHandler serves built files, injecting the reload client into HTML.
type staticHandler struct {
	dir    string
	inject bool
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}

	if !h.inject || path.Ext(name) != ".html" {
		w.Header().Set("Cache-Control", "no-cache")
		http.FileServer(http.Dir(h.dir)).ServeHTTP(w, r)
		return
	}

	page, err := os.ReadFile(filepath.Join(h.dir, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(injectScript(page))
}

// injectScript places the reload client before </body>, or at the end when
// the page has no body end tag.
func injectScript(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(page, clientScript...)
	}

	out := make([]byte, 0, len(page)+len(clientScript))
	out = append(out, page[:idx]...)
	out = append(out, clientScript...)
	out = append(out, page[idx:]...)
	return out
}
