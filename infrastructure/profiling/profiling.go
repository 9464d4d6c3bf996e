// Package profiling starts the optional pprof endpoint and Pyroscope
// continuous profiling.
package profiling

import (
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
)

// DefaultPprofAddr binds pprof to localhost only.
const DefaultPprofAddr = "localhost:6060"

const pprofReadHeaderTimeout = 5 * time.Second

// Config holds profiling settings. Both profilers are off by default.
type Config struct {
	Pprof     bool   `env:"ENABLE_PROFILING" yaml:"pprof"`
	PprofAddr string `env:"PPROF_ADDR"       yaml:"pprof_addr"`

	Pyroscope    bool   `env:"ENABLE_CONTINUOUS_PROFILING" yaml:"pyroscope"`
	PyroscopeURL string `env:"PYROSCOPE_SERVER_URL"        yaml:"pyroscope_url"`
	Environment  string `env:"PYROSCOPE_ENVIRONMENT"       yaml:"environment"`
}

// SetDefaults fills in addresses.
func (c *Config) SetDefaults() {
	if c.PprofAddr == "" {
		c.PprofAddr = DefaultPprofAddr
	}
	if c.PyroscopeURL == "" {
		c.PyroscopeURL = "http://pyroscope:4040"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// PprofMux returns a mux serving the /debug/pprof/ endpoints.
func PprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// StartPprofServer serves pprof in the background when cfg.Pprof is set and
// returns the server so the caller can shut it down. It returns nil when
// disabled.
func StartPprofServer(cfg Config, log logger.Logger) *http.Server {
	if !cfg.Pprof {
		return nil
	}
	cfg.SetDefaults()

	srv := &http.Server{
		Addr:              cfg.PprofAddr,
		Handler:           PprofMux(),
		ReadHeaderTimeout: pprofReadHeaderTimeout,
	}

	go func() {
		log.Info("Starting pprof server", logger.String("addr", cfg.PprofAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", logger.Error(err))
		}
	}()
	return srv
}
