// Package elasticsearch builds go-elasticsearch clients from configuration
// and verifies connectivity before handing them out.
package elasticsearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/retry"
)

// NewClient creates a client for cfg and, unless cfg.SkipPing is set, pings
// the cluster with retry until it answers.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	clientConfig, err := BuildClientConfig(cfg)
	if err != nil {
		return nil, err
	}

	esClient, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	if cfg.SkipPing {
		return esClient, nil
	}

	addrs := strings.Join(clientConfig.Addresses, ",")
	log.Info("Verifying Elasticsearch connection", logger.String("addresses", addrs))

	if err := retry.Retry(ctx, *cfg.RetryConfig, func() error {
		return ping(ctx, esClient, cfg.PingTimeout, log)
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch after retries: %w", err)
	}

	log.Info("Elasticsearch connection established", logger.String("addresses", addrs))
	return esClient, nil
}

// BuildClientConfig translates cfg into an es.Config without connecting.
func BuildClientConfig(cfg Config) (es.Config, error) {
	cfg.SetDefaults()

	addresses := make([]string, 0, len(cfg.Addresses)+1)
	for _, a := range cfg.Addresses {
		addresses = append(addresses, normalizeURL(a))
	}
	if len(addresses) == 0 {
		addresses = append(addresses, normalizeURL(cfg.URL))
	}

	transport, err := createTransport(cfg.TLS, cfg.Timeout)
	if err != nil {
		return es.Config{}, err
	}

	clientConfig := es.Config{
		Addresses:  addresses,
		Transport:  transport,
		MaxRetries: cfg.MaxRetries,
	}

	switch {
	case cfg.CloudID != "" && cfg.APIKey != "":
		clientConfig.Addresses = nil
		clientConfig.CloudID = cfg.CloudID
		clientConfig.APIKey = cfg.APIKey
	case cfg.APIKey != "":
		clientConfig.APIKey = cfg.APIKey
	case cfg.Username != "" && cfg.Password != "":
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	if cfg.TLS != nil && cfg.TLS.Enabled && cfg.TLS.CAFile != "" {
		caCert, readErr := os.ReadFile(cfg.TLS.CAFile)
		if readErr != nil {
			return es.Config{}, fmt.Errorf("read CA file %s: %w", cfg.TLS.CAFile, readErr)
		}
		clientConfig.CACert = caCert
	}

	return clientConfig, nil
}

// normalizeURL adds http:// when the scheme is missing.
func normalizeURL(url string) string {
	if url == "" {
		return DefaultURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

func createTransport(tlsConfig *TLSConfig, timeout time.Duration) (*http.Transport, error) {
	transport := &http.Transport{
		ResponseHeaderTimeout: timeout,
	}

	if tlsConfig == nil || !tlsConfig.Enabled {
		return transport, nil
	}

	//nolint:gosec // InsecureSkipVerify is opt-in for development clusters
	tlsClientConfig := &tls.Config{
		InsecureSkipVerify: tlsConfig.InsecureSkipVerify,
	}

	if tlsConfig.CertFile != "" && tlsConfig.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsClientConfig.Certificates = []tls.Certificate{cert}
	}

	transport.TLSClientConfig = tlsClientConfig
	return transport, nil
}

func ping(ctx context.Context, client *es.Client, timeout time.Duration, log logger.Logger) error {
	pingCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		log.Debug("Elasticsearch ping failed", logger.Error(err))
		return fmt.Errorf("ping failed: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			log.Debug("Failed to close ping response body", logger.Error(closeErr))
		}
	}()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Debug("Elasticsearch ping returned error",
			logger.String("status", res.Status()),
			logger.String("body", string(body)),
		)
		return fmt.Errorf("ping returned error [%s]: %s", res.Status(), string(body))
	}

	return nil
}
