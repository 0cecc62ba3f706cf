package utils

import (
	"net/http"
	"net/url"
	"time"
)

type HTTPClientConfig struct {
	Timeout       time.Duration
	KATimeout     time.Duration
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	UserAgent     string
	Headers       map[string]string
}

type StreamzHTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewStreamzHTTPClient(cfg HTTPClientConfig) *StreamzHTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	transport := &http.Transport{
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
	}
	if proxyURL := ProxyWithAuth(cfg.ProxyURL, cfg.ProxyUsername, cfg.ProxyPassword); proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}
	return &StreamzHTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config: cfg,
	}
}

func (d *StreamzHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if d.config.UserAgent != "" {
		req.Header.Set("User-Agent", d.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", "Streamz-CLI")
	}
	for k, v := range d.config.Headers {
		req.Header.Set(k, v)
	}
	return d.client.Do(req)
}

// ProxyWithAuth folds optional credentials into the proxy URL. Credentials
// already present in the URL win over the separate username/password.
func ProxyWithAuth(proxyURL, username, password string) string {
	if proxyURL == "" {
		return ""
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return proxyURL
	}
	if parsed.User == nil && username != "" {
		if password != "" {
			parsed.User = url.UserPassword(username, password)
		} else {
			parsed.User = url.User(username)
		}
	}
	return parsed.String()
}
