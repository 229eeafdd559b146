/*
 * Copyright 2025 The SpitBreak Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/filter"
	"github.com/spitbreak/qpid/utils/el"
	"github.com/spitbreak/qpid/utils/str"
)

// WebhookConsumerConfiguration configures an HTTP push consumer.
type WebhookConsumerConfiguration struct {
	// UrlPattern is the endpoint URL. ${} expressions over the message
	// environment are substituted per delivery, e.g.
	// "http://host/hooks/${metadata.tenant}".
	UrlPattern string
	// Headers are extra request headers; values support ${} expressions.
	Headers map[string]string
	// ReadTimeoutMs bounds a single request in milliseconds, 0 means no limit.
	ReadTimeoutMs int
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// MaxParallelRequestsCount caps connections per host, 0 means no limit.
	MaxParallelRequestsCount int
	// EnableProxy routes requests through a proxy.
	EnableProxy bool
	// UseSystemProxyProperties picks the proxy up from the environment
	// variables instead of the explicit settings below.
	UseSystemProxyProperties bool
	ProxyScheme              string
	ProxyHost                string
	ProxyPort                int
	ProxyUser                string
	ProxyPassword            string
}

// WebhookConsumer POSTs every matched message to an HTTP endpoint. The
// payload travels as the request body with a content type derived from the
// message data type; a non-2xx response counts the delivery as failed.
type WebhookConsumer struct {
	id              string
	config          WebhookConsumerConfiguration
	urlTemplate     el.Template
	headerTemplates map[string]el.Template
	client          *http.Client
}

// NewWebhookConsumer creates a webhook consumer, parsing the URL and header
// templates up front.
func NewWebhookConsumer(id string, config WebhookConsumerConfiguration) (*WebhookConsumer, error) {
	if config.UrlPattern == "" {
		return nil, errors.New("webhook url pattern can not be empty")
	}
	urlTemplate, err := el.NewTemplate(config.UrlPattern)
	if err != nil {
		return nil, err
	}
	headerTemplates := make(map[string]el.Template, len(config.Headers))
	for k, v := range config.Headers {
		tmpl, err := el.NewTemplate(v)
		if err != nil {
			return nil, err
		}
		headerTemplates[k] = tmpl
	}
	return &WebhookConsumer{
		id:              id,
		config:          config,
		urlTemplate:     urlTemplate,
		headerTemplates: headerTemplates,
		client:          newHttpClient(config),
	}, nil
}

func (c *WebhookConsumer) ID() string {
	return c.id
}

func (c *WebhookConsumer) Deliver(msg types.Message) error {
	env := filter.ScriptEnv(msg)
	urlValue, err := c.urlTemplate.Execute(env)
	if err != nil {
		return fmt.Errorf("webhook %s: build url: %w", c.id, err)
	}
	endpoint := str.ToString(urlValue)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(msg.Data))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", c.id, err)
	}
	req.Header.Set("Content-Type", contentTypeOf(msg.DataType))
	for k, tmpl := range c.headerTemplates {
		v, err := tmpl.Execute(env)
		if err != nil {
			return fmt.Errorf("webhook %s: build header %s: %w", c.id, k, err)
		}
		req.Header.Set(k, str.ToString(v))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", c.id, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: %s responded %s", c.id, endpoint, resp.Status)
	}
	return nil
}

func contentTypeOf(dataType types.DataType) string {
	switch dataType {
	case types.JSON:
		return "application/json"
	case types.BINARY:
		return "application/octet-stream"
	default:
		return "text/plain"
	}
}

// newHttpClient builds the client with the TLS, connection pool and proxy
// settings from the configuration.
func newHttpClient(config WebhookConsumerConfiguration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}
	transport.MaxConnsPerHost = config.MaxParallelRequestsCount

	if config.EnableProxy {
		if config.UseSystemProxyProperties {
			if proxyURL := systemProxy(); proxyURL != nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		} else if proxyURL := buildProxyURL(config.ProxyScheme, config.ProxyHost, config.ProxyPort, config.ProxyUser, config.ProxyPassword); proxyURL != nil {
			if config.ProxyScheme == "socks5" {
				transport.Dial = socks5Dialer(proxyURL)
			} else {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{Transport: transport,
		Timeout: time.Duration(config.ReadTimeoutMs) * time.Millisecond}
}

// systemProxy reads the proxy URL from the usual environment variables.
func systemProxy() *url.URL {
	for _, env := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		if proxyStr := os.Getenv(env); proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				return proxyURL
			}
		}
	}
	return nil
}

func buildProxyURL(scheme, host string, port int, user, password string) *url.URL {
	if scheme == "" || host == "" || port == 0 {
		return nil
	}
	proxyURL := fmt.Sprintf("%s://%s:%d", scheme, host, port)
	if user != "" && password != "" {
		proxyURL = fmt.Sprintf("%s://%s:%s@%s:%d", scheme, user, password, host, port)
	}
	if parsedURL, err := url.Parse(proxyURL); err == nil {
		return parsedURL
	}
	return nil
}

// socks5Dialer dials through a SOCKS5 proxy, taking optional credentials
// from the URL's user info.
func socks5Dialer(proxyURL *url.URL) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var auth *proxy.Auth
		if proxyURL.User != nil {
			if password, ok := proxyURL.User.Password(); ok {
				auth = &proxy.Auth{
					User:     proxyURL.User.Username(),
					Password: password,
				}
			}
		}
		dialer, err := proxy.SOCKS5(network, proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		return dialer.Dial(network, addr)
	}
}
