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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/test/assert"
)

type capturedRequest struct {
	method string
	path   string
	body   string
	header http.Header
}

func newCaptureServer(status int) (*httptest.Server, chan capturedRequest) {
	captured := make(chan capturedRequest, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured <- capturedRequest{r.Method, r.URL.Path, string(body), r.Header.Clone()}
		w.WriteHeader(status)
	}))
	return srv, captured
}

func capturedOrFail(t *testing.T, captured chan capturedRequest) capturedRequest {
	t.Helper()
	select {
	case req := <-captured:
		return req
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the webhook request")
		return capturedRequest{}
	}
}

func TestWebhookConsumer(t *testing.T) {
	t.Run("postsPayload", func(t *testing.T) {
		srv, captured := newCaptureServer(http.StatusOK)
		defer srv.Close()

		c, err := NewWebhookConsumer("hook", WebhookConsumerConfiguration{
			UrlPattern: srv.URL + "/hooks/orders",
			Headers:    map[string]string{"X-Source": "qpid"},
		})
		assert.Nil(t, err)
		assert.Equal(t, "hook", c.ID())

		assert.Nil(t, c.Deliver(newEventMsg(nil, "orders/created", `{"total": 20}`)))
		req := capturedOrFail(t, captured)
		assert.Equal(t, http.MethodPost, req.method)
		assert.Equal(t, "/hooks/orders", req.path)
		assert.Equal(t, `{"total": 20}`, req.body)
		assert.Equal(t, "application/json", req.header.Get("Content-Type"))
		assert.Equal(t, "qpid", req.header.Get("X-Source"))
	})

	t.Run("templatedUrlAndHeaders", func(t *testing.T) {
		srv, captured := newCaptureServer(http.StatusOK)
		defer srv.Close()

		c, err := NewWebhookConsumer("hook", WebhookConsumerConfiguration{
			UrlPattern: srv.URL + "/hooks/${metadata.tenant}",
			Headers:    map[string]string{"X-Message-Type": "${type}"},
		})
		assert.Nil(t, err)

		assert.Nil(t, c.Deliver(newEventMsg(map[string]string{"tenant": "acme"}, "orders/created", `{}`)))
		req := capturedOrFail(t, captured)
		assert.Equal(t, "/hooks/acme", req.path)
		assert.Equal(t, "ORDER_CREATED", req.header.Get("X-Message-Type"))
	})

	t.Run("textPayloadContentType", func(t *testing.T) {
		srv, captured := newCaptureServer(http.StatusOK)
		defer srv.Close()

		c, err := NewWebhookConsumer("hook", WebhookConsumerConfiguration{UrlPattern: srv.URL})
		assert.Nil(t, err)

		msg := types.NewMsg(0, "PING", types.TEXT, nil, "hello")
		msg.Destination = "ping"
		assert.Nil(t, c.Deliver(msg))
		req := capturedOrFail(t, captured)
		assert.Equal(t, "text/plain", req.header.Get("Content-Type"))
		assert.Equal(t, "hello", req.body)
	})

	t.Run("non2xxFailsDelivery", func(t *testing.T) {
		srv, _ := newCaptureServer(http.StatusInternalServerError)
		defer srv.Close()

		c, err := NewWebhookConsumer("hook", WebhookConsumerConfiguration{UrlPattern: srv.URL})
		assert.Nil(t, err)

		err = c.Deliver(newEventMsg(nil, "orders/created", `{}`))
		assert.NotNil(t, err)
		assert.True(t, strings.Contains(err.Error(), "responded"))
	})

	t.Run("connectionErrorFailsDelivery", func(t *testing.T) {
		srv, _ := newCaptureServer(http.StatusOK)
		url := srv.URL
		srv.Close()

		c, err := NewWebhookConsumer("hook", WebhookConsumerConfiguration{
			UrlPattern:    url,
			ReadTimeoutMs: 500,
		})
		assert.Nil(t, err)
		assert.NotNil(t, c.Deliver(newEventMsg(nil, "orders/created", `{}`)))
	})

	t.Run("emptyUrlPattern", func(t *testing.T) {
		_, err := NewWebhookConsumer("hook", WebhookConsumerConfiguration{})
		assert.NotNil(t, err)
	})

	t.Run("servesAsBrokerConsumer", func(t *testing.T) {
		srv, captured := newCaptureServer(http.StatusOK)
		defer srv.Close()

		c, err := NewWebhookConsumer("hook", WebhookConsumerConfiguration{
			UrlPattern: srv.URL + "/hooks/${destination}",
		})
		assert.Nil(t, err)

		b := NewBroker(types.NewConfig())
		_, err = b.Subscribe(types.SubscriptionConfig{
			Id: "s1", Destination: "orders/#", Expression: "color = 'red'",
		}, c)
		assert.Nil(t, err)

		_, err = b.Publish(newEventMsg(map[string]string{"color": "red"}, "orders/created", `{"total": 20}`))
		assert.Nil(t, err)
		b.wg.Wait()

		req := capturedOrFail(t, captured)
		assert.Equal(t, "/hooks/orders/created", req.path)
		assert.Equal(t, int64(1), b.Metrics().Delivered)
	})
}
