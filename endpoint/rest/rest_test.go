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

package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/engine"
	"github.com/spitbreak/qpid/test/assert"
	"github.com/spitbreak/qpid/utils/json"
)

func newTestRest(t *testing.T, config Config) (*Rest, *engine.Broker, *httptest.Server) {
	t.Helper()
	broker := engine.NewBroker(types.NewConfig())
	r := New(config, broker, nil)
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return r, broker, srv
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %s", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %s", method, url, err)
	}
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, string(data)
}

func TestRestPublish(t *testing.T) {
	t.Run("publishesToSubscribers", func(t *testing.T) {
		_, broker, srv := newTestRest(t, Config{})
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "orders/#"}, consumer)
		assert.Nil(t, err)

		resp, body := doRequest(t, http.MethodPost,
			srv.URL+"/api/v1/messages/orders/created?color=red&type=ORDER_CREATED", `{"total": 20}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result publishResponse
		assert.Nil(t, json.Unmarshal([]byte(body), &result))
		assert.NotEqual(t, "", result.Id)
		assert.Equal(t, 1, result.Dispatched)

		select {
		case msg := <-consumer.C():
			assert.Equal(t, "orders/created", msg.Destination)
			assert.Equal(t, "ORDER_CREATED", msg.Type)
			assert.Equal(t, types.JSON, msg.DataType)
			assert.Equal(t, `{"total": 20}`, msg.Data)
			assert.Equal(t, "red", msg.Metadata.GetValue("color"))
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for the delivery")
		}
	})

	t.Run("headerFieldsFromQuery", func(t *testing.T) {
		_, broker, srv := newTestRest(t, Config{})
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "orders/#"}, consumer)
		assert.Nil(t, err)

		resp, _ := doRequest(t, http.MethodPost,
			srv.URL+"/api/v1/messages/orders/created?priority=7&ttl=60000&correlationId=req-1&replyTo=replies/1", `{}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		select {
		case msg := <-consumer.C():
			assert.Equal(t, 7, msg.Priority)
			assert.Equal(t, "req-1", msg.CorrelationId)
			assert.Equal(t, "replies/1", msg.ReplyTo)
			assert.True(t, msg.Expiration > time.Now().UnixMilli())
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for the delivery")
		}
	})

	t.Run("outOfRangePriorityKeepsDefault", func(t *testing.T) {
		_, broker, srv := newTestRest(t, Config{})
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "orders/#"}, consumer)
		assert.Nil(t, err)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/messages/orders/created?priority=15", `{}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		select {
		case msg := <-consumer.C():
			assert.Equal(t, types.DefaultPriority, msg.Priority)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for the delivery")
		}
	})

	t.Run("textContentType", func(t *testing.T) {
		_, broker, srv := newTestRest(t, Config{})
		consumer := engine.NewChannelConsumer("c1", 4)
		_, err := broker.Subscribe(types.SubscriptionConfig{Id: "s1", Destination: "ping"}, consumer)
		assert.Nil(t, err)

		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/messages/ping", strings.NewReader("hello"))
		req.Header.Set("Content-Type", "text/plain")
		resp, err := http.DefaultClient.Do(req)
		assert.Nil(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		select {
		case msg := <-consumer.C():
			assert.Equal(t, types.TEXT, msg.DataType)
			assert.Equal(t, "hello", msg.Data)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for the delivery")
		}
	})

	t.Run("emptyDestination", func(t *testing.T) {
		_, _, srv := newTestRest(t, Config{})
		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/messages/", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("retainedWithoutCache", func(t *testing.T) {
		_, _, srv := newTestRest(t, Config{})
		resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/messages/sensors/temp?retained=true", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.True(t, strings.Contains(body, "cache"))
	})
}

func TestRestSubscriptions(t *testing.T) {
	t.Run("crud", func(t *testing.T) {
		received := make(chan string, 4)
		hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			received <- string(data)
		}))
		defer hook.Close()

		_, _, srv := newTestRest(t, Config{})

		resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/subscriptions", `{
			"id": "s1",
			"destination": "orders/#",
			"expression": "color = 'red'",
			"webhook": {"urlPattern": "`+hook.URL+`"}
		}`)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var created types.SubscriptionConfig
		assert.Nil(t, json.Unmarshal([]byte(body), &created))
		assert.Equal(t, "s1", created.Id)

		resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/v1/subscriptions", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var listed []types.SubscriptionConfig
		assert.Nil(t, json.Unmarshal([]byte(body), &listed))
		assert.Equal(t, 1, len(listed))
		assert.Equal(t, "orders/#", listed[0].Destination)

		resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/subscriptions/s1", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// publish a matching message and watch it reach the webhook
		resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/messages/orders/created?color=red", `{"total": 20}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		select {
		case payload := <-received:
			assert.Equal(t, `{"total": 20}`, payload)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for the webhook delivery")
		}

		resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/subscriptions/s1", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/subscriptions/s1", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("generatedId", func(t *testing.T) {
		_, _, srv := newTestRest(t, Config{})
		resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/subscriptions", `{
			"destination": "orders/#",
			"webhook": {"urlPattern": "http://127.0.0.1:9/hook"}
		}`)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		var created types.SubscriptionConfig
		assert.Nil(t, json.Unmarshal([]byte(body), &created))
		assert.NotEqual(t, "", created.Id)
	})

	t.Run("webhookRequired", func(t *testing.T) {
		_, _, srv := newTestRest(t, Config{})
		resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/subscriptions",
			`{"destination": "orders/#"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.True(t, strings.Contains(body, "webhook"))
	})

	t.Run("badExpression", func(t *testing.T) {
		_, _, srv := newTestRest(t, Config{})
		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/subscriptions", `{
			"destination": "orders/#",
			"expression": "color = ",
			"webhook": {"urlPattern": "http://127.0.0.1:9/hook"}
		}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("deleteUnknown", func(t *testing.T) {
		_, _, srv := newTestRest(t, Config{})
		resp, _ := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/subscriptions/nope", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRestMetrics(t *testing.T) {
	_, _, srv := newTestRest(t, Config{})
	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/messages/orders/created", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var m map[string]int64
	assert.Nil(t, json.Unmarshal([]byte(body), &m))
	assert.Equal(t, int64(1), m["Published"])
}

func TestRestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %s", err)
	}
	_, _, srv := newTestRest(t, Config{Users: map[string]string{"admin": string(hash)}})

	t.Run("missingCredentials", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/metrics", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, `Basic realm="qpid"`, resp.Header.Get("WWW-Authenticate"))
	})

	t.Run("wrongPassword", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/metrics", nil)
		req.SetBasicAuth("admin", "nope")
		resp, err := http.DefaultClient.Do(req)
		assert.Nil(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("validCredentials", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/metrics", nil)
		req.SetBasicAuth("admin", "secret")
		resp, err := http.DefaultClient.Do(req)
		assert.Nil(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRestLifecycle(t *testing.T) {
	broker := engine.NewBroker(types.NewConfig())
	r := New(Config{Addr: "127.0.0.1:0"}, broker, nil)
	assert.Equal(t, "rest", r.Type())

	assert.Nil(t, r.Start())
	assert.NotNil(t, r.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Nil(t, r.Shutdown(ctx))
	assert.Nil(t, r.Shutdown(ctx))
}
