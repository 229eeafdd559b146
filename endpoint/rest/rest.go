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

// Package rest exposes the broker over HTTP: publishing messages,
// managing webhook subscriptions and reading delivery metrics.
//
// Routes:
//
//	POST   /api/v1/messages/*destination   publish (query params become metadata)
//	GET    /api/v1/subscriptions           list subscriptions
//	POST   /api/v1/subscriptions           create a webhook subscription
//	GET    /api/v1/subscriptions/:id       read one subscription
//	DELETE /api/v1/subscriptions/:id       remove a subscription
//	GET    /api/v1/metrics                 delivery counters
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/engine"
	"github.com/spitbreak/qpid/store"
	"github.com/spitbreak/qpid/utils/cast"
	"github.com/spitbreak/qpid/utils/json"
	"github.com/spitbreak/qpid/utils/maps"
	"github.com/spitbreak/qpid/utils/runtime"
)

// Type is the endpoint type.
const Type = "rest"

const (
	contentTypeKey  = "Content-Type"
	jsonContentType = "application/json"
)

// Reserved publish query parameters. Everything else becomes metadata.
const (
	paramType          = "type"
	paramPriority      = "priority"
	paramCorrelationId = "correlationId"
	paramReplyTo       = "replyTo"
	paramTtl           = "ttl"
	paramRetained      = "retained"
)

// Config is the REST server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":9090".
	Addr        string
	CertFile    string
	CertKeyFile string
	// Users maps basic auth usernames to bcrypt password hashes. Empty
	// disables authentication.
	Users map[string]string
}

// Rest serves the broker management and publish API.
type Rest struct {
	Config Config
	broker *engine.Broker
	logger types.Logger
	store  *store.SubscriptionStore
	router *httprouter.Router
	server *http.Server
}

// New creates a REST endpoint bound to broker.
func New(config Config, broker *engine.Broker, logger types.Logger) *Rest {
	r := &Rest{
		Config: config,
		broker: broker,
		logger: types.NewLogger(logger),
	}
	r.router = r.newRouter()
	return r
}

// SetStore attaches a subscription store. Subscriptions created or removed
// through the API are then persisted as well.
func (r *Rest) SetStore(s *store.SubscriptionStore) *Rest {
	r.store = s
	return r
}

func (r *Rest) Type() string {
	return Type
}

// Handler returns the endpoint's HTTP handler, for mounting on an external
// server.
func (r *Rest) Handler() http.Handler {
	return r.router
}

// Start listens on the configured address and serves in the background.
func (r *Rest) Start() error {
	if r.server != nil {
		return errors.New("rest endpoint already started")
	}
	ln, err := net.Listen("tcp", r.Config.Addr)
	if err != nil {
		return err
	}
	r.server = &http.Server{Addr: r.Config.Addr, Handler: r.router}
	go func() {
		var serveErr error
		if r.Config.CertFile != "" && r.Config.CertKeyFile != "" {
			serveErr = r.server.ServeTLS(ln, r.Config.CertFile, r.Config.CertKeyFile)
		} else {
			serveErr = r.server.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			r.logger.Printf("rest endpoint: %s", serveErr)
		}
	}()
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx
// expires.
func (r *Rest) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	err := r.server.Shutdown(ctx)
	r.server = nil
	return err
}

func (r *Rest) newRouter() *httprouter.Router {
	router := httprouter.New()
	router.POST("/api/v1/messages/*destination", r.handle(r.publish))
	router.GET("/api/v1/subscriptions", r.handle(r.listSubscriptions))
	router.POST("/api/v1/subscriptions", r.handle(r.createSubscription))
	router.GET("/api/v1/subscriptions/:id", r.handle(r.getSubscription))
	router.DELETE("/api/v1/subscriptions/:id", r.handle(r.deleteSubscription))
	router.GET("/api/v1/metrics", r.handle(r.metrics))
	return router
}

// handle wraps a route with panic recovery and basic auth.
func (r *Rest) handle(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		defer func() {
			if e := recover(); e != nil {
				r.logger.Printf("rest endpoint handler err :%v\n%v", e, runtime.Stack())
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		if !r.authorized(req) {
			w.Header().Set("WWW-Authenticate", `Basic realm="qpid"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, req, params)
	}
}

func (r *Rest) authorized(req *http.Request) bool {
	if len(r.Config.Users) == 0 {
		return true
	}
	username, password, ok := req.BasicAuth()
	if !ok {
		return false
	}
	hash, ok := r.Config.Users[username]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type publishResponse struct {
	Id         string `json:"id"`
	Dispatched int    `json:"dispatched"`
}

func (r *Rest) publish(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	destination := strings.TrimPrefix(params.ByName("destination"), "/")
	if destination == "" {
		writeError(w, http.StatusBadRequest, "destination can not be empty")
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dataType := types.TEXT
	if contentType := req.Header.Get(contentTypeKey); strings.HasPrefix(contentType, jsonContentType) {
		dataType = types.JSON
	} else if strings.HasPrefix(contentType, "application/octet-stream") {
		dataType = types.BINARY
	}

	metadata := types.NewMetadata()
	msgType := ""
	priority := -1
	correlationId := ""
	replyTo := ""
	var ttl int64
	retained := false
	for key, values := range req.URL.Query() {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case paramType:
			msgType = value
		case paramPriority:
			if p, convErr := cast.ToIntE(value); convErr == nil {
				priority = p
			}
		case paramCorrelationId:
			correlationId = value
		case paramReplyTo:
			replyTo = value
		case paramTtl:
			ttl = cast.ToInt64(value)
		case paramRetained:
			retained = cast.ToBool(value)
		default:
			metadata.PutValue(key, value)
		}
	}

	msg := types.NewMsg(0, msgType, dataType, metadata, string(body))
	msg.Destination = destination
	msg.CorrelationId = correlationId
	msg.ReplyTo = replyTo
	if priority >= types.MinPriority && priority <= types.MaxPriority {
		msg.Priority = priority
	}
	if ttl > 0 {
		msg.Expiration = time.Now().UnixMilli() + ttl
	}

	var dispatched int
	if retained {
		dispatched, err = r.broker.PublishRetained(msg)
	} else {
		dispatched, err = r.broker.Publish(msg)
	}
	if err != nil {
		if errors.Is(err, types.ErrBrokerShuttingDown) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, publishResponse{Id: msg.Id, Dispatched: dispatched})
}

// subscriptionRequest is the create-subscription payload: a subscription
// configuration plus the webhook that consumes the matched messages.
type subscriptionRequest struct {
	types.SubscriptionConfig
	Webhook types.Configuration `json:"webhook"`
}

func (r *Rest) createSubscription(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var request subscriptionRequest
	if err = json.Unmarshal(body, &request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(request.Webhook) == 0 {
		writeError(w, http.StatusBadRequest, "webhook configuration required")
		return
	}
	var hookConfig engine.WebhookConsumerConfiguration
	if err = maps.Map2Struct(request.Webhook, &hookConfig); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if request.Id == "" {
		uuId, _ := uuid.NewV4()
		request.Id = uuId.String()
	}
	consumer, err := engine.NewWebhookConsumer(request.Id, hookConfig)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := r.broker.Subscribe(request.SubscriptionConfig, consumer)
	if err != nil {
		if errors.Is(err, types.ErrBrokerShuttingDown) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if r.store != nil {
		if err = r.store.Save(req.Context(), sub.Config()); err != nil {
			_ = r.broker.Unsubscribe(sub.Id())
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, sub.Config())
}

func (r *Rest) listSubscriptions(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	subs := r.broker.Subscriptions()
	configs := make([]types.SubscriptionConfig, 0, len(subs))
	for _, sub := range subs {
		configs = append(configs, sub.Config())
	}
	writeJSON(w, http.StatusOK, configs)
}

func (r *Rest) getSubscription(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	sub, ok := r.broker.Subscription(params.ByName("id"))
	if !ok {
		writeError(w, http.StatusNotFound, types.ErrSubscriptionNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub.Config())
}

func (r *Rest) deleteSubscription(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	if err := r.broker.Unsubscribe(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if r.store != nil {
		if err := r.store.Delete(req.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Rest) metrics(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, r.broker.Metrics())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set(contentTypeKey, jsonContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(contentTypeKey, jsonContentType)
	w.WriteHeader(status)
	data, _ := json.Marshal(map[string]string{"error": msg})
	_, _ = w.Write(data)
}
