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

// Package websocket streams broker messages to websocket clients.
//
// A client connects to GET /ws/subscriptions/*destination and receives every
// matching message as a JSON text frame. The optional query parameters
// dialect and expression attach a filter to the subscription. Text frames
// sent by the client are publish commands:
//
//	{"destination": "orders/created", "type": "ORDER_CREATED", "data": "{...}",
//	 "metadata": {"color": "red"}, "retained": false}
//
// Publish failures are answered with an {"error": "..."} frame; the
// connection stays open.
package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/valyala/fastjson"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/engine"
	"github.com/spitbreak/qpid/utils/json"
	"github.com/spitbreak/qpid/utils/runtime"
)

// Type is the endpoint type.
const Type = "websocket"

const writeTimeout = 10 * time.Second

// Config is the websocket server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":9091".
	Addr        string
	CertFile    string
	CertKeyFile string
}

// Websocket serves streaming subscriptions over websocket connections.
type Websocket struct {
	Config   Config
	Upgrader websocket.Upgrader
	broker   *engine.Broker
	logger   types.Logger
	router   *httprouter.Router
	server   *http.Server
}

// New creates a websocket endpoint bound to broker.
func New(config Config, broker *engine.Broker, logger types.Logger) *Websocket {
	ws := &Websocket{
		Config: config,
		broker: broker,
		logger: types.NewLogger(logger),
	}
	ws.router = httprouter.New()
	ws.router.GET("/ws/subscriptions/*destination", ws.subscribe)
	return ws
}

func (ws *Websocket) Type() string {
	return Type
}

// Handler returns the endpoint's HTTP handler, for mounting on an external
// server.
func (ws *Websocket) Handler() http.Handler {
	return ws.router
}

// Start listens on the configured address and serves in the background.
func (ws *Websocket) Start() error {
	if ws.server != nil {
		return errors.New("websocket endpoint already started")
	}
	ln, err := net.Listen("tcp", ws.Config.Addr)
	if err != nil {
		return err
	}
	ws.server = &http.Server{Addr: ws.Config.Addr, Handler: ws.router}
	go func() {
		var serveErr error
		if ws.Config.CertFile != "" && ws.Config.CertKeyFile != "" {
			serveErr = ws.server.ServeTLS(ln, ws.Config.CertFile, ws.Config.CertKeyFile)
		} else {
			serveErr = ws.server.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			ws.logger.Printf("websocket endpoint: %s", serveErr)
		}
	}()
	return nil
}

// Shutdown stops the server. Open connections are closed by the server;
// their read loops end and the subscriptions are removed.
func (ws *Websocket) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	err := ws.server.Shutdown(ctx)
	ws.server = nil
	return err
}

// connection serializes frame writes. Deliveries run on broker workers while
// the read loop answers publish commands, so writes need the lock.
type connection struct {
	locker sync.Mutex
	conn   *websocket.Conn
}

func (c *connection) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *connection) writeError(err error) {
	_ = c.writeJSON(map[string]string{"error": err.Error()})
}

type publishCommand struct {
	Destination string            `json:"destination"`
	Type        string            `json:"type"`
	Data        string            `json:"data"`
	Metadata    map[string]string `json:"metadata"`
	Retained    bool              `json:"retained"`
}

func (ws *Websocket) subscribe(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	c, err := ws.Upgrader.Upgrade(w, req, nil)
	if err != nil {
		ws.logger.Printf("websocket endpoint upgrade: %s", err)
		return
	}
	conn := &connection{conn: c}
	defer func() {
		_ = c.Close()
		if e := recover(); e != nil {
			ws.logger.Printf("websocket endpoint handler err :%v\n%v", e, runtime.Stack())
		}
	}()

	uuId, _ := uuid.NewV4()
	query := req.URL.Query()
	config := types.SubscriptionConfig{
		Id:          uuId.String(),
		Destination: strings.TrimPrefix(params.ByName("destination"), "/"),
		Dialect:     query.Get("dialect"),
		Expression:  query.Get("expression"),
	}
	consumer := engine.NewConsumerFunc(config.Id, func(msg types.Message) error {
		return conn.writeJSON(msg)
	})
	sub, err := ws.broker.Subscribe(config, consumer)
	if err != nil {
		conn.writeError(err)
		return
	}
	defer func() {
		_ = ws.broker.Unsubscribe(sub.Id())
	}()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.TextMessage {
			continue
		}
		var command publishCommand
		if err = json.Unmarshal(data, &command); err != nil {
			conn.writeError(err)
			continue
		}
		if err = ws.publish(command); err != nil {
			conn.writeError(err)
		}
	}
}

func (ws *Websocket) publish(command publishCommand) error {
	dataType := types.TEXT
	if fastjson.Validate(command.Data) == nil {
		dataType = types.JSON
	}
	metadata := types.BuildMetadata(command.Metadata)
	msg := types.NewMsg(0, command.Type, dataType, metadata, command.Data)
	msg.Destination = command.Destination

	var err error
	if command.Retained {
		_, err = ws.broker.PublishRetained(msg)
	} else {
		_, err = ws.broker.Publish(msg)
	}
	return err
}
