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

package types

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// DataType describes the encoding of a message payload.
type DataType string

const (
	JSON   = DataType("JSON")
	TEXT   = DataType("TEXT")
	BINARY = DataType("BINARY")
)

// DeliveryMode marks a message as persistent or non-persistent.
// The selector dialect exposes it through the `deliveryMode` header as the
// constant's string form, so `deliveryMode = 'PERSISTENT'` works as expected.
type DeliveryMode string

const (
	NonPersistent = DeliveryMode("NON_PERSISTENT")
	Persistent    = DeliveryMode("PERSISTENT")
)

// Priority bounds and default, JMS-style (0 lowest, 9 highest).
const (
	MinPriority     = 0
	MaxPriority     = 9
	DefaultPriority = 4
)

// Metadata holds the user-defined message properties, the values selectors
// are evaluated against. Values are kept in string form; the selector
// evaluator coerces them by operator context.
type Metadata map[string]string

// NewMetadata creates an empty Metadata instance.
func NewMetadata() Metadata {
	return make(Metadata)
}

// BuildMetadata creates a Metadata instance populated from data.
func BuildMetadata(data map[string]string) Metadata {
	metadata := make(Metadata)
	for k, v := range data {
		metadata[k] = v
	}
	return metadata
}

// Copy returns an independent copy of the metadata.
func (md Metadata) Copy() Metadata {
	return BuildMetadata(md)
}

// Has reports whether the given key exists.
func (md Metadata) Has(key string) bool {
	_, ok := md[key]
	return ok
}

// GetValue returns the value for key, or "" when absent.
func (md Metadata) GetValue(key string) string {
	v, _ := md[key]
	return v
}

// PutValue sets the value for key. Empty keys are ignored.
func (md Metadata) PutValue(key, value string) {
	if key != "" {
		md[key] = value
	}
}

// Values returns the underlying map.
func (md Metadata) Values() map[string]string {
	return md
}

// Message is the unit of delivery. A message carries an opaque payload plus
// the addressable parts selectors can reference: the user properties in
// Metadata and the fixed delivery headers (id, timestamp, type, destination,
// priority, deliveryMode, correlationId, replyTo, expiration).
type Message struct {
	// Ts is the publish timestamp in milliseconds.
	Ts int64 `json:"ts"`
	// Id uniquely identifies the message.
	Id string `json:"id"`
	// Destination is the topic the message was published to.
	Destination string `json:"destination"`
	// Type is the application message type (e.g. ORDER_CREATED).
	Type string `json:"type"`
	// DataType is the payload encoding.
	DataType DataType `json:"dataType"`
	// Data is the payload.
	Data string `json:"data"`
	// Metadata holds the user properties.
	Metadata Metadata `json:"metadata"`
	// Priority is the delivery priority, 0-9.
	Priority int `json:"priority"`
	// DeliveryMode marks the message persistent or non-persistent.
	DeliveryMode DeliveryMode `json:"deliveryMode"`
	// CorrelationId links the message to a request or conversation.
	CorrelationId string `json:"correlationId,omitempty"`
	// ReplyTo names the destination for replies.
	ReplyTo string `json:"replyTo,omitempty"`
	// Expiration is the absolute expiry time in milliseconds, 0 for none.
	Expiration int64 `json:"expiration,omitempty"`
}

// NewMsg creates a message with a generated id. A ts of 0 means now.
func NewMsg(ts int64, msgType string, dataType DataType, metaData Metadata, data string) Message {
	uuId, _ := uuid.NewV4()
	return newMsg(uuId.String(), ts, msgType, dataType, metaData, data)
}

func newMsg(id string, ts int64, msgType string, dataType DataType, metaData Metadata, data string) Message {
	if ts <= 0 {
		ts = time.Now().UnixMilli()
	}
	if id == "" {
		uuId, _ := uuid.NewV4()
		id = uuId.String()
	}
	if metaData == nil {
		metaData = NewMetadata()
	}
	return Message{
		Ts:           ts,
		Id:           id,
		Type:         msgType,
		DataType:     dataType,
		Data:         data,
		Metadata:     metaData,
		Priority:     DefaultPriority,
		DeliveryMode: NonPersistent,
	}
}

// Copy returns an independent copy of the message.
func (m *Message) Copy() Message {
	c := *m
	c.Metadata = m.Metadata.Copy()
	return c
}

// Expired reports whether the message has an expiry time in the past.
func (m *Message) Expired(now int64) bool {
	return m.Expiration > 0 && now > m.Expiration
}
