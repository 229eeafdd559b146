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
	"encoding/json"
	"strings"
	"testing"
)

// TestMetadataBasicOperations tests creation, reads and writes.
func TestMetadataBasicOperations(t *testing.T) {
	md := NewMetadata()
	if len(md.Values()) != 0 {
		t.Errorf("Expected empty metadata, got %d entries", len(md.Values()))
	}

	md.PutValue("color", "red")
	md.PutValue("weight", "85")

	if !md.Has("color") {
		t.Error("Expected color to exist")
	}
	if md.GetValue("color") != "red" {
		t.Errorf("Expected red, got %s", md.GetValue("color"))
	}
	if md.Has("missing") {
		t.Error("Expected missing to not exist")
	}
	if md.GetValue("missing") != "" {
		t.Errorf("Expected empty value for a missing key, got %s", md.GetValue("missing"))
	}

	// Empty keys are dropped.
	md.PutValue("", "ignored")
	if len(md.Values()) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(md.Values()))
	}

	values := md.Values()
	if values["weight"] != "85" {
		t.Errorf("Expected 85, got %s", values["weight"])
	}
}

// TestMetadataBuildAndCopy tests that BuildMetadata and Copy are independent
// of their source.
func TestMetadataBuildAndCopy(t *testing.T) {
	source := map[string]string{"color": "red", "weight": "85"}
	md := BuildMetadata(source)
	source["color"] = "blue"
	if md.GetValue("color") != "red" {
		t.Errorf("Expected red after mutating the source map, got %s", md.GetValue("color"))
	}

	cp := md.Copy()
	cp.PutValue("color", "green")
	cp.PutValue("size", "L")

	if md.GetValue("color") != "red" {
		t.Errorf("Expected the original to keep red, got %s", md.GetValue("color"))
	}
	if md.Has("size") {
		t.Error("Expected the original to not gain keys from the copy")
	}
	if cp.GetValue("color") != "green" {
		t.Errorf("Expected green in the copy, got %s", cp.GetValue("color"))
	}
}

// TestNewMsgDefaults tests id generation and default field values.
func TestNewMsgDefaults(t *testing.T) {
	msg := NewMsg(0, "ORDER_CREATED", JSON, nil, `{"total":42}`)

	if msg.Id == "" {
		t.Error("Expected a generated id")
	}
	if msg.Ts <= 0 {
		t.Errorf("Expected ts to be filled in, got %d", msg.Ts)
	}
	if msg.Priority != DefaultPriority {
		t.Errorf("Expected priority %d, got %d", DefaultPriority, msg.Priority)
	}
	if msg.DeliveryMode != NonPersistent {
		t.Errorf("Expected %s, got %s", NonPersistent, msg.DeliveryMode)
	}
	if msg.Metadata == nil {
		t.Error("Expected metadata to be initialized")
	}
	if msg.Type != "ORDER_CREATED" {
		t.Errorf("Expected ORDER_CREATED, got %s", msg.Type)
	}
	if msg.DataType != JSON {
		t.Errorf("Expected JSON, got %s", msg.DataType)
	}

	other := NewMsg(1719999999000, "ORDER_CREATED", JSON, nil, "{}")
	if other.Ts != 1719999999000 {
		t.Errorf("Expected the explicit ts to be kept, got %d", other.Ts)
	}
	if other.Id == msg.Id {
		t.Error("Expected distinct generated ids")
	}
}

// TestMessageCopy tests that a copy does not share metadata with the original.
func TestMessageCopy(t *testing.T) {
	md := BuildMetadata(map[string]string{"region": "eu"})
	msg := NewMsg(0, "SENSOR", JSON, md, `{"temperature":21}`)

	cp := msg.Copy()
	cp.Metadata.PutValue("region", "us")
	cp.Data = `{"temperature":30}`

	if msg.Metadata.GetValue("region") != "eu" {
		t.Errorf("Expected the original metadata untouched, got %s", msg.Metadata.GetValue("region"))
	}
	if msg.Data != `{"temperature":21}` {
		t.Errorf("Expected the original data untouched, got %s", msg.Data)
	}
	if cp.Id != msg.Id {
		t.Error("Expected the copy to keep the message id")
	}
	if cp.Metadata.GetValue("region") != "us" {
		t.Errorf("Expected us in the copy, got %s", cp.Metadata.GetValue("region"))
	}
}

// TestMessageExpired tests the expiry boundary.
func TestMessageExpired(t *testing.T) {
	msg := NewMsg(0, "TEST", TEXT, nil, "x")

	if msg.Expired(1000) {
		t.Error("Expected no expiry when expiration is zero")
	}

	msg.Expiration = 1000
	if msg.Expired(999) {
		t.Error("Expected the message alive before the expiration instant")
	}
	if msg.Expired(1000) {
		t.Error("Expected the message alive at the expiration instant")
	}
	if !msg.Expired(1001) {
		t.Error("Expected the message expired after the expiration instant")
	}
}

// TestMessageJson tests the wire field names and omitempty handling.
func TestMessageJson(t *testing.T) {
	msg := NewMsg(1720000000000, "ORDER_CREATED", JSON, BuildMetadata(map[string]string{"region": "eu"}), `{"total":42}`)

	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"ts":1720000000000`, `"dataType":"JSON"`, `"priority":4`, `"deliveryMode":"NON_PERSISTENT"`} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %s in %s", want, s)
		}
	}
	for _, absent := range []string{"correlationId", "replyTo", "expiration"} {
		if strings.Contains(s, absent) {
			t.Errorf("Expected %s to be omitted when empty, got %s", absent, s)
		}
	}

	msg.CorrelationId = "req-7"
	msg.Expiration = 1720000600000
	b, err = json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s = string(b)
	if !strings.Contains(s, `"correlationId":"req-7"`) {
		t.Errorf("Expected correlationId in %s", s)
	}
	if !strings.Contains(s, `"expiration":1720000600000`) {
		t.Errorf("Expected expiration in %s", s)
	}

	var back Message
	if err = json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Metadata.GetValue("region") != "eu" {
		t.Errorf("Expected eu, got %s", back.Metadata.GetValue("region"))
	}
	if back.Priority != DefaultPriority {
		t.Errorf("Expected priority %d, got %d", DefaultPriority, back.Priority)
	}
}
