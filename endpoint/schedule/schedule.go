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

// Package schedule publishes messages to the broker on cron schedules.
// Destination, payload and metadata values may contain ${} templates over
// the job environment: ts (the firing time in milliseconds) and properties
// (the global properties).
package schedule

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/valyala/fastjson"

	"github.com/spitbreak/qpid/api/types"
	"github.com/spitbreak/qpid/engine"
	"github.com/spitbreak/qpid/utils/el"
	"github.com/spitbreak/qpid/utils/runtime"
	"github.com/spitbreak/qpid/utils/str"
)

// Type is the endpoint type.
const Type = "schedule"

// Job is a scheduled publication.
type Job struct {
	// Spec is a cron expression with a seconds field, e.g. "0 */5 * * * *",
	// or an @every duration.
	Spec string
	// Destination is the broker destination template.
	Destination string
	// Type stamps the published messages' type.
	Type string
	// Data is the payload template.
	Data string
	// Metadata values are templates as well.
	Metadata map[string]string
}

type jobTemplates struct {
	destination el.Template
	data        el.Template
	metadata    map[string]el.Template
}

// Schedule runs cron jobs that publish to the broker.
type Schedule struct {
	config types.Config
	broker *engine.Broker
	cron   *cron.Cron
}

// New creates a schedule endpoint bound to broker. Jobs fire after Start.
func New(config types.Config, broker *engine.Broker) *Schedule {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	return &Schedule{
		config: config,
		broker: broker,
		cron:   cron.New(cron.WithSeconds()),
	}
}

func (x *Schedule) Type() string {
	return Type
}

// AddJob registers a job and returns its id. Template errors in the
// destination, data or metadata are reported here, before the job is
// accepted.
func (x *Schedule) AddJob(job Job) (string, error) {
	if job.Spec == "" {
		return "", errors.New("spec can not be empty")
	}
	if job.Destination == "" {
		return "", types.ErrDestinationEmpty
	}
	templates, err := newJobTemplates(job)
	if err != nil {
		return "", err
	}
	entryId, err := x.cron.AddFunc(job.Spec, func() {
		x.fire(job, templates)
	})
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(entryId)), nil
}

// RemoveJob stops a job. Removing an unknown id is a no-op.
func (x *Schedule) RemoveJob(id string) error {
	entryId, err := strconv.Atoi(id)
	if err != nil {
		return err
	}
	x.cron.Remove(cron.EntryID(entryId))
	return nil
}

// Start begins firing the registered jobs.
func (x *Schedule) Start() error {
	x.cron.Start()
	return nil
}

// Shutdown stops the scheduler, waiting for running jobs until ctx expires.
func (x *Schedule) Shutdown(ctx context.Context) error {
	stopCtx := x.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newJobTemplates(job Job) (jobTemplates, error) {
	templates := jobTemplates{metadata: make(map[string]el.Template)}
	var err error
	if templates.destination, err = el.NewTemplate(job.Destination); err != nil {
		return templates, err
	}
	if templates.data, err = el.NewTemplate(job.Data); err != nil {
		return templates, err
	}
	for key, value := range job.Metadata {
		if templates.metadata[key], err = el.NewTemplate(value); err != nil {
			return templates, err
		}
	}
	return templates, nil
}

func (x *Schedule) fire(job Job, templates jobTemplates) {
	defer func() {
		if e := recover(); e != nil {
			x.config.Logger.Printf("schedule endpoint job err :%v\n%v", e, runtime.Stack())
		}
	}()
	now := time.Now().UnixMilli()
	env := map[string]interface{}{
		"ts":         now,
		"properties": x.config.Properties.Values(),
	}

	destinationValue, err := templates.destination.Execute(env)
	if err != nil {
		x.config.Logger.Printf("schedule endpoint destination template: %s", err)
		return
	}
	dataValue, err := templates.data.Execute(env)
	if err != nil {
		x.config.Logger.Printf("schedule endpoint data template: %s", err)
		return
	}
	metadata := types.NewMetadata()
	for key, template := range templates.metadata {
		value, err := template.Execute(env)
		if err != nil {
			x.config.Logger.Printf("schedule endpoint metadata template: %s", err)
			return
		}
		metadata.PutValue(key, str.ToString(value))
	}

	data := str.ToString(dataValue)
	dataType := types.TEXT
	if fastjson.Validate(data) == nil {
		dataType = types.JSON
	}
	msg := types.NewMsg(now, job.Type, dataType, metadata, data)
	msg.Destination = str.ToString(destinationValue)
	if _, err = x.broker.Publish(msg); err != nil {
		x.config.Logger.Printf("schedule endpoint publish: %s", err)
	}
}
