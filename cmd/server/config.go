package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the command-line options as a YAML document.
// Unset keys leave the corresponding option untouched.
type fileConfig struct {
	Server struct {
		Host           *string        `yaml:"host"`
		Port           *int           `yaml:"port"`
		HTTPPort       *int           `yaml:"http_port"`
		MaxFrameSize   *int           `yaml:"max_frame_size"`
		WriteTimeout   *time.Duration `yaml:"write_timeout"`
		IdleTimeout    *time.Duration `yaml:"idle_timeout"`
		AllowedOrigins []string       `yaml:"allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level *string `yaml:"level"`
	} `yaml:"log"`

	Events struct {
		Sink     *string `yaml:"sink"`
		RedisURL *string `yaml:"redis_url"`
		NATSURL  *string `yaml:"nats_url"`
	} `yaml:"events"`

	Janitor struct {
		SweepInterval *time.Duration `yaml:"sweep_interval"`
		FinishedTTL   *time.Duration `yaml:"finished_ttl"`
	} `yaml:"janitor"`

	Protocol struct {
		ReplyOnMalformed *bool `yaml:"reply_on_malformed"`
		RequireName      *bool `yaml:"require_name"`
		MaxNameLength    *int  `yaml:"max_name_length"`
	} `yaml:"protocol"`

	Dispatch struct {
		MaxConcurrentSends *int `yaml:"max_concurrent_sends"`
	} `yaml:"dispatch"`
}

// flagEnv names the environment variable backing a flag, if any
var flagEnv = map[string]string{
	"host":       "SEABATTLE_HOST",
	"port":       "SEABATTLE_PORT",
	"http-port":  "SEABATTLE_HTTP_PORT",
	"log-level":  "SEABATTLE_LOG_LEVEL",
	"event-sink": "SEABATTLE_EVENT_SINK",
	"redis-url":  "REDIS_URL",
	"nats-url":   "NATS_URL",
}

func loadConfigFile(path string) (fileConfig, error) {
	var fc fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// apply copies every key present in the file onto opts, except for
// options set explicitly by flag or environment variable
func (fc fileConfig) apply(opts *options, explicit func(flag string) bool) {
	setOpt(&opts.host, fc.Server.Host, "host", explicit)
	setOpt(&opts.port, fc.Server.Port, "port", explicit)
	setOpt(&opts.httpPort, fc.Server.HTTPPort, "http-port", explicit)
	setOpt(&opts.maxFrameSize, fc.Server.MaxFrameSize, "max-frame-size", explicit)
	setOpt(&opts.writeTimeout, fc.Server.WriteTimeout, "write-timeout", explicit)
	setOpt(&opts.idleTimeout, fc.Server.IdleTimeout, "idle-timeout", explicit)
	if fc.Server.AllowedOrigins != nil && !explicit("allowed-origins") {
		opts.origins = fc.Server.AllowedOrigins
	}

	setOpt(&opts.logLevel, fc.Log.Level, "log-level", explicit)
	setOpt(&opts.eventSink, fc.Events.Sink, "event-sink", explicit)
	setOpt(&opts.redisURL, fc.Events.RedisURL, "redis-url", explicit)
	setOpt(&opts.natsURL, fc.Events.NATSURL, "nats-url", explicit)

	setOpt(&opts.sweepInterval, fc.Janitor.SweepInterval, "sweep-interval", explicit)
	setOpt(&opts.finishedTTL, fc.Janitor.FinishedTTL, "finished-ttl", explicit)

	setOpt(&opts.replyOnMalformed, fc.Protocol.ReplyOnMalformed, "reply-on-malformed", explicit)
	setOpt(&opts.requireName, fc.Protocol.RequireName, "require-name", explicit)
	setOpt(&opts.maxNameLength, fc.Protocol.MaxNameLength, "max-name-length", explicit)
	setOpt(&opts.maxSends, fc.Dispatch.MaxConcurrentSends, "max-concurrent-sends", explicit)
}

func setOpt[T any](dst *T, v *T, flag string, explicit func(string) bool) {
	if v != nil && !explicit(flag) {
		*dst = *v
	}
}
