// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultHost     = "localhost"
	defaultDatabase = "app"
)

// ConnectionDescriptor is everything needed to open a backend session.
// It is a value type and is never mutated after Resolve.
type ConnectionDescriptor struct {
	Kind     BackendKind
	URI      string
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

type databaseEnv struct {
	Type     string `env:"DB_TYPE" envDefault:"mongodb"`
	URI      string `env:"DATABASE_URI"`
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT"`
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
}

// Resolve builds the ConnectionDescriptor from e. An unsupported DB_TYPE
// yields a *standarderrors.ConfigError.
func Resolve(e Environment) (ConnectionDescriptor, error) {
	var raw databaseEnv
	if err := parse(e, &raw); err != nil {
		return ConnectionDescriptor{}, err
	}

	kind, err := ParseBackendKind(raw.Type)
	if err != nil {
		return ConnectionDescriptor{}, err
	}
	if raw.Port < 0 || raw.Port > 65535 {
		return ConnectionDescriptor{}, invalid("DB_PORT", "port %d out of range", raw.Port)
	}

	desc := ConnectionDescriptor{
		Kind:     kind,
		Host:     strings.TrimSpace(raw.Host),
		Port:     raw.Port,
		Username: raw.Username,
		Password: raw.Password,
		Database: strings.TrimSpace(raw.Name),
	}

	if uri := strings.TrimSpace(raw.URI); uri != "" {
		desc.URI = uri
		if err := desc.fillFromURI(); err != nil {
			return ConnectionDescriptor{}, err
		}
	}

	if desc.Host == "" {
		desc.Host = defaultHost
	}
	if desc.Port == 0 {
		desc.Port = kind.DefaultPort()
	}
	if desc.Database == "" {
		desc.Database = defaultDatabase
	}
	if desc.Username == "" && kind.IsRelational() {
		desc.Username = kind.defaultUser()
	}
	if desc.URI == "" {
		desc.URI = desc.synthesize()
	}
	return desc, nil
}

// synthesize renders the canonical URI of the descriptor.
func (d ConnectionDescriptor) synthesize() string {
	u := url.URL{
		Scheme: d.Kind.scheme(),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Database,
	}
	switch {
	case d.Kind == Document:
		if d.Username != "" && d.Password != "" {
			u.User = url.UserPassword(d.Username, d.Password)
		}
	default:
		u.User = url.UserPassword(d.Username, d.Password)
	}
	return u.String()
}

// fillFromURI copies the discrete fields that are still empty from the URI.
// Mongo seed lists (a,b,c) are kept verbatim as the host.
func (d *ConnectionDescriptor) fillFromURI() error {
	u, err := url.Parse(d.URI)
	if err != nil {
		return invalid("DATABASE_URI", "cannot parse: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return invalid("DATABASE_URI", "missing scheme or host")
	}

	if d.Host == "" {
		if strings.Contains(u.Host, ",") {
			d.Host = u.Host
		} else {
			d.Host = u.Hostname()
		}
	}
	if d.Port == 0 && !strings.Contains(u.Host, ",") {
		if p, err := strconv.Atoi(u.Port()); err == nil {
			d.Port = p
		}
	}
	if u.User != nil {
		if d.Username == "" {
			d.Username = u.User.Username()
		}
		if d.Password == "" {
			d.Password, _ = u.User.Password()
		}
	}
	if d.Database == "" {
		d.Database = strings.TrimPrefix(u.Path, "/")
	}
	return nil
}

// Redacted returns the URI with the password replaced, for logging.
func (d ConnectionDescriptor) Redacted() string {
	u, err := url.Parse(d.URI)
	if err != nil {
		return string(d.Kind) + "://<unparseable>"
	}
	return u.Redacted()
}
