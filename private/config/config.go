// Copyright 2025 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides a unified pattern for configuration structs.
//
// Every configuration block implements the Config interface, which consists
// of three parts:
//
//   - InitDefaults recursively fills in unset fields. Fields that should not
//     be defaulted must be set before calling it.
//   - Validate recursively checks all fields.
//   - Sample writes a commented TOML sample of the block. Every block has a
//     test that decodes its own sample, which keeps the samples and the
//     defaults consistent.
//
// Sample is allowed to panic if writing the sample fails.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/scionproto/srvpool/pkg/private/serrors"
)

// ID is the context key for the service identifier in samples.
const ID = "id"

// Config is the interface that config structs should implement to allow for
// streamlined initialization, validation and sample generation.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator defines the validation part of Config.
type Validator interface {
	// Validate recursively checks that all fields contain valid values.
	Validate() error
}

// Defaulter defines the initialization part of Config.
type Defaulter interface {
	// InitDefaults recursively initializes the default values of all
	// uninitialized fields.
	InitDefaults()
}

// Sampler defines the sample generation part of Config.
type Sampler interface {
	// Sample writes a sample config to dst. Ctx provides additional
	// information. Sample is allowed to panic if an error occurs.
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a sampler that writes a TOML table.
type TableSampler interface {
	Sampler
	// ConfigName returns the name of the table.
	ConfigName() string
}

// Path is the header of a config block possibly consisting of multiple parts.
type Path []string

// Extend creates a copy of the path with s appended.
func (p Path) Extend(s string) Path {
	c := append(Path(nil), p...)
	return append(c, s)
}

// NoValidator implements a Validator that never fails to validate. It can
// be embedded in config structs that do not need to validate.
type NoValidator struct{}

// Validate always returns nil.
func (NoValidator) Validate() error {
	return nil
}

// NoDefaulter implements a Defaulter that does a no-op on InitDefaults.
// It can be embedded in config structs that do not have any defaults.
type NoDefaulter struct{}

// InitDefaults is a no-op.
func (NoDefaulter) InitDefaults() {}

// StringSampler is a TableSampler that writes a fixed text.
type StringSampler struct {
	Text string
	Name string
}

// Sample writes the text to dst.
func (s StringSampler) Sample(dst io.Writer, _ Path, _ CtxMap) {
	fmt.Fprint(dst, s.Text)
}

// ConfigName returns the name.
func (s StringSampler) ConfigName() string {
	return s.Name
}

// ValidateAll validates all validators. The first error encountered is returned.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return serrors.Wrap("validating config", err, "type", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

// InitAll initializes all defaulters.
func InitAll(defaulters ...Defaulter) {
	for _, v := range defaulters {
		v.InitDefaults()
	}
}

// Decode decodes a raw TOML config. Unknown fields are rejected.
func Decode(raw []byte, cfg any) error {
	return toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg)
}

// LoadFile loads the config from file.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return Decode(raw, cfg)
}

// LoadResource opens the resource at location. Locations starting with
// "http://" or "https://" are fetched with a GET request, everything else is
// opened as a file. The caller must close the returned reader.
func LoadResource(location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		resp, err := http.Get(location)
		if err != nil {
			return nil, serrors.Wrap("fetching config over HTTP", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, serrors.New("fetching config over HTTP", "status", resp.Status)
		}
		return resp.Body, nil
	}
	rc, err := os.Open(location)
	if err != nil {
		return nil, serrors.Wrap("loading config from disk", err)
	}
	return rc, nil
}

type nameOverrideSampler struct {
	Sampler
	name string
}

func (s nameOverrideSampler) ConfigName() string {
	return s.name
}

// OverrideName creates a sampler that is identical to s, except that it uses
// the given config name.
func OverrideName(s Sampler, name string) Sampler {
	return nameOverrideSampler{
		Sampler: s,
		name:    name,
	}
}

type formatDataSampler struct {
	Sampler
	data []any
}

func (s formatDataSampler) Sample(dst io.Writer, path Path, ctx CtxMap) {
	buf := &bytes.Buffer{}
	s.Sampler.Sample(buf, path, ctx)
	fmt.Fprintf(dst, buf.String(), s.data...)
}

// FormatData creates a sampler that formats the sample of s with the given
// arguments.
func FormatData(s Sampler, a ...any) Sampler {
	return formatDataSampler{
		Sampler: s,
		data:    a,
	}
}
