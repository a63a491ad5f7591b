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

package cache

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

const (
	encodingJSON byte = 'j'
	encodingGzip byte = 'z'
)

var errUnknownEncoding = errors.New("unknown cache entry encoding")

// codec serialises values with a one byte encoding header. Payloads of at
// least threshold bytes are gzip compressed; threshold 0 disables compression.
type codec struct {
	threshold int
}

func (c codec) encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if c.threshold <= 0 || len(payload) < c.threshold {
		return append([]byte{encodingJSON}, payload...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(encodingGzip)
	zw := gzip.NewWriter(&buf)
	if _, err = zw.Write(payload); err != nil {
		return nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c codec) decode(data []byte, v any) error {
	if len(data) == 0 {
		return errUnknownEncoding
	}
	switch data[0] {
	case encodingJSON:
		return json.Unmarshal(data[1:], v)
	case encodingGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data[1:]))
		if err != nil {
			return err
		}
		defer zr.Close()
		payload, err := io.ReadAll(zr)
		if err != nil {
			return err
		}
		return json.Unmarshal(payload, v)
	default:
		return errUnknownEncoding
	}
}
