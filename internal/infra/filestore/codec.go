package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatTOML, FormatCBOR:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown storage format %q (want json, yaml, toml or cbor)", s)
}

// codec turns collection envelopes into bytes and back.
type codec interface {
	marshal(v any) ([]byte, error)
	unmarshal(data []byte, v any) error
	ext() string
}

func codecFor(f Format) (codec, error) {
	switch f {
	case FormatJSON:
		return jsonCodec{}, nil
	case FormatYAML:
		return yamlCodec{}, nil
	case FormatTOML:
		return tomlCodec{}, nil
	case FormatCBOR:
		return newCBORCodec()
	}
	return nil, fmt.Errorf("unknown storage format %q", f)
}

type jsonCodec struct{}

func (jsonCodec) marshal(v any) ([]byte, error)      { return json.MarshalIndent(v, "", "  ") }
func (jsonCodec) unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) ext() string                        { return "json" }

type yamlCodec struct{}

func (yamlCodec) marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlCodec) unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }
func (yamlCodec) ext() string                        { return "yaml" }

type tomlCodec struct{}

func (tomlCodec) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) unmarshal(data []byte, v any) error {
	_, err := toml.Decode(string(data), v)
	return err
}

func (tomlCodec) ext() string { return "toml" }

// cborCodec uses Core Deterministic Encoding so identical collections
// produce identical bytes and checksums.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() (codec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}
	return cborCodec{enc: enc, dec: dec}, nil
}

func (c cborCodec) marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
func (cborCodec) ext() string                          { return "cbor" }
