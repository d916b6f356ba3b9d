package config

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teranos/foundry/errors"
)

// Load reads, parses, and validates a pipeline document from path.
func Load(path string) (*PipelineSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read pipeline spec %s", path)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline spec %s", path)
	}
	return spec, nil
}

// Parse decodes and validates a pipeline document. Unknown fields are
// rejected so typos surface as parse errors instead of silently-ignored
// configuration.
func Parse(data []byte) (*PipelineSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec PipelineSpec
	if err := dec.Decode(&spec); err != nil {
		if err == io.EOF {
			return nil, errors.New("empty pipeline spec")
		}
		return nil, errors.Wrap(err, "parse pipeline spec")
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}
