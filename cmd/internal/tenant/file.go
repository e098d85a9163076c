package tenant

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDoc mirrors the services table layout, one entry per service:
//
//	services:
//	  - service: billing
//	    token:
//	      secret: "..."
//	      timeout: 3600
//	      format: jwt
//	    password:
//	      secret: "..."
type fileDoc struct {
	Services []serviceDoc `yaml:"services"`
}

type serviceDoc struct {
	Service string `yaml:"service"`
	Token   struct {
		Secret  string `yaml:"secret"`
		Timeout int64  `yaml:"timeout"`
		Format  string `yaml:"format"`
	} `yaml:"token"`
	Password struct {
		Secret string `yaml:"secret"`
	} `yaml:"password"`
}

// LoadFile reads the descriptor called name from a YAML file.
func LoadFile(path, name string) (Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path.
	if err != nil {
		return Config{}, fmt.Errorf("read service file: %w", err)
	}
	return ParseFile(data, name)
}

// ParseFile selects the descriptor called name from YAML data.
// Unknown keys are rejected so typos fail loudly.
func ParseFile(data []byte, name string) (Config, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parse service file: %v", ErrInvalid, err)
	}

	for _, s := range doc.Services {
		if s.Service != name {
			continue
		}
		timeout, err := timeoutFromSeconds(s.Token.Timeout)
		if err != nil {
			return Config{}, err
		}
		return Config{
			Name:           s.Service,
			TokenSecret:    []byte(s.Token.Secret),
			TokenTimeout:   timeout,
			PasswordPepper: []byte(s.Password.Secret),
			TokenFormat:    s.Token.Format,
		}.Validate()
	}
	return Config{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}
