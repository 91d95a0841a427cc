package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/apiwire-hq/apiwire/pkg/typedhttp"
)

// Package services loads declarative service/endpoint definitions (YAML/JSON)
// and materializes request descriptors from them.

const defaultTimeoutSeconds = 15

// Service declares a callable host with its endpoints.
type Service struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Scheme         string            `json:"scheme" yaml:"scheme"`
	Host           string            `json:"host" yaml:"host"`
	Port           int               `json:"port" yaml:"port"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Endpoints      []Endpoint        `json:"endpoints" yaml:"endpoints"`
}

// Endpoint declares one operation on a service.
type Endpoint struct {
	ID     string            `json:"id" yaml:"id"`
	Path   string            `json:"path" yaml:"path"`
	Method string            `json:"method" yaml:"method"`
	Query  map[string]string `json:"query" yaml:"query"`
}

// Timeout returns the per-request timeout for the service.
func (s Service) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type registryFile struct {
	Services []Service `json:"services" yaml:"services"`
}

// Registry materializes service definitions loaded from a config file.
type Registry struct {
	services []Service
	idx      map[string]Service
}

// LoadRegistry loads the service registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("services file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open services file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(reg.Services) == 0 {
		return nil, errors.New("services file contains no services entries")
	}

	idx := make(map[string]Service, len(reg.Services))
	for i := range reg.Services {
		s := sanitizeService(reg.Services[i])
		if err := validateService(s); err != nil {
			return nil, fmt.Errorf("service[%d]: %w", i, err)
		}
		if _, exists := idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate service id %q", s.ID)
		}
		reg.Services[i] = s
		idx[s.ID] = s
	}

	return &Registry{services: reg.Services, idx: idx}, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yamlUnmarshal},
		{name: "yaml", ext: ".yml", fn: yamlUnmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("services file format not recognized (expected YAML or JSON)")
}

func yamlUnmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

func sanitizeService(s Service) Service {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Scheme = strings.TrimSpace(strings.ToLower(s.Scheme))
	s.Host = strings.TrimSpace(s.Host)

	if s.Headers == nil {
		s.Headers = map[string]string{}
	}

	for i := range s.Endpoints {
		e := s.Endpoints[i]
		e.ID = strings.TrimSpace(e.ID)
		e.Path = strings.TrimSpace(e.Path)
		e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
		if e.Method == "" {
			e.Method = "GET"
		}
		s.Endpoints[i] = e
	}

	return s
}

func validateService(s Service) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Host == "" {
		return fmt.Errorf("host is required for service %q", s.ID)
	}
	if len(s.Endpoints) == 0 {
		return fmt.Errorf("service %q declares no endpoints", s.ID)
	}

	seen := make(map[string]struct{}, len(s.Endpoints))
	for i, e := range s.Endpoints {
		if e.ID == "" {
			return fmt.Errorf("service %q endpoint[%d]: id is required", s.ID, i)
		}
		if e.Path == "" {
			return fmt.Errorf("service %q endpoint %q: path is required", s.ID, e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("service %q has duplicate endpoint id %q", s.ID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// All returns a copy of the loaded services.
func (r *Registry) All() []Service {
	if r == nil || len(r.services) == 0 {
		return nil
	}
	out := make([]Service, len(r.services))
	copy(out, r.services)
	return out
}

// ServiceByID returns the service entry for the given id, if loaded.
func (r *Registry) ServiceByID(id string) (Service, bool) {
	if r == nil || r.idx == nil {
		return Service{}, false
	}
	s, ok := r.idx[strings.TrimSpace(id)]
	return s, ok
}

// Overrides carries per-call values merged into a materialized descriptor.
type Overrides struct {
	Query        map[string]string
	BearerToken  string
	CookieHeader string
	Body         []byte
	ContentType  string
}

// Descriptor materializes the request descriptor for a service endpoint,
// merging endpoint defaults with per-call overrides.
func (r *Registry) Descriptor(serviceID, endpointID string, ov Overrides) (typedhttp.Descriptor, error) {
	svc, ok := r.ServiceByID(serviceID)
	if !ok {
		return typedhttp.Descriptor{}, fmt.Errorf("unknown service %q", serviceID)
	}

	var ep Endpoint
	found := false
	for _, e := range svc.Endpoints {
		if e.ID == strings.TrimSpace(endpointID) {
			ep = e
			found = true
			break
		}
	}
	if !found {
		return typedhttp.Descriptor{}, fmt.Errorf("service %q has no endpoint %q", serviceID, endpointID)
	}

	query := make(map[string]string, len(ep.Query)+len(ov.Query))
	for k, v := range ep.Query {
		query[k] = v
	}
	for k, v := range ov.Query {
		query[k] = v
	}

	headers := make(map[string]string, len(svc.Headers))
	for k, v := range svc.Headers {
		headers[k] = v
	}

	return typedhttp.Descriptor{
		Scheme:       svc.Scheme,
		Host:         svc.Host,
		Port:         svc.Port,
		Path:         ep.Path,
		Method:       ep.Method,
		Query:        query,
		Header:       headers,
		CookieHeader: ov.CookieHeader,
		BearerToken:  ov.BearerToken,
		Body:         ov.Body,
		ContentType:  ov.ContentType,
		Label:        svc.ID + "/" + ep.ID,
	}, nil
}
