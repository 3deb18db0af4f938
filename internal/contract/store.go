// Package contract owns the shared contract documents: the OpenAPI document
// and the compiled JSON Schemas used to validate tool payloads.
package contract

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/afero"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/emscape/roze-mcp/pkg/types"
)

const (
	// ContractOrderCreate is the schema name for order creation payloads.
	ContractOrderCreate = "order.create"
	// ContractSubscribeCreate is the schema name for subscription creation payloads.
	ContractSubscribeCreate = "subscribe.create"

	// openAPIFileName is the OpenAPI document file inside the contracts directory.
	openAPIFileName = "openapi.yaml"
)

// registeredContracts is the closed set of payload schemas the store loads.
// Each name maps to a "<name>.schema.json" file in the contracts directory.
var registeredContracts = []string{ContractOrderCreate, ContractSubscribeCreate}

// ErrUnknownContract is returned when a schema name is not in the registered set.
var ErrUnknownContract = errors.New("unknown contract")

// ValidationResult is the outcome of validating a payload against a schema.
// When invalid, Errors contains every constraint violation found in one pass,
// not just the first.
type ValidationResult struct {
	Valid  bool
	Errors []types.FieldError
}

// Store holds the contract documents. It is read-only after Load and safe for
// concurrent use by in-flight dispatches without coordination.
type Store struct {
	openAPIRaw []byte

	schemaRaw map[string][]byte
	compiled  map[string]*jsonschema.Schema
}

// localized renders schema violation messages in plain english.
var localized = message.NewPrinter(language.English)

// Load reads the OpenAPI document and every registered JSON Schema from dir.
// A missing or unparseable file is a fatal startup error, not a per-request
// error, so Load fails hard instead of degrading.
func Load(fsys afero.Fs, dir string) (*Store, error) {
	s := &Store{
		schemaRaw: make(map[string][]byte, len(registeredContracts)),
		compiled:  make(map[string]*jsonschema.Schema, len(registeredContracts)),
	}

	openAPIPath := path.Join(dir, openAPIFileName)
	raw, err := afero.ReadFile(fsys, openAPIPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI document %s: %w", openAPIPath, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("OpenAPI document %s is not valid YAML: %w", openAPIPath, err)
	}
	s.openAPIRaw = raw

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()

	for _, name := range registeredContracts {
		schemaPath := path.Join(dir, name+".schema.json")
		raw, err := afero.ReadFile(fsys, schemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", schemaPath, err)
		}

		parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("schema %s is not valid JSON: %w", schemaPath, err)
		}
		if err := compiler.AddResource(schemaPath, parsed); err != nil {
			return nil, fmt.Errorf("failed to register schema %s: %w", schemaPath, err)
		}
		compiled, err := compiler.Compile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", schemaPath, err)
		}

		s.schemaRaw[name] = raw
		s.compiled[name] = compiled
	}

	return s, nil
}

// Names returns the registered contract names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.schemaRaw))
	for name := range s.schemaRaw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAPIDocument returns the raw OpenAPI document, verbatim.
func (s *Store) OpenAPIDocument() string {
	return string(s.openAPIRaw)
}

// SchemaDocument returns the raw JSON Schema for the given contract name,
// verbatim. Returns ErrUnknownContract if the name is not registered.
func (s *Store) SchemaDocument(name string) (string, error) {
	raw, ok := s.schemaRaw[name]
	if !ok {
		return "", fmt.Errorf("%w: '%s', registered contracts are: %s", ErrUnknownContract, name, strings.Join(s.Names(), ", "))
	}
	return string(raw), nil
}

// Validate checks the payload against the named schema and collects every
// constraint violation, each with the dotted path of the offending field.
func (s *Store) Validate(name string, payload any) (ValidationResult, error) {
	schema, ok := s.compiled[name]
	if !ok {
		return ValidationResult{}, fmt.Errorf("%w: '%s', registered contracts are: %s", ErrUnknownContract, name, strings.Join(s.Names(), ", "))
	}

	err := schema.Validate(payload)
	if err == nil {
		return ValidationResult{Valid: true}, nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return ValidationResult{}, fmt.Errorf("failed to validate payload against schema %s: %w", name, err)
	}

	return ValidationResult{Errors: collectFieldErrors(verr)}, nil
}

// collectFieldErrors flattens the validation error tree into the ordered
// list of leaf violations.
func collectFieldErrors(verr *jsonschema.ValidationError) []types.FieldError {
	if len(verr.Causes) == 0 {
		return []types.FieldError{{
			Path:    dottedPath(verr.InstanceLocation),
			Message: verr.ErrorKind.LocalizedString(localized),
		}}
	}
	var fields []types.FieldError
	for _, cause := range verr.Causes {
		fields = append(fields, collectFieldErrors(cause)...)
	}
	return fields
}

func dottedPath(location []string) string {
	if len(location) == 0 {
		return "$"
	}
	return strings.Join(location, ".")
}
