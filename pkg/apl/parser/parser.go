package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aegis-hq/warden/pkg/apl/ast"
	aplErrors "aegis-hq/warden/pkg/apl/errors"
)

// Parser parses APL bundle files into ASTs. It handles YAML decoding and
// AST construction; enum-level validation is the validator's job so a
// single bad rule never fails a whole bundle here.
type Parser struct {
	maxFileSize int64 // Maximum file size in bytes (default: 10MB)
}

// NewParser creates a parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024, // 10MB
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// Parse parses the bundle file at the given path and returns the AST.
// It returns an error when the file cannot be read, has invalid YAML
// syntax, or is structurally unbuildable (e.g. a broken zone matrix).
func (p *Parser) Parse(path string) (*ast.Bundle, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, &aplErrors.Error{
			Type:     aplErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}

	if fileInfo.Size() > p.maxFileSize {
		return nil, &aplErrors.Error{
			Type:     aplErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", fileInfo.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	yamlBundle, err := parseYAMLFile(path)
	if err != nil {
		return nil, &aplErrors.Error{
			Type:       aplErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: path, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	bundle, err := newBuilder(path).buildBundle(yamlBundle)
	if err != nil {
		if errList, ok := err.(*aplErrors.ErrorList); ok {
			for i, e := range errList.Errors {
				errList.Errors[i] = aplErrors.AddContextToError(e)
			}
		}
		return nil, err
	}

	return bundle, nil
}

// ParseBytes parses bundle YAML from a byte slice. Useful for testing
// and for sources that hold bundles in memory.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Bundle, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &aplErrors.Error{
			Type:     aplErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	yamlBundle, err := parseYAMLBytes(data)
	if err != nil {
		return nil, &aplErrors.Error{
			Type:       aplErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	return newBuilder(sourcePath).buildBundle(yamlBundle)
}

// ParseDir parses every .yaml/.yml file in a directory, in lexical
// order, and merges them into a single bundle: the first file provides
// the metadata, default action and zone matrix; rules and tests from
// later files are appended in file order.
func (p *Parser) ParseDir(dir string) (*ast.Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &aplErrors.Error{
			Type:     aplErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read directory: %v", err),
			Location: ast.Location{File: dir},
		}
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, &aplErrors.Error{
			Type:     aplErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("No bundle files found in %q", dir),
			Location: ast.Location{File: dir},
		}
	}

	bundle, err := p.Parse(paths[0])
	if err != nil {
		return nil, err
	}

	for _, path := range paths[1:] {
		additional, err := p.Parse(path)
		if err != nil {
			return nil, err
		}
		bundle.Rules = append(bundle.Rules, additional.Rules...)
		bundle.Tests = append(bundle.Tests, additional.Tests...)
	}

	return bundle, nil
}
