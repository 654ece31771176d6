// Package http provides the HTTP presentation layer for the expense log.
//
// This file implements utilities for parsing and validating request data.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// maxBodyBytes bounds request bodies; expense payloads are tiny.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Lookup returns the sanitized value and whether the key was present and non-null.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok || val == nil {
			return "", false
		}
		return sanitizeInput(stringValue(val)), true
	}
	if p.formData != nil {
		if _, ok := p.formData[key]; !ok {
			return "", false
		}
		return sanitizeInput(p.formData.Get(key)), true
	}
	return "", false
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ExpenseInput is the raw add-expense payload.
type ExpenseInput struct {
	Amount   string
	Category string
	Note     *string
}

// ParseExpenseInput extracts amount, category and note from a parsed body.
// A missing note stays nil; blank notes are normalized later by the core.
func ParseExpenseInput(p *RequestBodyParser) ExpenseInput {
	in := ExpenseInput{
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
	}
	if note, ok := p.Lookup("note"); ok {
		in.Note = &note
	}
	return in
}

// ParseWindowParam reads the window query parameter, falling back to all.
func ParseWindowParam(query url.Values) (core.Window, error) {
	return core.ParseWindow(query.Get("window"))
}

// ParseIDParam reads a positive expense id from the path.
func ParseIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
