// Package http provides HTTP server and handler implementations.
//
// This file turns request bodies and query strings into expense input and
// dashboard filters. JSON and form-encoded bodies are both accepted since
// the API and the htmx forms post the same fields.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/dashboard"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 64 << 10
)

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse decodes the body as JSON when it looks like an object and as form
// data otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", core.ErrValidation)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", core.ErrValidation)
	}
	return p.err
}

// Get returns the first non-empty value among keys.
func (p *RequestBodyParser) Get(keys ...string) string {
	for _, key := range keys {
		var v string
		if p.jsonData != nil {
			v = stringValue(p.jsonData[key])
		} else if p.formData != nil {
			v = p.formData.Get(key)
		}
		if v = sanitizeInput(v); v != "" {
			return v
		}
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseExpenseInput reads {amount, categoryId, description, date}. Form
// posts may name the category field "category". A bare YYYY-MM-DD date is
// midnight in loc.
func ParseExpenseInput(r *http.Request, loc *time.Location) (core.ExpenseInput, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.ExpenseInput{}, err
	}

	amount, err := core.ParseMoney(p.Get("amount"))
	if err != nil {
		return core.ExpenseInput{}, err
	}
	in := core.ExpenseInput{
		Amount:      amount,
		CategoryID:  p.Get("categoryId", "category"),
		Description: p.Get("description"),
	}

	raw := p.Get("date")
	if raw == "" {
		return core.ExpenseInput{}, core.ErrMissingDate
	}
	if in.Date, err = parseDate(raw, loc); err != nil {
		return core.ExpenseInput{}, err
	}
	return in, in.Validate()
}

// parseDate accepts YYYY-MM-DD, read as midnight in loc, or RFC 3339.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", core.ErrValidation, s)
}

// parseOptionalDate treats an empty value as "no bound".
func parseOptionalDate(s string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return parseDate(s, loc)
}

func parsePeriod(s string) (core.Period, error) {
	p, err := core.ParsePeriod(s)
	if err != nil {
		return "", fmt.Errorf("%w: unknown period %q", core.ErrValidation, s)
	}
	return p, nil
}

// ParseFilterQuery builds a dashboard filter from period, start, end,
// category, search and page parameters, starting from the default filter.
func ParseFilterQuery(q url.Values, def core.Period, loc *time.Location) (dashboard.Filter, error) {
	f := dashboard.DefaultFilter(def)

	if v := q.Get("period"); v != "" {
		p, err := parsePeriod(v)
		if err != nil {
			return f, err
		}
		f = f.WithPeriod(p)
	}
	start, err := parseOptionalDate(q.Get("start"), loc)
	if err != nil {
		return f, err
	}
	end, err := parseOptionalDate(q.Get("end"), loc)
	if err != nil {
		return f, err
	}
	if !start.IsZero() {
		f = f.WithStartDate(start)
	}
	if !end.IsZero() {
		f = f.WithEndDate(end)
	}
	if v := q.Get("category"); v != "" {
		f = f.WithCategory(v)
	}
	if v := q.Get("search"); v != "" {
		f = f.WithSearch(sanitizeInput(v))
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%w: invalid page %q", core.ErrValidation, v)
		}
		f = f.WithPage(n)
	}
	return f, nil
}

// ParseLimit reads a positive integer, falling back to def and capping at max.
func ParseLimit(s string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
