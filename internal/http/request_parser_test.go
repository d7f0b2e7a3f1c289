package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/dashboard"
)

func newBodyRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestParseExpenseInput(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		body        string
		contentType string
		wantAmount  string
		wantCat     string
		wantDate    time.Time
		wantErr     error
	}{
		{
			name:        "json number amount",
			body:        `{"amount": 12.5, "categoryId": "c1", "description": " Lunch ", "date": "2024-03-09"}`,
			contentType: "application/json",
			wantAmount:  "12.50", wantCat: "c1", wantDate: day,
		},
		{
			name:        "json string amount with comma",
			body:        `{"amount": "7,25", "categoryId": "c1", "date": "2024-03-09T00:00:00Z"}`,
			contentType: "application/json",
			wantAmount:  "7.25", wantCat: "c1", wantDate: day,
		},
		{
			name:        "form with category alias",
			body:        "amount=3&category=c2&date=2024-03-09",
			contentType: "application/x-www-form-urlencoded",
			wantAmount:  "3.00", wantCat: "c2", wantDate: day,
		},
		{
			name:        "non numeric amount",
			body:        `{"amount": "abc", "categoryId": "c1", "date": "2024-03-09"}`,
			contentType: "application/json",
			wantErr:     core.ErrInvalidAmount,
		},
		{
			name:        "negative amount",
			body:        `{"amount": -4, "categoryId": "c1", "date": "2024-03-09"}`,
			contentType: "application/json",
			wantErr:     core.ErrInvalidAmount,
		},
		{
			name:        "missing date",
			body:        `{"amount": 4, "categoryId": "c1"}`,
			contentType: "application/json",
			wantErr:     core.ErrMissingDate,
		},
		{
			name:        "missing category",
			body:        `{"amount": 4, "date": "2024-03-09"}`,
			contentType: "application/json",
			wantErr:     core.ErrEmptyCategory,
		},
		{
			name:        "bad date",
			body:        `{"amount": 4, "categoryId": "c1", "date": "09/03/2024"}`,
			contentType: "application/json",
			wantErr:     core.ErrValidation,
		},
		{
			name:        "malformed json",
			body:        `{"amount": `,
			contentType: "application/json",
			wantErr:     core.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseExpenseInput(newBodyRequest(tt.body, tt.contentType), time.UTC)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if in.Amount.String() != tt.wantAmount {
				t.Errorf("Amount = %s, want %s", in.Amount, tt.wantAmount)
			}
			if in.CategoryID != tt.wantCat {
				t.Errorf("CategoryID = %q, want %q", in.CategoryID, tt.wantCat)
			}
			if !in.Date.Equal(tt.wantDate) {
				t.Errorf("Date = %v, want %v", in.Date, tt.wantDate)
			}
		})
	}
}

func TestParseExpenseInput_SanitizesDescription(t *testing.T) {
	in, err := ParseExpenseInput(newBodyRequest(
		`{"amount": 1, "categoryId": "c", "date": "2024-01-01", "description": "  Taxi\u0007 home "}`,
		"application/json"), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if in.Description != "Taxi home" {
		t.Fatalf("Description = %q", in.Description)
	}
}

func TestParseExpenseInput_DateInLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	in, err := ParseExpenseInput(newBodyRequest(
		`{"amount": 1, "categoryId": "c", "date": "2024-03-15"}`, "application/json"), loc)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, loc); !in.Date.Equal(want) {
		t.Fatalf("Date = %v, want %v", in.Date, want)
	}

	// same calendar day as "today" for a clock in that zone
	now := time.Date(2024, 3, 15, 20, 0, 0, 0, loc)
	cutoff, _ := core.PeriodToday.Cutoff(now)
	if in.Date.Before(cutoff) {
		t.Fatalf("date %v falls before today's cutoff %v", in.Date, cutoff)
	}
	if got := formDate(in.Date.UTC(), loc); got != "2024-03-15" {
		t.Fatalf("formDate = %q", got)
	}
}

func TestParseFilterQuery(t *testing.T) {
	f, err := ParseFilterQuery(url.Values{}, core.PeriodLast30Days, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if f != dashboard.DefaultFilter(core.PeriodLast30Days) {
		t.Fatalf("empty query should give default filter, got %+v", f)
	}

	f, err = ParseFilterQuery(url.Values{
		"period":   {"week"},
		"category": {"c9"},
		"search":   {"coffee"},
		"page":     {"3"},
	}, core.DefaultPeriod, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if f.Period != core.PeriodLast7Days || f.CategoryID != "c9" || f.Search != "coffee" || f.Page != 3 {
		t.Fatalf("unexpected filter %+v", f)
	}

	f, err = ParseFilterQuery(url.Values{"period": {"today"}, "start": {"2024-01-01"}}, core.DefaultPeriod, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if f.Period != core.PeriodAllTime {
		t.Fatalf("explicit date should force all-time, got %s", f.Period)
	}

	for _, bad := range []url.Values{
		{"period": {"fortnight"}},
		{"start": {"yesterday"}},
		{"page": {"two"}},
	} {
		if _, err := ParseFilterQuery(bad, core.DefaultPeriod, time.UTC); !errors.Is(err, core.ErrValidation) {
			t.Errorf("%v: err = %v, want validation error", bad, err)
		}
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 20}, {"abc", 20}, {"0", 20}, {"5", 5}, {"500", 100},
	}
	for _, c := range cases {
		if got := ParseLimit(c.in, 20, 100); got != c.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
