package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContextDefaultsToUnpaginated(t *testing.T) {
	p := paramsFor(t, "")
	if p.Enabled() {
		t.Fatalf("expected paging disabled, got %+v", p)
	}
	if p.SQL() != "" {
		t.Fatalf("expected empty SQL clause, got %q", p.SQL())
	}
}

func TestFromContextReadsLimitAndOffset(t *testing.T) {
	p := paramsFor(t, "limit=25&offset=50")
	if p.Limit != 25 || p.Offset != 50 {
		t.Fatalf("got %+v", p)
	}
	if p.SQL() != " LIMIT 25 OFFSET 50" {
		t.Fatalf("SQL = %q", p.SQL())
	}
}

func TestFromContextCapsLimit(t *testing.T) {
	p := paramsFor(t, "limit=100000")
	if p.Limit != MaxLimit {
		t.Fatalf("limit = %d, want %d", p.Limit, MaxLimit)
	}
}

func TestFromContextIgnoresNegativeValues(t *testing.T) {
	p := paramsFor(t, "limit=-5&offset=-10")
	if p.Enabled() || p.Offset != 0 {
		t.Fatalf("got %+v", p)
	}
}

func TestHasNext(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	if !p.HasNext(11) {
		t.Fatal("expected more results")
	}
	if p.HasNext(10) {
		t.Fatal("expected no more results")
	}
	if (Params{}).HasNext(100) {
		t.Fatal("unpaginated listings never report a next page")
	}
}
