package http

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	Coin string  `query:"coin" validate:"required,slug"`
	Eps  float64 `query:"eps" default:"0.1" validate:"gt=0,lte=10"`
	Date string  `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

var slug = regexp.MustCompile(`^[a-z0-9-]+$`)

func init() {
	if err := RegisterValidation("slug", slug.MatchString); err != nil {
		panic(err)
	}
}

func bind(t *testing.T, target string) (*sampleRequest, []ValidationError) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	var r sampleRequest
	errs := ReadAndValidateRequest(c, &r)
	return &r, errs
}

func TestReadAndValidateDefaults(t *testing.T) {
	r, errs := bind(t, "/?coin=bitcoin")
	if errs != nil {
		t.Fatalf("unexpected errors %+v", errs)
	}
	if r.Eps != 0.1 {
		t.Fatalf("default eps not applied: %v", r.Eps)
	}

	r, errs = bind(t, "/?coin=bitcoin&eps=0.5")
	if errs != nil || r.Eps != 0.5 {
		t.Fatalf("explicit eps lost: %v %+v", r.Eps, errs)
	}
}

func TestReadAndValidateErrors(t *testing.T) {
	cases := map[string]string{
		"/?eps=0.2":                  "ERR_REQUIRED",
		"/?coin=Bit%20Coin":          "ERR_SLUG",
		"/?coin=bitcoin&eps=11":      "ERR_LTE",
		"/?coin=bitcoin&date=3/1/23": "ERR_DATETIME",
	}
	for target, code := range cases {
		_, errs := bind(t, target)
		if len(errs) != 1 || errs[0].Code != code {
			t.Fatalf("%s: got %+v, want %s", target, errs, code)
		}
	}
}
