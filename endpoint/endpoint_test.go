package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type headerPreprocessor struct {
	Key   string
	Value string
}

func (hp headerPreprocessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if hp.Key != "" {
		w.Header().Set(hp.Key, hp.Value)
	}
	return next(w, r)
}

func TestHandler_Constructors(t *testing.T) {
	h1 := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: "h1"}, nil
	})
	hf := HandleFunc(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: "hf"}, nil
	})
	type MyParams struct {
		Val string
	}
	h2 := EndpointHandler[MyParams]{
		Endpoint: func(_ http.ResponseWriter, _ *http.Request, p MyParams) (Renderer, error) {
			return &StringRenderer{Body: "h2"}, nil
		},
	}

	req := httptest.NewRequest("GET", "/", nil)

	rec1 := httptest.NewRecorder()
	h1.ServeHTTP(rec1, req)
	if rec1.Body.String() != "h1" {
		t.Errorf("Handler failed")
	}
	rec2 := httptest.NewRecorder()
	hf(rec2, req)
	if rec2.Body.String() != "hf" {
		t.Errorf("HandleFunc failed")
	}
	rec3 := httptest.NewRecorder()
	h2.ServeHTTP(rec3, req)
	if rec3.Body.String() != "h2" {
		t.Errorf("EndpointHandler failed")
	}
}

func TestHandler_ProcessorsRunInOrder(t *testing.T) {
	var order []string
	mk := func(name string) Processor {
		return ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
			order = append(order, name+">")
			err := next(w, r)
			order = append(order, "<"+name)
			return err
		})
	}
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		order = append(order, "endpoint")
		return &NoContentRenderer{}, nil
	}, mk("a"), mk("b"), headerPreprocessor{Key: "X-Test", Value: "1"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if got, want := strings.Join(order, " "), "a> b> endpoint <b <a"; got != want {
		t.Errorf("order: got %q, want %q", got, want)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status: got %d", rec.Code)
	}
	if rec.Header().Get("X-Test") != "1" {
		t.Errorf("processor header missing")
	}
}

func TestHandler_ProcessorShortCircuit(t *testing.T) {
	called := false
	deny := ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		return Error(http.StatusForbidden, "nope", nil)
	})
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		called = true
		return &NoContentRenderer{}, nil
	}, deny)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if called {
		t.Error("endpoint ran after processor error")
	}
	if rec.Code != http.StatusForbidden || strings.TrimSpace(rec.Body.String()) != "nope" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"endpoint error", Error(http.StatusBadRequest, "bad state", errors.New("secret detail")), http.StatusBadRequest, "bad state"},
		{"empty message", Error(http.StatusBadGateway, "", nil), http.StatusBadGateway, "Bad Gateway"},
		{"wrapped", fmt.Errorf("ctx: %w", Error(http.StatusNotFound, "missing", nil)), http.StatusNotFound, "missing"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
				return nil, tt.err
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.body {
				t.Errorf("body: got %q, want %q", got, tt.body)
			}
		})
	}
}

func TestHandler_NilRenderer(t *testing.T) {
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return nil, nil
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestError_KeepsInnermostStatus(t *testing.T) {
	inner := Error(http.StatusBadRequest, "inner", nil)
	outer := Error(http.StatusInternalServerError, "outer", inner)
	var ee *EndpointError
	if !errors.As(outer, &ee) || ee.Status != http.StatusBadRequest {
		t.Errorf("got %v", outer)
	}

	cause := errors.New("cause")
	err := Error(http.StatusBadGateway, "msg", cause)
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}
	if err.Error() != "msg: cause" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestDeferAndCommit(t *testing.T) {
	var order []string
	p := ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		Defer(r.Context(), func(w http.ResponseWriter) {
			order = append(order, "first")
			w.Header().Set("X-Deferred", "yes")
		})
		Defer(r.Context(), func(w http.ResponseWriter) {
			order = append(order, "second")
		})
		return next(w, r)
	})

	for _, fail := range []bool{false, true} {
		order = nil
		h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
			if fail {
				return nil, Error(http.StatusBadRequest, "bad", nil)
			}
			return &StringRenderer{Body: "ok"}, nil
		}, p)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

		if got := strings.Join(order, ","); got != "second,first" {
			t.Errorf("fail=%v: hooks ran %q", fail, got)
		}
		if rec.Header().Get("X-Deferred") != "yes" {
			t.Errorf("fail=%v: deferred header missing", fail)
		}
	}

	// Outside a handler Defer and Commit do nothing.
	Defer(context.Background(), func(http.ResponseWriter) { t.Error("hook ran") })
	Commit(context.Background(), httptest.NewRecorder())
}

func TestHandler_DecodeParams(t *testing.T) {
	type params struct {
		Next string `query:"next_url"`
		ID   int    `path:"id"`
	}
	mux := http.NewServeMux()
	mux.Handle("GET /items/{id}", Handler(func(_ http.ResponseWriter, _ *http.Request, p params) (Renderer, error) {
		return &StringRenderer{Body: fmt.Sprintf("%d %s", p.ID, p.Next)}, nil
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/items/42?next_url=/home", nil))
	if rec.Body.String() != "42 /home" {
		t.Errorf("body: got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/items/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", rec.Code)
	}
}
