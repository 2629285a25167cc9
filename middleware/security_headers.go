package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mnehpets/polarauth/endpoint"
)

// SecurityHeadersProcessor sets response security headers. Empty or zero
// fields leave the corresponding header unset.
type SecurityHeadersProcessor struct {
	// HSTSMaxAge is the Strict-Transport-Security max-age in seconds.
	HSTSMaxAge int
	// HSTSIncludeSubDomains adds includeSubDomains to HSTS.
	HSTSIncludeSubDomains bool

	ReferrerPolicy        string
	FrameOptions          string
	ContentTypeOptions    bool
	ContentSecurityPolicy string
	// CacheControl is set on every response. Login and callback responses
	// carry the state cookie and must use "no-store".
	CacheControl string
}

// SecurityHeadersOption configures a SecurityHeadersProcessor.
type SecurityHeadersOption func(*SecurityHeadersProcessor)

// NewSecurityHeadersProcessor returns a processor with defaults for HTML pages.
func NewSecurityHeadersProcessor(opts ...SecurityHeadersOption) *SecurityHeadersProcessor {
	p := &SecurityHeadersProcessor{
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubDomains: true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FrameOptions:          "DENY",
		ContentTypeOptions:    true,
		ContentSecurityPolicy: "default-src 'self'; base-uri 'self'; form-action 'self'; frame-ancestors 'none'",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewAuthHeadersProcessor returns a processor for login and callback
// endpoints: responses are never cached and the authorization code in the
// callback URL is never sent as a referrer.
func NewAuthHeadersProcessor(opts ...SecurityHeadersOption) *SecurityHeadersProcessor {
	p := &SecurityHeadersProcessor{
		HSTSMaxAge:            31536000,
		HSTSIncludeSubDomains: true,
		ReferrerPolicy:        "no-referrer",
		FrameOptions:          "DENY",
		ContentTypeOptions:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		CacheControl:          "no-store",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithHSTS sets the HSTS max-age; 0 disables the header.
func WithHSTS(maxAge int, includeSubDomains bool) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.HSTSMaxAge = maxAge
		p.HSTSIncludeSubDomains = includeSubDomains
	}
}

// WithReferrerPolicy sets the Referrer-Policy header.
func WithReferrerPolicy(policy string) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.ReferrerPolicy = policy
	}
}

// WithCSP sets the Content-Security-Policy header.
func WithCSP(policy string) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.ContentSecurityPolicy = policy
	}
}

// WithCacheControl sets the Cache-Control header.
func WithCacheControl(v string) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.CacheControl = v
	}
}

// Process implements endpoint.Processor.
func (p *SecurityHeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	h := w.Header()
	if hsts := p.hsts(); hsts != "" {
		h.Set("Strict-Transport-Security", hsts)
	}
	if p.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", p.ReferrerPolicy)
	}
	if p.FrameOptions != "" {
		h.Set("X-Frame-Options", p.FrameOptions)
	}
	if p.ContentTypeOptions {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if p.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", p.ContentSecurityPolicy)
	}
	if p.CacheControl != "" {
		h.Set("Cache-Control", p.CacheControl)
	}
	return next(w, r)
}

func (p *SecurityHeadersProcessor) hsts() string {
	if p.HSTSMaxAge <= 0 {
		return ""
	}
	parts := []string{"max-age=" + strconv.Itoa(p.HSTSMaxAge)}
	if p.HSTSIncludeSubDomains {
		parts = append(parts, "includeSubDomains")
	}
	return strings.Join(parts, "; ")
}

var _ endpoint.Processor = (*SecurityHeadersProcessor)(nil)
