// Command polar-login is a small web app that logs users in with Polar.
//
// Configuration is read from the environment, or a .env file:
//
//	POLAR_CLIENT_ID, POLAR_CLIENT_SECRET  OAuth client registration (required)
//	POLAR_REDIRECT_URI                    default http://localhost:8080/auth/polar
//	POLAR_SCOPES                          space separated, default "openid email profile"
//	SESSION_KEY                           base64url 32 bytes; random if unset
//	LISTEN_ADDR                           default :8080
//	LOG_LEVEL                             debug, info, warn or error
//	COOKIE_SECURE                         default false, for http://localhost
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mnehpets/polarauth/endpoint"
	"github.com/mnehpets/polarauth/middleware"
	"github.com/mnehpets/polarauth/polar"
)

// User is the application user resolved after a Polar login.
type User struct {
	ID    string
	Email string
	Name  string
}

type config struct {
	polar        polar.Config
	sessionKey   []byte
	listenAddr   string
	logLevel     slog.Level
	cookieSecure bool
}

func loadConfig() (*config, error) {
	cfg := &config{
		polar: polar.Config{
			ClientID:     os.Getenv("POLAR_CLIENT_ID"),
			ClientSecret: os.Getenv("POLAR_CLIENT_SECRET"),
			RedirectURI:  getenv("POLAR_REDIRECT_URI", "http://localhost:8080/auth/polar"),
		},
		listenAddr: getenv("LISTEN_ADDR", ":8080"),
	}

	scopes, err := polar.ParseScopes(strings.Fields(getenv("POLAR_SCOPES", "openid email profile")))
	if err != nil {
		return nil, err
	}
	cfg.polar.Scopes = scopes

	if err := cfg.logLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if cfg.cookieSecure, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
		}
	}

	if v := os.Getenv("SESSION_KEY"); v != "" {
		if cfg.sessionKey, err = base64.RawURLEncoding.DecodeString(v); err != nil {
			return nil, fmt.Errorf("SESSION_KEY: %w", err)
		}
		if len(cfg.sessionKey) != middleware.DefaultAEADKeysize {
			return nil, fmt.Errorf("SESSION_KEY must be %d bytes", middleware.DefaultAEADKeysize)
		}
	}
	return cfg, cfg.polar.Validate()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// localNextURL returns next if it is a path on this site, "/" otherwise.
func localNextURL(next string) string {
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return u.String()
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>Polar Login</title></head>
<body>
	<h1>Polar Login</h1>
	{{if .LoggedIn}}
		<p>Welcome, {{.Username}}!</p>
		<form method="post" action="/auth/logout?next_url=/"><button>Logout</button></form>
	{{else}}
		<p>You are not logged in.</p>
		<a href="/auth/polar">Login with Polar</a>
	{{end}}
</body>
</html>
`))

type homeData struct {
	LoggedIn bool
	Username string
}

func homeEndpoint(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	var data homeData
	if session, ok := middleware.SessionFromContext(r.Context()); ok {
		data.Username, data.LoggedIn = session.Username()
	}
	return &endpoint.HTMLTemplateRenderer{Template: homeTemplate, Values: data}, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))
	slog.SetDefault(logger)

	if cfg.sessionKey == nil {
		logger.Warn("SESSION_KEY not set, sessions will not survive a restart")
		cfg.sessionKey = make([]byte, middleware.DefaultAEADKeysize)
		if _, err := rand.Read(cfg.sessionKey); err != nil {
			logger.Error("generating session key", "error", err)
			os.Exit(1)
		}
	}
	keys := map[string][]byte{"k1": cfg.sessionKey}

	sessionProcessor, err := middleware.NewSessionProcessor("k1", keys,
		middleware.WithSessionCookieOptions(middleware.WithSecure(cfg.cookieSecure)))
	if err != nil {
		logger.Error("creating session processor", "error", err)
		os.Exit(1)
	}

	var strategy *polar.Strategy[User]
	strategy, err = polar.New(cfg.polar, func(ctx context.Context, r *http.Request, tokens *polar.Tokens) (User, error) {
		info, err := strategy.UserInfo(ctx, tokens)
		if err != nil {
			return User{}, err
		}
		email, _ := info.VerifiedEmail()
		return User{ID: info.StableID(), Email: email, Name: info.Name}, nil
	},
		polar.WithLogger(logger),
		polar.WithCookieKeys("k1", keys),
		polar.WithCookieOptions(middleware.WithSecure(cfg.cookieSecure)),
	)
	if err != nil {
		logger.Error("creating polar strategy", "error", err)
		os.Exit(1)
	}

	authHandler := polar.NewHandler(strategy, func(w http.ResponseWriter, r *http.Request, user User, tokens *polar.Tokens) (endpoint.Renderer, error) {
		session, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			return nil, fmt.Errorf("session not found in context")
		}
		name := user.Email
		if name == "" {
			name = user.ID
		}
		if err := session.Login(name); err != nil {
			return nil, endpoint.Error(http.StatusInternalServerError, "login failed", err)
		}
		logger.InfoContext(r.Context(), "user logged in", "user_id", user.ID, "scopes", tokens.Scopes())
		return &endpoint.RedirectRenderer{URL: "/", Status: http.StatusFound}, nil
	}, polar.WithProcessors(middleware.NewAuthHeadersProcessor(middleware.WithHSTS(0, false)), sessionProcessor))

	pageHeaders := middleware.NewSecurityHeadersProcessor(middleware.WithHSTS(0, false))

	mux := http.NewServeMux()
	mux.Handle("GET /auth/polar", authHandler)
	mux.Handle("POST /auth/logout", endpoint.Handler(func(w http.ResponseWriter, r *http.Request, params struct {
		NextURL string `query:"next_url"`
	}) (endpoint.Renderer, error) {
		if session, ok := middleware.SessionFromContext(r.Context()); ok {
			session.Logout()
		}
		return &endpoint.RedirectRenderer{URL: localNextURL(params.NextURL), Status: http.StatusSeeOther}, nil
	}, pageHeaders, sessionProcessor))
	mux.Handle("GET /{$}", endpoint.Handler(homeEndpoint, pageHeaders, sessionProcessor))

	logger.Info("listening", "addr", cfg.listenAddr)
	if err := http.ListenAndServe(cfg.listenAddr, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
