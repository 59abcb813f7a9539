package eventstream

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/devspaces/eventstream-go/api"
	"github.com/devspaces/eventstream-go/util"
)

const (
	DefaultEventsPath        = "/api/events"
	DefaultSignOutPath       = "/logout"
	DefaultMinReconnectDelay = time.Second
	DefaultMaxReconnectDelay = 30 * time.Second

	minReconnectDelayFloor = 100 * time.Millisecond
)

var validate = validator.New()

type Options struct {
	// BaseURL is the scheme and host of the platform, e.g. https://spaces.example.com
	BaseURL     string `json:"baseURL" validate:"required,url"`
	EventsPath  string `json:"eventsPath,omitempty" validate:"omitempty,startswith=/"`
	SignOutPath string `json:"signOutPath,omitempty" validate:"omitempty,startswith=/"`
	// Token is sent as a bearer token when set. Browser sessions rely on cookies
	// supplied through HTTPClient.Jar instead.
	Token string `json:"-"`

	MinReconnectDelay time.Duration `json:"minReconnectDelay,omitempty"`
	MaxReconnectDelay time.Duration `json:"maxReconnectDelay,omitempty"`
	// ReadTimeout closes a stream that has been silent for longer than this. Zero disables it.
	ReadTimeout time.Duration `json:"readTimeout,omitempty" validate:"gte=0"`

	// OnAuthRequired is invoked with the sign-out URL when the server reports
	// that the session has expired. The stream is already disconnected by then.
	OnAuthRequired     func(signOutURL string) `json:"-"`
	ClientEventHandler chan api.ClientEvent    `json:"-"`
	Logger             util.Logger             `json:"-"`
	HTTPClient         *http.Client            `json:"-"`
}

func (o *Options) CheckDefaults() {
	o.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	if o.EventsPath == "" {
		o.EventsPath = DefaultEventsPath
	}
	if o.SignOutPath == "" {
		o.SignOutPath = DefaultSignOutPath
	}

	if o.MinReconnectDelay <= 0 {
		o.MinReconnectDelay = DefaultMinReconnectDelay
	} else if o.MinReconnectDelay < minReconnectDelayFloor {
		util.Warnf("MinReconnectDelay cannot be less than 100ms. Defaulting to 100ms.")
		o.MinReconnectDelay = minReconnectDelayFloor
	}
	if o.MaxReconnectDelay <= 0 {
		o.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if o.MaxReconnectDelay < o.MinReconnectDelay {
		util.Warnf("MaxReconnectDelay cannot be less than MinReconnectDelay. Using %s.", o.MinReconnectDelay)
		o.MaxReconnectDelay = o.MinReconnectDelay
	}
}

// ValidationError is returned by NewClient when the options are not usable.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid option %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (o *Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		return &ValidationError{Field: fieldErrors[0].Field(), Err: err}
	}
	return err
}

type HTTPConfiguration struct {
	BasePath      string            `json:"basePath,omitempty"`
	EventsURL     string            `json:"eventsURL,omitempty"`
	SignOutURL    string            `json:"signOutURL,omitempty"`
	DefaultHeader map[string]string `json:"defaultHeader,omitempty"`
	UserAgent     string            `json:"userAgent,omitempty"`
	ClientId      string            `json:"clientId,omitempty"`
	HTTPClient    *http.Client
}

func NewConfiguration(options *Options) *HTTPConfiguration {
	httpClient := options.HTTPClient
	if httpClient == nil {
		// No Timeout: it would bound the lifetime of the stream, not just the handshake.
		httpClient = &http.Client{}
	}

	cfg := &HTTPConfiguration{
		BasePath:      options.BaseURL,
		EventsURL:     options.BaseURL + options.EventsPath,
		SignOutURL:    options.BaseURL + options.SignOutPath,
		DefaultHeader: make(map[string]string),
		UserAgent:     "Spaces-EventStream/" + VERSION + "/go",
		ClientId:      uuid.NewString(),
		HTTPClient:    httpClient,
	}
	if options.Token != "" {
		cfg.AddDefaultHeader("Authorization", "Bearer "+options.Token)
	}
	return cfg
}

func (c *HTTPConfiguration) AddDefaultHeader(key string, value string) {
	c.DefaultHeader[key] = value
}

func (c *HTTPConfiguration) newStreamRequest() (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, c.EventsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("X-Client-Id", c.ClientId)
	for header, value := range c.DefaultHeader {
		req.Header.Set(header, value)
	}
	return req, nil
}
