package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "http://ip-api.com/json"
	defaultTimeout = 3 * time.Second
	statusSuccess  = "success"
)

var (
	ErrIncorrectIP    = errors.New("incorrect ip address")
	ErrLookupRejected = errors.New("ip lookup rejected")
)

type Config struct {
	Enabled        bool
	BaseURL        string
	TimeoutSeconds int
}

// Client resolves client IP addresses into a location hint with ip-api.com compatible services.
type Client struct {
	baseURL string
	http    *http.Client
}

type lookupResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

func New(config Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Locate returns nil without a request for loopback and private addresses.
func (c *Client) Locate(ctx context.Context, ip string) (*storage.LocationHint, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return nil, fmt.Errorf("%q: %w", ip, ErrIncorrectIP)
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(parsed.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Status != statusSuccess {
		return nil, fmt.Errorf("%s: %w", decoded.Message, ErrLookupRejected)
	}
	log.WithField("ip", parsed.String()).Debugf("located in %s, %s, %s", decoded.City, decoded.RegionName, decoded.Country)
	return &storage.LocationHint{
		City:    decoded.City,
		Region:  decoded.RegionName,
		Country: decoded.Country,
	}, nil
}

// ClientIP prefers the first X-Forwarded-For entry over the remote address.
func ClientIP(r *http.Request) (string, error) {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(first) != nil {
			return first, nil
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("%q is not IP:port: %w", r.RemoteAddr, ErrIncorrectIP)
	}
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%q is not IP:port: %w", r.RemoteAddr, ErrIncorrectIP)
	}
	return ip, nil
}
