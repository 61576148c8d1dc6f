package node

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// BuildEndpoint assembles the provider WebSocket URL wss://<network>.<host>/<key>.
// Trailing slashes on host are dropped so the separator is never doubled.
func BuildEndpoint(network, host, key string) (string, error) {
	network = strings.Trim(strings.TrimSpace(network), ".")
	host = strings.TrimSpace(host)
	key = strings.TrimSpace(key)

	host = strings.TrimPrefix(host, "wss://")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimRight(host, "/")
	host = strings.TrimLeft(host, ".")

	switch {
	case network == "":
		return "", errors.New("network name is empty")
	case host == "":
		return "", errors.New("provider host is empty")
	case key == "":
		return "", errors.New("API key is empty")
	case strings.ContainsAny(network, "/:@"):
		return "", fmt.Errorf("network name %q contains invalid characters", network)
	case strings.Contains(key, "/"):
		return "", errors.New("API key must not contain '/'")
	}

	endpoint := "wss://" + network + "." + host + "/" + key
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	return endpoint, nil
}

// Redact hides the final path segment of an endpoint, which carries the access key.
func Redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "<invalid endpoint>"
	}
	if u.Path == "" || u.Path == "/" {
		return u.Scheme + "://" + u.Host
	}
	return u.Scheme + "://" + u.Host + "/***"
}
