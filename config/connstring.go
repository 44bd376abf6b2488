package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Connection string schemes. The discover variant enables endpoint
// discovery over the listed candidates; the plain variant pins the
// session to them in order.
const (
	SchemeSingle   = "ledger"
	SchemeDiscover = "ledger+discover"
)

// ParseConnectionString builds settings from a compact connection
// string of the form:
//
//	ledger://[user:pass@]host1:4222[,host2:4222][?option=value...]
//
// Options not listed in the string keep their defaults. Unknown
// options are an error rather than silently ignored.
func ParseConnectionString(raw string) (*Settings, error) {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return nil, fmt.Errorf("connection string %q has no scheme", raw)
	}

	settings := DefaultSettings()
	switch scheme {
	case SchemeSingle:
		settings.Discovery.Enabled = false
	case SchemeDiscover:
		settings.Discovery.Enabled = true
	default:
		return nil, fmt.Errorf("unsupported connection string scheme %q", scheme)
	}

	hostsPart, query, _ := strings.Cut(rest, "?")

	if credentials, hosts, hasCreds := strings.Cut(hostsPart, "@"); hasCreds {
		username, password, _ := strings.Cut(credentials, ":")
		unescapedUser, err := url.QueryUnescape(username)
		if err != nil {
			return nil, fmt.Errorf("invalid username encoding: %w", err)
		}
		unescapedPass, err := url.QueryUnescape(password)
		if err != nil {
			return nil, fmt.Errorf("invalid password encoding: %w", err)
		}
		settings.Connection.Username = unescapedUser
		settings.Connection.Password = unescapedPass
		hostsPart = hosts
	}

	if hostsPart == "" {
		return nil, fmt.Errorf("connection string %q has no hosts", raw)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string options: %w", err)
	}
	if err := applyOptions(settings, values); err != nil {
		return nil, err
	}

	candidateScheme := "nats"
	if settings.Endpoints.TLS.Enabled {
		candidateScheme = "tls"
	}

	hosts := strings.Split(hostsPart, ",")
	candidates := make([]string, 0, len(hosts))
	for _, host := range hosts {
		host = strings.TrimSpace(host)
		if host == "" {
			return nil, fmt.Errorf("connection string %q has an empty host", raw)
		}
		if !strings.Contains(host, ":") {
			host += ":4222"
		}
		candidates = append(candidates, candidateScheme+"://"+host)
	}
	settings.Endpoints.Candidates = candidates

	return settings, nil
}

// applyOptions maps query options onto settings
func applyOptions(settings *Settings, values url.Values) error {
	for key := range values {
		value := values.Get(key)

		var err error
		switch key {
		case "tls":
			settings.Endpoints.TLS.Enabled, err = strconv.ParseBool(value)
		case "tlsVerifyCert":
			var verify bool
			verify, err = strconv.ParseBool(value)
			settings.Endpoints.TLS.InsecureSkipVerify = !verify
		case "tlsCaFile":
			settings.Endpoints.TLS.CAFile = value
		case "connectionName":
			settings.Connection.Name = value
		case "maxReconnects":
			settings.Connection.MaxReconnects, err = strconv.Atoi(value)
		case "reconnectWait":
			settings.Connection.ReconnectWait, err = parseDurationValue(value)
		case "requestTimeout":
			settings.Connection.RequestTimeout, err = parseDurationValue(value)
		case "pageSize":
			settings.Read.PageSize, err = strconv.Atoi(value)
		case "resolveLinks":
			settings.Read.ResolveLinks, err = strconv.ParseBool(value)
		case "discoveryInterval":
			settings.Discovery.Interval, err = parseDurationValue(value)
		case "maxDiscoverAttempts":
			settings.Discovery.MaxAttempts, err = strconv.Atoi(value)
		case "keepAliveInterval":
			settings.Keepalive.Interval, err = parseDurationValue(value)
		case "keepAliveTimeout":
			settings.Keepalive.Timeout, err = parseDurationValue(value)
		case "logLevel":
			settings.Logging.Level = value
		default:
			return fmt.Errorf("unknown connection string option %q", key)
		}

		if err != nil {
			return fmt.Errorf("invalid value for connection string option %q: %w", key, err)
		}
	}

	return nil
}
