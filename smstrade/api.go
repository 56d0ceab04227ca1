// Package smstrade implements a client of the smstrade.eu HTTP(S) gateway
// for sending SMS and querying the account credits.
package smstrade

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gsmsapi/metrics"
	"gsmsapi/sms"
)

// Route is the delivery tier of the gateway.
type Route string

const (
	RouteBasic  Route = "basic"
	RouteGold   Route = "gold"
	RouteDirect Route = "direct"
)

// DefaultURL is the gateway address.
const DefaultURL = "https://gateway.smstrade.de/"

// DefaultCharset is the character set used when none is configured.
const DefaultCharset = "ascii"

// redacted replaces the account key in logged URLs.
const redacted = "xxxxx"

// UserAgent string.
var UserAgent = "gsmsapi-smstrade/0.10"

// Config describes the gateway account and the options sent with every
// message.
type Config struct {
	Key         string      `yaml:"key"`                   // gateway API key
	Sender      string      `yaml:"sender,omitempty"`      // originator, sent on gold and direct routes
	Route       Route       `yaml:"route,omitempty"`       // basic (default), gold or direct
	Debug       bool        `yaml:"debug,omitempty"`       // gateway test mode, nothing is sent
	Reports     bool        `yaml:"reports,omitempty"`     // request delivery reports
	Concat      bool        `yaml:"concat,omitempty"`      // allow concatenated messages
	Charset     string      `yaml:"charset,omitempty"`     // text charset, ascii by default
	Response    bool        `yaml:"response,omitempty"`    // allow replies, basic route only
	Reference   string      `yaml:"reference,omitempty"`   // customer reference
	SendDate    time.Time   `yaml:"sendDate,omitempty"`    // deferred delivery time
	MessageType MessageType `yaml:"messageType,omitempty"` // normal by default
	UDH         string      `yaml:"udh,omitempty"`         // user data header of binary messages
	URL         string      `yaml:"url,omitempty"`         // gateway address, DefaultURL if empty
}

// API sends messages through the smstrade gateway. Key, Route, Charset and
// URL are fixed by New: changing them in the embedded Config afterwards has
// no effect. The other message options may be changed between sends.
type API struct {
	Config
	Logger  *logrus.Entry  // log output
	client  *http.Client   // HTTP transport
	fields  responseFields // response lines requested from the gateway
	key     string         // validated account key
	route   Route          // validated route
	charset string         // validated charset
	url     string         // gateway address with trailing slash
}

// New checks the configuration and returns a gateway client.
func New(cfg Config) (*API, error) {
	if cfg.Key == "" {
		return nil, &Error{Op: "config", Message: "key is empty", Err: ErrConfig}
	}
	if cfg.Route == "" {
		cfg.Route = RouteBasic
	}
	switch cfg.Route {
	case RouteBasic, RouteGold, RouteDirect:
	default:
		return nil, &Error{Op: "config", Message: fmt.Sprintf("unknown route %q", cfg.Route), Err: ErrConfig}
	}
	if cfg.Charset == "" {
		cfg.Charset = DefaultCharset
	}
	if err := sms.ValidCharset(cfg.Charset); err != nil {
		return nil, &Error{Op: "config", Err: fmt.Errorf("%w: %v", ErrConfig, err)}
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if !strings.HasSuffix(cfg.URL, "/") {
		cfg.URL += "/"
	}
	return &API{
		Config: cfg,
		Logger: logrus.NewEntry(logrus.StandardLogger()).WithFields(logrus.Fields{
			"provider": "smstrade",
			"route":    string(cfg.Route),
		}),
		client:  new(http.Client),
		fields:  responseFields{messageID: true, cost: true, count: true},
		key:     cfg.Key,
		route:   cfg.Route,
		charset: cfg.Charset,
		url:     cfg.URL,
	}, nil
}

// Check validates the text against the rules of the configured message
// type without sending it.
func (api *API) Check(text string) error {
	if err := api.checkText(text); err != nil {
		return err
	}
	kind, err := lookupKind("check", api.MessageType)
	if err != nil {
		return err
	}
	return kind.check(api, text)
}

// checkText requires UTF-8 text for everything but binary payloads.
func (api *API) checkText(text string) error {
	if api.MessageType != MessageBinary && !utf8.ValidString(text) {
		return checkError("the message is not valid UTF-8 text", ErrEncoding)
	}
	return nil
}

// SendSMS validates the text and sends it to every recipient in turn. The
// first failure stops the loop: the results collected so far are returned
// together with the error. Gateway status codes are not errors.
func (api *API) SendSMS(text string, to ...string) (map[string]*Result, error) {
	if err := api.checkText(text); err != nil {
		return nil, err
	}
	kind, err := lookupKind("send", api.MessageType)
	if err != nil {
		return nil, err
	}
	results := make(map[string]*Result, len(to))
	for _, recipient := range to {
		if err := kind.check(api, text); err != nil {
			return results, err
		}
		result, err := api.send(kind, recipient, text)
		if err != nil {
			return results, err
		}
		results[recipient] = result
	}
	return results, nil
}

func (api *API) send(kind messageKind, recipient, text string) (*Result, error) {
	params, err := api.params(recipient)
	if err != nil {
		return nil, err
	}
	if err := kind.encode(api, text, params); err != nil {
		return nil, err
	}
	logEntry := api.Logger.WithField("to", recipient)
	if api.MessageType != MessageNormal {
		logEntry = logEntry.WithField("type", string(api.MessageType))
	}
	logEntry.Debugf("SMS send text: %q", text)
	var result *Result
	err = metrics.Observe("smstrade", "send", func() error {
		req, err := http.NewRequest(http.MethodPost, api.url, strings.NewReader(params.Encode()))
		if err != nil {
			return &Error{Op: "send", Err: api.redact(err)}
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		body, err := api.request(req)
		if err != nil {
			return &Error{Op: "send", Err: err}
		}
		if result, err = parseResponse(body, api.fields); err != nil {
			return &Error{Op: "send", Err: err}
		}
		return nil
	})
	if err != nil {
		logEntry.WithError(err).Error("SMS send error")
		return nil, err
	}
	logEntry.WithFields(logrus.Fields{
		"status": int(result.Status),
		"id":     result.MessageID,
		"count":  result.Count,
	}).Info("SMS send")
	return result, nil
}

// params returns the request fields shared by all message types.
func (api *API) params(recipient string) (url.Values, error) {
	params := url.Values{
		"key":   {api.key},
		"to":    {recipient},
		"route": {string(api.route)},
	}
	if api.route == RouteGold || api.route == RouteDirect {
		from, err := encodeCharset(api, api.Sender)
		if err != nil {
			return nil, err
		}
		params.Set("from", from)
	}
	if !strings.EqualFold(api.charset, DefaultCharset) {
		params.Set("charset", api.charset)
	}
	if api.Debug {
		params.Set("debug", "1")
	}
	if api.fields.cost {
		params.Set("cost", "1")
	}
	if api.fields.messageID {
		params.Set("message_id", "1")
	}
	if api.fields.count {
		params.Set("count", "1")
	}
	if api.Reports {
		params.Set("dlr", "1")
	}
	if api.Response && api.route == RouteBasic {
		params.Set("response", "1")
	}
	if api.Reference != "" {
		params.Set("ref", api.Reference)
	}
	if !api.SendDate.IsZero() {
		params.Set("senddate", strconv.FormatInt(api.SendDate.Unix(), 10))
	}
	if api.MessageType != MessageNormal {
		params.Set("messagetype", string(api.MessageType))
	}
	return params, nil
}

// Balance returns the credits left on the account.
func (api *API) Balance() (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := metrics.Observe("smstrade", "balance", func() error {
		query := url.Values{"key": {api.key}}
		req, err := http.NewRequest(http.MethodGet, api.url+"credits/?"+query.Encode(), nil)
		if err != nil {
			return &Error{Op: "balance", Err: api.redact(err)}
		}
		body, err := api.request(req)
		if err != nil {
			return &Error{Op: "balance", Err: err}
		}
		if balance, err = decimal.NewFromString(strings.TrimSpace(body)); err != nil {
			return &Error{Op: "balance", Err: fmt.Errorf("%w: %q", ErrMalformedResponse, body)}
		}
		return nil
	})
	if err != nil {
		api.Logger.WithError(err).Error("Balance error")
		return decimal.Zero, err
	}
	return balance, nil
}

// request executes the request and returns the response body. Any status
// outside 2xx is an error.
func (api *API) request(req *http.Request) (string, error) {
	if UserAgent != "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	resp, err := api.client.Do(req)
	if err != nil {
		return "", api.redact(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	return string(data), nil
}

// redact masks the account key in the URL carried by transport errors.
func (api *API) redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, perr := url.Parse(urlErr.URL); perr == nil && u.Query().Has("key") {
		query := u.Query()
		query.Set("key", redacted)
		u.RawQuery = query.Encode()
		urlErr.URL = u.String()
	} else {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(api.key), redacted)
	}
	return err
}
