// Package sipgate implements a client of the sipgate XML-RPC API
// (version 1.06) for sending SMS and querying the account balance.
package sipgate

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/kolo/xmlrpc"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gsmsapi/metrics"
)

// Tier selects the sipgate product the account belongs to.
type Tier string

const (
	TierTeam  Tier = "team"
	TierBasic Tier = "basic"
	TierPlus  Tier = "plus"
)

// Endpoint templates; %s is replaced by the URL userinfo.
const (
	basicURL = "https://%s@samurai.sipgate.net/RPC2"
	teamURL  = "https://%s@api.sipgate.net/RPC2"
)

// Client identification sent with samurai.ClientIdentify.
var (
	ClientName    = "Go-SipgateAPI"
	ClientVersion = 0.10
	ClientVendor  = "Cygnus Networks GmbH"
)

// API is a connection to the sipgate XML-RPC endpoint. The client
// identifies itself once, before the first method call.
type API struct {
	Logger     *logrus.Entry  // log output
	rpc        *xmlrpc.Client // XML-RPC endpoint
	identified bool           // samurai.ClientIdentify was sent
	mu         sync.Mutex     // guards identified
}

// New returns a client for the account. Credentials are sent as HTTP basic
// auth with every request.
func New(username, password string, tier Tier) (*API, error) {
	rawurl, err := endpoint(username, password, tier)
	if err != nil {
		return nil, err
	}
	api, err := NewURL(rawurl, nil)
	if err != nil {
		return nil, err
	}
	api.Logger = api.Logger.WithField("tier", string(tier))
	return api, nil
}

// endpoint returns the XML-RPC URL of the tier with the escaped credentials.
func endpoint(username, password string, tier Tier) (string, error) {
	var template string
	switch tier {
	case TierTeam:
		template = teamURL
	case TierBasic, TierPlus:
		template = basicURL
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return fmt.Sprintf(template, url.UserPassword(username, password).String()), nil
}

// NewURL returns a client for an explicit endpoint URL. A nil transport
// uses http.DefaultTransport.
func NewURL(rawurl string, transport http.RoundTripper) (*API, error) {
	client, err := xmlrpc.NewClient(rawurl, transport)
	if err != nil {
		return nil, err
	}
	return &API{
		Logger: logrus.NewEntry(logrus.StandardLogger()).WithField("provider", "sipgate"),
		rpc:    client,
	}, nil
}

// Close releases the transport.
func (api *API) Close() error {
	return api.rpc.Close()
}

// Identify announces the client name, version and vendor to the server. It
// is called automatically before the first method call and is sent only
// once for the life of the API.
func (api *API) Identify() error {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.identify()
}

// identify must be called with api.mu held.
func (api *API) identify() error {
	if api.identified {
		return nil
	}
	resp, err := api.invoke("samurai.ClientIdentify", map[string]interface{}{
		"ClientName":    ClientName,
		"ClientVersion": ClientVersion,
		"ClientVendor":  ClientVendor,
	})
	if err != nil {
		return err
	}
	api.identified = true
	if !resp.Success {
		api.Logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"message": resp.StatusMessage,
		}).Warning("Client identify not accepted")
	}
	return nil
}

// call identifies the client if needed and invokes the remote method.
func (api *API) call(method string, params map[string]interface{}) (*Response, error) {
	api.mu.Lock()
	err := api.identify()
	api.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return api.invoke(method, params)
}

func (api *API) invoke(method string, params map[string]interface{}) (*Response, error) {
	var resp *Response
	err := metrics.Observe("sipgate", method, func() error {
		var args interface{} // without params the method is called without arguments
		if params != nil {
			args = params
		}
		var reply map[string]interface{}
		if err := api.rpc.Call(method, args, &reply); err != nil {
			return &Error{Method: method, Err: err}
		}
		var err error
		if resp, err = newResponse(reply); err != nil {
			return &Error{Method: method, Err: err}
		}
		return nil
	})
	if err != nil {
		api.Logger.WithField("method", method).WithError(err).Error("XML-RPC error")
		return nil, err
	}
	api.Logger.WithFields(logrus.Fields{
		"method": method,
		"status": resp.StatusCode,
	}).Debug("XML-RPC call")
	return resp, nil
}

// Balance returns the account balance including VAT.
func (api *API) Balance() (decimal.Decimal, error) {
	const method = "samurai.BalanceGet"
	resp, err := api.call(method, nil)
	if err != nil {
		return decimal.Zero, err
	}
	balance, ok := resp.Struct("CurrentBalance")
	if !ok {
		return decimal.Zero, &Error{Method: method, Err: fmt.Errorf(
			"%w: no CurrentBalance (%d %s)", ErrMalformedResponse, resp.StatusCode, resp.StatusString)}
	}
	total, ok := balance["TotalIncludingVat"]
	if !ok {
		return decimal.Zero, &Error{Method: method, Err: fmt.Errorf(
			"%w: no TotalIncludingVat", ErrMalformedResponse)}
	}
	value, err := toDecimal(total)
	if err != nil {
		return decimal.Zero, &Error{Method: method, Err: fmt.Errorf(
			"%w: TotalIncludingVat: %v", ErrMalformedResponse, err)}
	}
	return value, nil
}

// SendSMS sends the message to the phone number. The number is sent without
// a leading "+", which sipgate does not accept. An empty sender leaves the
// originator to the account default.
func (api *API) SendSMS(phone, message, sender string) (*Response, error) {
	phone = strings.TrimPrefix(phone, "+")
	params := map[string]interface{}{
		"RemoteUri": fmt.Sprintf("sip:%s@sipgate.net", phone),
		"TOS":       "text",
		"Content":   message,
	}
	if sender != "" {
		params["LocalURI"] = sender
	}
	logEntry := api.Logger.WithField("to", phone)
	logEntry.Debugf("SMS send text: %q", message)
	resp, err := api.call("samurai.SessionInitiate", params)
	if err != nil {
		return nil, err
	}
	logEntry.WithField("status", resp.StatusCode).Info("SMS send")
	return resp, nil
}

// OwnURIList returns the URIs assigned to the account, as sent by the
// server under "OwnUriList".
func (api *API) OwnURIList() (*Response, error) {
	return api.call("samurai.OwnUriListGet", nil)
}
