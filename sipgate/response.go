package sipgate

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Response describes a reply of the sipgate API. Status codes other than
// 200 are not errors: check Success before using Values.
type Response struct {
	Values        map[string]interface{} // decoded reply struct
	StatusCode    int                    // status code of the reply
	StatusString  string                 // status text sent by the server
	StatusMessage string                 // status description from the API documentation
	Success       bool                   // the method call succeeded
}

func newResponse(values map[string]interface{}) (*Response, error) {
	rawCode, ok := values["StatusCode"]
	if !ok {
		return nil, fmt.Errorf("%w: no StatusCode", ErrMalformedResponse)
	}
	statusString, ok := values["StatusString"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: no StatusString", ErrMalformedResponse)
	}
	code, err := toInt(rawCode)
	if err != nil {
		return nil, fmt.Errorf("%w: StatusCode: %v", ErrMalformedResponse, err)
	}
	return &Response{
		Values:        values,
		StatusCode:    code,
		StatusString:  statusString,
		StatusMessage: StatusMessage(code),
		Success:       code == StatusOK,
	}, nil
}

// Struct returns the nested struct stored under the name.
func (r *Response) Struct(name string) (map[string]interface{}, bool) {
	v, ok := r.Values[name].(map[string]interface{})
	return v, ok
}

func toInt(v interface{}) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch v := v.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("unexpected type %T", v)
	}
}
