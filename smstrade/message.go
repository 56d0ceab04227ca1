package smstrade

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"unicode/utf8"

	"gsmsapi/sms"
)

// MessageType selects how the gateway delivers the message.
type MessageType string

const (
	MessageNormal  MessageType = ""        // plain SMS in the configured charset
	MessageFlash   MessageType = "flash"   // shown immediately, not stored
	MessageUnicode MessageType = "unicode" // UCS2, up to 70 characters
	MessageBinary  MessageType = "binary"  // hex encoded payload, up to 140 bytes
	MessageVoice   MessageType = "voice"   // text read out by a voice call
)

// Message budgets.
const (
	MaxGSMLength       = 160  // septets in a single SMS
	MaxGSMConcatLength = 1530 // septets in a concatenated SMS
	MaxUnicodeLength   = 70   // characters in a unicode SMS
	MaxBinaryLength    = 140  // bytes in a binary SMS
	MaxVoiceLength     = 160  // septets in a voice message
)

// messageKind pairs the validation of a message type with the encoding of
// its text into the request parameters.
type messageKind struct {
	check  func(api *API, text string) error
	encode func(api *API, text string, params url.Values) error
}

var messageKinds = map[MessageType]messageKind{
	MessageNormal:  {checkNormal, encodeNormal},
	MessageFlash:   {checkNormal, encodeNormal},
	MessageUnicode: {checkUnicode, encodeUnicode},
	MessageBinary:  {checkBinary, encodeBinary},
	MessageVoice:   {checkVoice, encodeVoice},
}

func lookupKind(op string, messageType MessageType) (messageKind, error) {
	kind, ok := messageKinds[messageType]
	if !ok {
		return messageKind{}, &Error{
			Op:      op,
			Message: fmt.Sprintf("message type %q is unknown", messageType),
			Err:     ErrUnknownMessageType,
		}
	}
	return kind, nil
}

func checkError(message string, err error) error {
	return &Error{Op: "check", Message: message, Err: err}
}

func gsmLength(text string) (int, error) {
	count, err := sms.GSMLength(text)
	if err != nil {
		return 0, checkError(err.Error(), fmt.Errorf("%w: %v", ErrEncoding, err))
	}
	return count, nil
}

func checkNormal(api *API, text string) error {
	count, err := gsmLength(text)
	if err != nil {
		return err
	}
	if (api.Concat && count > MaxGSMConcatLength) || (!api.Concat && count > MaxGSMLength) {
		message := "too many characters in message"
		if !api.Concat && count <= MaxGSMConcatLength {
			message += ", you may try to use concat"
		}
		return checkError(message, ErrTooLong)
	}
	if _, err := sms.EncodeCharset(api.charset, text); err != nil {
		return checkError(fmt.Sprintf(
			"the message can not be encoded with the chosen character set %s", api.charset),
			fmt.Errorf("%w: %v", ErrEncoding, err))
	}
	return nil
}

func checkUnicode(_ *API, text string) error {
	if !utf8.ValidString(text) { // lone surrogates end up here
		return checkError("the message can not be represented in UCS2", ErrEncoding)
	}
	for _, r := range text {
		if (r >= 0xD800 && r <= 0xDFFF) || r > 0xFFFF {
			return checkError("the message can not be represented in UCS2", ErrEncoding)
		}
	}
	if utf8.RuneCountInString(text) > MaxUnicodeLength {
		return checkError(fmt.Sprintf(
			"too many characters in message, unicode SMS may contain up to %d characters",
			MaxUnicodeLength), ErrTooLong)
	}
	return nil
}

func checkBinary(_ *API, text string) error {
	data, err := hex.DecodeString(text)
	if err != nil {
		return checkError("message cannot be encoded as bytes", fmt.Errorf("%w: %v", ErrEncoding, err))
	}
	if len(data) > MaxBinaryLength {
		return checkError(fmt.Sprintf(
			"too many bytes in message, binary messages may contain up to %d bytes",
			MaxBinaryLength), ErrTooLong)
	}
	return nil
}

func checkVoice(_ *API, text string) error {
	count, err := gsmLength(text)
	if err != nil {
		return err
	}
	if count > MaxVoiceLength {
		return checkError("too many GSM characters in message", ErrTooLong)
	}
	return nil
}

func encodeCharset(api *API, text string) (string, error) {
	data, err := sms.EncodeCharset(api.charset, text)
	if err != nil {
		return "", &Error{Op: "send", Err: fmt.Errorf("%w: %v", ErrEncoding, err)}
	}
	return string(data), nil
}

func encodeNormal(api *API, text string, params url.Values) error {
	message, err := encodeCharset(api, text)
	if err != nil {
		return err
	}
	params.Set("message", message)
	if api.Concat {
		params.Set("concat", "1")
	}
	return nil
}

func encodeUnicode(_ *API, text string, params url.Values) error {
	params.Set("message", sms.EncodeUCS2Hex(text))
	return nil
}

func encodeBinary(api *API, text string, params url.Values) error {
	params.Set("message", text)
	if api.UDH != "" {
		params.Set("udh", api.UDH)
	}
	return nil
}

func encodeVoice(api *API, text string, params url.Values) error {
	message, err := encodeCharset(api, text)
	if err != nil {
		return err
	}
	params.Set("message", message)
	return nil
}
