package sms

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Data coding values, as used in the SMS data_coding field.
const (
	CodingGSM    uint8 = 0 // GSM 03.38 default alphabet
	CodingLatin1 uint8 = 3 // latin1 (windows1252)
	CodingUCS2   uint8 = 8 // UCS2, big-endian 16-bit code units
)

const escape = 0x1B // GSM 03.38 escape to the extension table

// gsmBasicChars lists the GSM 03.38 default alphabet in septet order.
const gsmBasicChars = "@£$¥èéùìòÇ\nØø\rÅå" +
	"Δ_ΦΓΛΩΠΨΣΘΞ\x1bÆæßÉ" +
	" !\"#¤%&'()*+,-./" +
	"0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNO" +
	"PQRSTUVWXYZÄÖÑÜ§" +
	"¿abcdefghijklmno" +
	"pqrstuvwxyzäöñüà"

var (
	utf8GsmChars    = make(map[rune]byte, 128) // default alphabet: character -> septet
	gsmUtf8Chars    [128]rune                  // default alphabet: septet -> character
	utf8GsmExtChars = map[rune]byte{           // extension table, sent after ESC
		'\f': 0x0A,
		'^':  0x14,
		'{':  0x28,
		'}':  0x29,
		'\\': 0x2F,
		'[':  0x3C,
		'~':  0x3D,
		']':  0x3E,
		'|':  0x40,
		'€':  0x65,
	}
	gsmUtf8ExtChars = make(map[byte]rune, len(utf8GsmExtChars))
)

func init() {
	var i int
	for _, r := range gsmBasicChars {
		utf8GsmChars[r] = byte(i)
		gsmUtf8Chars[i] = r
		i++
	}
	for r, b := range utf8GsmExtChars {
		gsmUtf8ExtChars[b] = r
	}
}

// CharsetError reports a character that can not be represented in a
// character set.
type CharsetError struct {
	Charset string // character set name
	Char    rune   // first offending character
}

func (e *CharsetError) Error() string {
	return fmt.Sprintf("character %q is not allowed in %s", e.Char, e.Charset)
}

// GSMLength returns the number of septets the text occupies in the GSM 03.38
// alphabet. Characters of the extension table count twice. The first
// character that is in neither table is returned as a *CharsetError.
func GSMLength(text string) (int, error) {
	var count int
	for _, r := range text {
		if _, ok := utf8GsmChars[r]; ok {
			count++
			continue
		}
		if _, ok := utf8GsmExtChars[r]; ok {
			count += 2
			continue
		}
		return 0, &CharsetError{Charset: "GSM 03.38", Char: r}
	}
	return count, nil
}

// IsGSM reports whether every character of the text is in the GSM 03.38
// alphabet.
func IsGSM(text string) bool {
	_, err := GSMLength(text)
	return err == nil
}

// Decode converts message octets of the given data coding to text. Octets
// outside the GSM alphabet decode as '?'.
func Decode(code uint8, text []byte) string {
	switch code {
	case CodingUCS2:
		es, _, _ := transform.Bytes(
			unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), text)
		return string(es)
	case CodingLatin1:
		es, _, _ := transform.Bytes(charmap.Windows1252.NewDecoder(), text)
		return string(es)
	case CodingGSM: // one septet per byte
		var result strings.Builder
		for i := 0; i < len(text); i++ {
			b := text[i]
			if b == escape && i+1 < len(text) {
				if r, ok := gsmUtf8ExtChars[text[i+1]]; ok {
					result.WriteRune(r)
					i++
					continue
				}
			}
			if b < 0x80 {
				result.WriteRune(gsmUtf8Chars[b])
				continue
			}
			result.WriteRune('?')
		}
		return result.String()
	default:
		return string(text)
	}
}

// Encode converts text to the octets of the given data coding. Callers use
// it to build payloads for binary messages, which the gateways take as hex
// octets. Characters outside the GSM alphabet become '?'.
func Encode(code uint8, text string) []byte {
	switch code { // depending on the data coding, choose the encoding method
	case CodingUCS2:
		enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
		es, _, _ := transform.Bytes(enc, []byte(text))
		return es
	case CodingLatin1:
		es, _, _ := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte(text))
		return es
	case CodingGSM:
		var result bytes.Buffer
		for _, r := range text {
			if b, ok := utf8GsmChars[r]; ok {
				result.WriteByte(b)
				continue
			}
			if b, ok := utf8GsmExtChars[r]; ok {
				result.WriteByte(escape)
				result.WriteByte(b)
				continue
			}
			result.WriteByte(utf8GsmChars['?']) // doesn't fit the alphabet
		}
		return result.Bytes()
	default:
		return []byte(text)
	}
}

// EncodeUCS2Hex returns the text as big-endian 16-bit code units in upper
// case hexadecimal notation.
func EncodeUCS2Hex(text string) string {
	return strings.ToUpper(hex.EncodeToString(Encode(CodingUCS2, text)))
}

// DecodeUCS2Hex reverses EncodeUCS2Hex.
func DecodeUCS2Hex(s string) (string, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return "", err
	}
	if len(data)%2 != 0 {
		return "", fmt.Errorf("ucs2: odd number of bytes (%d)", len(data))
	}
	return Decode(CodingUCS2, data), nil
}

func isASCII(name string) bool {
	switch strings.ToLower(name) {
	case "", "ascii", "us-ascii":
		return true
	}
	return false
}

func lookupCharset(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q is not supported", name)
	}
	return enc, nil
}

// ValidCharset returns an error if the named character set is unknown.
func ValidCharset(name string) error {
	if isASCII(name) {
		return nil
	}
	_, err := lookupCharset(name)
	return err
}

// EncodeCharset encodes the text into the named character set. Names are
// IANA names; "ascii" is strict 7-bit. A character without a representation
// is returned as a *CharsetError.
func EncodeCharset(name, text string) ([]byte, error) {
	if isASCII(name) {
		for _, r := range text {
			if r > '\u007F' {
				return nil, &CharsetError{Charset: "ascii", Char: r}
			}
		}
		return []byte(text), nil
	}
	enc, err := lookupCharset(name)
	if err != nil {
		return nil, err
	}
	es, _, err := transform.Bytes(enc.NewEncoder(), []byte(text))
	if err == nil {
		return es, nil
	}
	for _, r := range text { // find the character the encoder stumbled on
		if _, err := enc.NewEncoder().String(string(r)); err != nil {
			return nil, &CharsetError{Charset: name, Char: r}
		}
	}
	return nil, err
}
