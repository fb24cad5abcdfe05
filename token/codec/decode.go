// Package codec normalizes opaque bearer strings into a structured view.
// Four incompatible envelope formats flow through this gateway - compact
// signed tokens, compact encrypted tokens, opaque tickets and composite
// authorization headers - and none of them share a schema. Decoding is
// best-effort and signature-blind: the output is for diagnostics and claim
// extraction, never for trust decisions.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/bedrocktools/mcgate/internal/utils"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Kind classifies a token envelope.
type Kind string

const (
	KindJWS    Kind = "JWS"
	KindJWE    Kind = "JWE"
	KindOpaque Kind = "OPAQUE"
)

// Opaque tickets (PlayFab session tickets and friends) are long random
// strings; anything shorter is more likely a typo than a credential.
const minOpaqueLength = 24

// Meta carries envelope facts that are not claims.
type Meta struct {
	Prefix           string   `json:"prefix,omitempty"`
	UHS              string   `json:"uhs,omitempty"`
	Audience         []string `json:"audience,omitempty"`
	HasExp           bool     `json:"hasExp"`
	SecondsRemaining int64    `json:"secondsRemaining,omitempty"`
	RawLength        int      `json:"rawLength"`
	Kind             Kind     `json:"kind,omitempty"`
}

// Decoded is the normalized view of one token. Header and Payload are nil
// when the envelope does not expose them (JWE payloads are ciphertext).
type Decoded struct {
	OK      bool           `json:"ok"`
	Header  map[string]any `json:"header"`
	Payload map[string]any `json:"payload"`
	Meta    Meta           `json:"meta"`
}

// Decode normalizes a bearer-style string. It never fails: an undecodable
// input yields ok=false, not an error, so diagnostic tooling cannot crash on
// garbage.
func Decode(raw string) Decoded {
	return decode(raw, "")
}

// DecodeAs decodes raw as the declared envelope kind, skipping detection of
// the other formats. A declaration that names no known kind falls back to
// detection, so a stale caller hint degrades to Decode instead of failing.
func DecodeAs(raw string, declared Kind) Decoded {
	switch declared {
	case KindJWS, KindJWE, KindOpaque:
	default:
		declared = ""
	}
	return decode(raw, declared)
}

func decode(raw string, declared Kind) Decoded {
	wants := func(kind Kind) bool { return declared == "" || declared == kind }

	out := Decoded{Meta: Meta{RawLength: len(raw)}}

	bare := strings.TrimSpace(raw)
	if rest, found := strings.CutPrefix(bare, bearerPrefix); found {
		out.Meta.Prefix = "Bearer"
		bare = rest
	}
	if strings.HasPrefix(bare, xblPrefix) {
		if uhs, token, ok := ParseXBL3(bare); ok {
			out.Meta.Prefix = "XBL3.0"
			out.Meta.UHS = uhs
			bare = token
		}
	}
	if rest, found := strings.CutPrefix(bare, mcTokenPrefix); found {
		out.Meta.Prefix = "MCToken"
		bare = rest
	}

	if bare == "" {
		return out
	}

	segments := strings.Split(bare, ".")
	if wants(KindJWS) && len(segments) == 3 {
		header, headerOK := decodeSegment(segments[0])
		payload, payloadOK := decodeSegment(segments[1])
		if headerOK && payloadOK {
			out.OK = true
			out.Header = header
			out.Payload = payload
			out.Meta.Kind = KindJWS
		}
	}
	if !out.OK && wants(KindJWE) && len(segments) == 5 {
		// The other four segments are key/IV/ciphertext/tag material;
		// only the protected header is readable without the key.
		if header, ok := decodeSegment(segments[0]); ok {
			out.OK = true
			out.Header = header
			out.Meta.Kind = KindJWE
		}
	}

	// Second opinion: the jwt library tolerates edge cases the manual
	// splitter misses (padding quirks, unusual header encodings).
	if !out.OK && wants(KindJWS) {
		if parsed, _, err := jwtlib.NewParser().ParseUnverified(bare, jwtlib.MapClaims{}); err == nil {
			if claims, ok := parsed.Claims.(jwtlib.MapClaims); ok {
				out.OK = true
				out.Header = parsed.Header
				out.Payload = map[string]any(claims)
				out.Meta.Kind = KindJWS
			}
		}
	}

	if !out.OK && wants(KindOpaque) && len(bare) >= minOpaqueLength {
		out.OK = true
		out.Header = map[string]any{"typ": "OpaqueToken"}
		out.Payload = map[string]any{"length": len(bare)}
		out.Meta.Kind = KindOpaque
	}

	if exp, ok := numericClaim(out.Payload, "exp"); ok {
		out.Meta.HasExp = true
		out.Meta.SecondsRemaining = exp - NowTimeFunc().Unix()
	}

	if out.Payload != nil {
		switch aud := out.Payload["aud"].(type) {
		case string:
			out.Meta.Audience = []string{aud}
		case []any:
			out.Meta.Audience = utils.ToStringSlice(aud)
		}
	}

	return out
}

// DecodeAll decodes a map of named tokens in one pass.
func DecodeAll(tokens map[string]string) map[string]Decoded {
	decoded := make(map[string]Decoded, len(tokens))
	for name, value := range tokens {
		decoded[name] = Decode(value)
	}
	return decoded
}

// decodeSegment base64url-decodes one compact-serialization segment and
// parses it as a JSON object. Both padded and unpadded encodings appear in
// the wild.
func decodeSegment(segment string) (map[string]any, bool) {
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(segment)
		if err != nil {
			return nil, false
		}
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func numericClaim(payload map[string]any, name string) (int64, bool) {
	if payload == nil {
		return 0, false
	}
	switch v := payload[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
