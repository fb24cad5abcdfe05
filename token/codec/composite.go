package codec

import (
	"fmt"
	"strings"
)

// Composite header token grammars. These strings travel verbatim as HTTP
// authorization values; upstreams reject any deviation from the template.
const (
	bearerPrefix  = "Bearer "
	xblPrefix     = "XBL3.0 "
	mcTokenPrefix = "MCToken "
)

// BuildXBL3 assembles the Xbox Live composite authorization header from a
// user hash and a raw XSTS token value.
func BuildXBL3(uhs, token string) string {
	return fmt.Sprintf("XBL3.0 x=%s;%s", uhs, token)
}

// BuildMCToken assembles the Minecraft services authorization header.
func BuildMCToken(token string) string {
	return mcTokenPrefix + token
}

// BuildBearer assembles a standard bearer header.
func BuildBearer(token string) string {
	return bearerPrefix + token
}

// ParseXBL3 splits an "XBL3.0 x=<uhs>;<token>" composite back into its user
// hash and raw token. ok is false when the grammar does not match.
func ParseXBL3(value string) (uhs, token string, ok bool) {
	rest, found := strings.CutPrefix(value, xblPrefix)
	if !found {
		return "", "", false
	}
	rest, found = strings.CutPrefix(rest, "x=")
	if !found {
		return "", "", false
	}
	uhs, token, found = strings.Cut(rest, ";")
	if !found {
		return "", "", false
	}
	return uhs, token, true
}
