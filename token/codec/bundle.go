package codec

// CallbackBundle is the wire shape a sign-in callback hands back for
// diagnostics: a flat map of named tokens plus, optionally, the per-audience
// XSTS responses with their display claims.
type CallbackBundle struct {
	Tokens    map[string]string    `json:"tokens"`
	XUID      string               `json:"xuid,omitempty"`
	Gamertag  string               `json:"gamertag,omitempty"`
	PlayFabID string               `json:"playFabId,omitempty"`
	UHS       string               `json:"uhs,omitempty"`
	XSTS      map[string]XSTSEntry `json:"xsts,omitempty"`
}

// XSTSEntry is one audience-scoped XSTS token with its display claims.
type XSTSEntry struct {
	Token         string              `json:"token"`
	DisplayClaims []map[string]string `json:"displayClaims,omitempty"`
}

// UserSummary is the normalized identity projected out of a bundle.
type UserSummary struct {
	XUID      string `json:"xuid,omitempty"`
	Gamertag  string `json:"gamertag,omitempty"`
	PlayFabID string `json:"playFabId,omitempty"`
	UHS       string `json:"uhs,omitempty"`
}

// BundleResult pairs the user summary with the per-token decode results.
type BundleResult struct {
	User    UserSummary        `json:"user"`
	Decoded map[string]Decoded `json:"decoded"`
}

// DecodeBundle decodes every token in the bundle, deriving any missing
// composite headers from the user hash plus raw XSTS values first. The user
// summary prefers explicit bundle fields, then decoded JWT claims, then
// nested display-claims paths, in that order.
func DecodeBundle(bundle CallbackBundle) BundleResult {
	tokens := make(map[string]string, len(bundle.Tokens))
	for name, value := range bundle.Tokens {
		tokens[name] = value
	}

	uhs := bundle.UHS
	if uhs == "" {
		uhs = displayClaimFromXSTS(bundle.XSTS, "uhs")
	}

	for name, entry := range bundle.XSTS {
		if entry.Token == "" {
			continue
		}
		if _, present := tokens[name]; !present {
			tokens[name] = entry.Token
		}
		headerName := name + "Header"
		if _, present := tokens[headerName]; !present && uhs != "" {
			tokens[headerName] = BuildXBL3(uhs, entry.Token)
		}
	}

	decoded := DecodeAll(tokens)

	summary := UserSummary{
		XUID:      bundle.XUID,
		Gamertag:  bundle.Gamertag,
		PlayFabID: bundle.PlayFabID,
		UHS:       uhs,
	}
	if summary.XUID == "" {
		summary.XUID = claimFromDecoded(decoded, "xuid", "xid")
	}
	if summary.Gamertag == "" {
		summary.Gamertag = claimFromDecoded(decoded, "gtg", "gamertag")
	}
	if summary.PlayFabID == "" {
		summary.PlayFabID = claimFromDecoded(decoded, "playFabId", "pfid")
	}
	if summary.XUID == "" {
		summary.XUID = displayClaimFromXSTS(bundle.XSTS, "xid")
	}
	if summary.Gamertag == "" {
		summary.Gamertag = displayClaimFromXSTS(bundle.XSTS, "gtg")
	}
	if summary.UHS == "" {
		for _, d := range decoded {
			if d.Meta.UHS != "" {
				summary.UHS = d.Meta.UHS
				break
			}
		}
	}

	return BundleResult{User: summary, Decoded: decoded}
}

// claimFromDecoded scans every successfully decoded payload for the first
// string claim matching any of the given names.
func claimFromDecoded(decoded map[string]Decoded, names ...string) string {
	for _, d := range decoded {
		if !d.OK || d.Payload == nil {
			continue
		}
		for _, name := range names {
			if value, ok := d.Payload[name].(string); ok && value != "" {
				return value
			}
		}
	}
	return ""
}

// displayClaimFromXSTS reads the first display-claims entry of any XSTS
// response carrying the given claim.
func displayClaimFromXSTS(entries map[string]XSTSEntry, claim string) string {
	for _, entry := range entries {
		if len(entry.DisplayClaims) == 0 {
			continue
		}
		if value := entry.DisplayClaims[0][claim]; value != "" {
			return value
		}
	}
	return ""
}
