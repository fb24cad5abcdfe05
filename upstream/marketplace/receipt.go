package marketplace

import (
	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/token/codec"
)

// CreatorFromReceipt extracts the creator id claim from a purchase receipt.
// Receipts arrive as a signed token whose payload may nest the actual
// receipt token one level down, so both levels are tried.
func CreatorFromReceipt(receipt string) (string, error) {
	decoded := codec.Decode(receipt)
	if id := creatorClaim(decoded); id != "" {
		return id, nil
	}

	if decoded.OK && decoded.Payload != nil {
		if nested, ok := decoded.Payload["receipt"].(string); ok {
			if id := creatorClaim(codec.Decode(nested)); id != "" {
				return id, nil
			}
		}
	}

	return "", apierr.New(apierr.KindClient, "receipt carries no creator id")
}

func creatorClaim(decoded codec.Decoded) string {
	if !decoded.OK || decoded.Payload == nil {
		return ""
	}
	for _, name := range []string{"creatorId", "creator_id", "creator"} {
		if value, ok := decoded.Payload[name].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
