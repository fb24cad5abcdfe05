package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/upstream/transport"
)

// Version stamps travel in these response headers; a stamp embedded in the
// body is only used when the header is absent.
const (
	headerListVersion      = "x-mc-list-version"
	headerInventoryVersion = "x-mc-inventory-version"
)

// Wishlist mutation operations.
const (
	OpAdd    = "add"
	OpRemove = "remove"
)

// WishlistResult is a wishlist read: the raw item data plus the stamps the
// response carried.
type WishlistResult struct {
	Data   json.RawMessage `json:"data"`
	Stamps VersionStamps   `json:"versionStamps"`
}

// wishlistBody is the part of a wishlist response the gateway interprets;
// everything else passes through untouched in Data.
type wishlistBody struct {
	Result           json.RawMessage `json:"result"`
	ListVersion      string          `json:"listVersion"`
	InventoryVersion string          `json:"inventoryVersion"`
}

// GetWishlist reads the caller's wishlist and refreshes the cached stamps.
func (c *Client) GetWishlist(ctx context.Context, mcToken string, recentlyViewed bool) (*WishlistResult, error) {
	req := transport.Request{
		Method: http.MethodGet,
		URL:    c.ServiceURL + "/api/v1.0/wishlist",
		Header: map[string]string{"Authorization": mcToken},
	}
	if recentlyViewed {
		req.Query = url.Values{"recentlyViewed": {"true"}}
	}

	resp, err := transport.Do(ctx, c.httpClient, upstreamName, req)
	if err != nil {
		return nil, err
	}
	return c.wishlistResult(mcToken, resp)
}

// MutateWishlist adds or removes one item. When both stamps are cached the
// read-ahead is skipped; otherwise one read fetches fresh stamps first. A
// read-ahead response missing either stamp indicates an upstream contract
// change and fails loudly rather than sending a blind mutation.
func (c *Client) MutateWishlist(ctx context.Context, mcToken, itemID, operation string) (*WishlistResult, error) {
	if operation != OpAdd && operation != OpRemove {
		return nil, apierr.Newf(apierr.KindClient, "unknown wishlist operation %q", operation)
	}
	if itemID == "" {
		return nil, apierr.New(apierr.KindClient, "item id is required")
	}

	stamps, ok := c.versions.Get(mcToken)
	if !ok || !stamps.Complete() {
		readAhead, err := c.GetWishlist(ctx, mcToken, false)
		if err != nil {
			return nil, err
		}
		stamps = readAhead.Stamps
		if !stamps.Complete() {
			return nil, apierr.New(apierr.KindClient, "wishlist response is missing version stamps")
		}
	}

	body := map[string]any{
		"itemId":           itemID,
		"operation":        operation,
		"listVersion":      stamps.ListVersion,
		"inventoryVersion": stamps.InventoryVersion,
	}

	resp, err := transport.Do(ctx, c.httpClient, upstreamName, transport.Request{
		Method: http.MethodPost,
		URL:    c.ServiceURL + "/api/v1.0/wishlist",
		Header: map[string]string{"Authorization": mcToken},
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return c.wishlistResult(mcToken, resp)
}

// wishlistResult extracts data and stamps from a wishlist response, header
// values winning over body fields, and updates the cache.
func (c *Client) wishlistResult(mcToken string, resp *transport.Response) (*WishlistResult, error) {
	var body wishlistBody
	if len(resp.Body) > 0 {
		if err := resp.Decode(&body); err != nil {
			return nil, err
		}
	}

	stamps := VersionStamps{
		ListVersion:      resp.Header.Get(headerListVersion),
		InventoryVersion: resp.Header.Get(headerInventoryVersion),
	}
	if stamps.ListVersion == "" {
		stamps.ListVersion = body.ListVersion
	}
	if stamps.InventoryVersion == "" {
		stamps.InventoryVersion = body.InventoryVersion
	}

	c.versions.Set(mcToken, stamps.ListVersion, stamps.InventoryVersion)

	return &WishlistResult{Data: body.Result, Stamps: stamps}, nil
}
