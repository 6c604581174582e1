// Package spotify provides a typed request builder for the Spotify Web API.
//
// # Catalog
//
// [Catalog] is the entry point. It holds the HTTP client and the configured
// default country, locale and market, and exposes one method per API
// endpoint. Each method returns a [PendingRequest] that can be narrowed with
// chainable parameter setters before execution:
//
//	catalog := spotify.NewCatalog(client, defaults)
//	albums, err := catalog.WithToken(token).ArtistAlbums(id).Limit(10).Raw(ctx)
//
// Catalog is a value: [Catalog.WithToken] returns a copy bound to a user's
// access token, leaving the original untouched. The same Catalog can serve
// many users concurrently.
//
// # Parameters
//
// Every endpoint accepts a fixed set of query parameters. Setting a
// parameter an endpoint does not accept poisons the request with
// [shared.ErrInvalidArgument], surfaced when the request is executed.
// Configured defaults (market, country, locale) are pre-applied where the
// endpoint accepts them and can be overridden per request.
//
// # Errors
//
// Non-2xx API responses become [*APIError] carrying the provider's HTTP
// status and error message.
package spotify
