package spotify

import (
	"net/http"
	"net/url"
	"strings"
)

// Defaults are the configured fallback values applied to every request whose
// endpoint accepts them. Empty values are simply not sent.
type Defaults struct {
	Country string
	Locale  string
	Market  string
}

// Catalog exposes the Web API endpoints as request constructors.
//
// Catalog is a value type: [Catalog.WithToken] returns a copy bound to a
// user's access token, so one Catalog can be shared across users and
// goroutines.
type Catalog struct {
	client      *Client
	defaults    Defaults
	accessToken string
}

// NewCatalog creates a Catalog on top of the given client.
func NewCatalog(client *Client, defaults Defaults) Catalog {
	return Catalog{client: client, defaults: defaults}
}

// WithToken returns a copy of the Catalog whose requests authenticate with
// the given user access token.
func (c Catalog) WithToken(accessToken string) Catalog {
	c.accessToken = accessToken
	return c
}

// Me fetches the profile of the user the access token belongs to.
func (c Catalog) Me() PendingRequest {
	return c.newRequest("/me")
}

// Album fetches catalog information for a single album.
func (c Catalog) Album(id string) PendingRequest {
	return c.withMarket(c.newRequest("/albums/"+id, "market"))
}

// AlbumTracks fetches the tracks of an album.
func (c Catalog) AlbumTracks(id string) PendingRequest {
	return c.withMarket(c.newRequest("/albums/"+id+"/tracks", "limit", "offset", "market"))
}

// Artist fetches catalog information for a single artist.
func (c Catalog) Artist(id string) PendingRequest {
	return c.newRequest("/artists/" + id)
}

// ArtistAlbums fetches an artist's albums.
func (c Catalog) ArtistAlbums(id string) PendingRequest {
	return c.withCountry(c.newRequest("/artists/"+id+"/albums", "include_groups", "country", "limit", "offset"))
}

// Episode fetches catalog information for a single podcast episode.
func (c Catalog) Episode(id string) PendingRequest {
	return c.withMarket(c.newRequest("/episodes/"+id, "market"))
}

// Show fetches catalog information for a single show.
func (c Catalog) Show(id string) PendingRequest {
	return c.withMarket(c.newRequest("/shows/"+id, "market"))
}

// ShowEpisodes fetches the episodes of a show.
func (c Catalog) ShowEpisodes(id string) PendingRequest {
	return c.withMarket(c.newRequest("/shows/"+id+"/episodes", "limit", "offset", "market"))
}

// Track fetches catalog information for a single track.
func (c Catalog) Track(id string) PendingRequest {
	return c.withMarket(c.newRequest("/tracks/"+id, "market"))
}

// Playlist fetches a playlist owned by a user.
func (c Catalog) Playlist(id string) PendingRequest {
	return c.withMarket(c.newRequest("/playlists/"+id, "fields", "market"))
}

// PlaylistItems fetches full details of the items of a playlist.
func (c Catalog) PlaylistItems(id string) PendingRequest {
	return c.withMarket(c.newRequest("/playlists/"+id+"/items", "fields", "limit", "offset", "market"))
}

// PlaylistCoverImage fetches the current image of a playlist.
func (c Catalog) PlaylistCoverImage(id string) PendingRequest {
	return c.newRequest("/playlists/" + id + "/images")
}

// AddPlaylistItems appends items to a playlist. Requires the
// playlist-modify-public or playlist-modify-private scope.
func (c Catalog) AddPlaylistItems(id string, uris []string) PendingRequest {
	req := c.newRequest("/playlists/" + id + "/items")
	req.method = http.MethodPost
	req.body = map[string]any{"uris": uris}
	return req
}

// ReplacePlaylistItems replaces the items of a playlist. Requires the
// playlist-modify-public or playlist-modify-private scope.
func (c Catalog) ReplacePlaylistItems(id string, uris []string) PendingRequest {
	req := c.newRequest("/playlists/" + id + "/items")
	req.method = http.MethodPut
	req.body = map[string]any{"uris": uris}
	return req
}

// RemovePlaylistItems removes items from a playlist. Requires the
// playlist-modify-public or playlist-modify-private scope.
func (c Catalog) RemovePlaylistItems(id string, uris []string) PendingRequest {
	items := make([]map[string]string, len(uris))
	for i, uri := range uris {
		items[i] = map[string]string{"uri": uri}
	}

	req := c.newRequest("/playlists/" + id + "/items")
	req.method = http.MethodDelete
	req.body = map[string]any{"items": items}
	return req
}

// LibraryContains checks whether items are present in the user's library.
// Requires the user-library-read scope.
func (c Catalog) LibraryContains(uris []string) PendingRequest {
	req := c.newRequest("/me/library/contains", "uris")
	return req.setParam("uris", strings.Join(uris, ","))
}

// SaveToLibrary saves items to the user's library. Requires the
// user-library-modify scope.
func (c Catalog) SaveToLibrary(uris []string) PendingRequest {
	req := c.newRequest("/me/library")
	req.method = http.MethodPut
	req.body = map[string]any{"uris": uris}
	return req
}

// RemoveFromLibrary removes items from the user's library. Requires the
// user-library-modify scope.
func (c Catalog) RemoveFromLibrary(uris []string) PendingRequest {
	req := c.newRequest("/me/library")
	req.method = http.MethodDelete
	req.body = map[string]any{"uris": uris}
	return req
}

// Request builds a GET request for an arbitrary API path. Intended as a
// debugging escape hatch; every known query parameter is accepted.
func (c Catalog) Request(endpoint string) PendingRequest {
	return c.newRequest(endpoint,
		"limit", "offset", "market", "country", "locale",
		"fields", "include_groups", "include_external", "q", "type", "uris")
}

// Search queries the catalog across the given item types ("album",
// "artist", "track", "playlist", "show", "episode").
func (c Catalog) Search(query string, types ...string) PendingRequest {
	return c.search(query, strings.Join(types, ","))
}

// SearchAlbums queries the catalog for albums matching a keyword string.
func (c Catalog) SearchAlbums(query string) PendingRequest {
	return c.search(query, "album")
}

// SearchArtists queries the catalog for artists matching a keyword string.
func (c Catalog) SearchArtists(query string) PendingRequest {
	return c.search(query, "artist")
}

// SearchEpisodes queries the catalog for episodes matching a keyword string.
func (c Catalog) SearchEpisodes(query string) PendingRequest {
	return c.search(query, "episode")
}

// SearchPlaylists queries the catalog for playlists matching a keyword string.
func (c Catalog) SearchPlaylists(query string) PendingRequest {
	return c.search(query, "playlist")
}

// SearchShows queries the catalog for shows matching a keyword string.
func (c Catalog) SearchShows(query string) PendingRequest {
	return c.search(query, "show")
}

// SearchTracks queries the catalog for tracks matching a keyword string.
func (c Catalog) SearchTracks(query string) PendingRequest {
	return c.search(query, "track")
}

func (c Catalog) search(query, types string) PendingRequest {
	req := c.newRequest("/search", "q", "type", "market", "limit", "offset", "include_external")
	req = req.setParam("q", query)
	req = req.setParam("type", types)
	return c.withMarket(req)
}

func (c Catalog) newRequest(endpoint string, accepted ...string) PendingRequest {
	acceptedSet := make(map[string]bool, len(accepted))
	for _, param := range accepted {
		acceptedSet[param] = true
	}

	return PendingRequest{
		client:   c.client,
		token:    c.accessToken,
		method:   http.MethodGet,
		endpoint: endpoint,
		params:   url.Values{},
		accepted: acceptedSet,
	}
}

func (c Catalog) withMarket(r PendingRequest) PendingRequest {
	if c.defaults.Market == "" {
		return r
	}
	return r.Market(c.defaults.Market)
}

func (c Catalog) withCountry(r PendingRequest) PendingRequest {
	if c.defaults.Country == "" {
		return r
	}
	return r.Country(c.defaults.Country)
}
