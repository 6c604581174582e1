// Package tokens manages Spotify Authorization Code Flow credentials for
// application users: exchanging authorization codes, persisting token pairs,
// and refreshing access tokens on demand.
//
// A [Flow] drives the OAuth protocol and delegates all reads and writes to a
// [Repository]. Two repositories are provided: [DatabaseRepository] (SQLite,
// durable) and [CacheRepository] (Redis, volatile).
package tokens
