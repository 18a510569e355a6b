// Package movie provides the movie value type shared across the ranking
// engine and the external catalog client used to enrich display fields.
package movie

// Movie is an immutable snapshot of a catalog movie: the identity plus the
// display fields shown to the user during a comparison. It is captured once
// (at session start or insertion time) and never re-fetched, so a comparison
// flow is deterministic even if the upstream catalog changes mid-session.
type Movie struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path,omitempty"`
	Overview   string `json:"overview,omitempty"`
}
