package model

// Movie is a row of the `movies` table together with its genre names from
// `movie_genres`. A movie with Available == false is soft-deleted: it stays
// in the table for history but cannot receive new schedules.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – display title.
//	Description – free-text synopsis.
//	DurationMin – running time in whole minutes, always positive.
//	Available   – soft-delete flag.
//	Genres      – genre names, unordered.
type Movie struct {
	ID          uint64   `json:"id"`          // movies.id
	Title       string   `json:"title"`       // movies.title
	Description string   `json:"description"` // movies.description
	DurationMin uint32   `json:"duration"`    // movies.duration
	Available   bool     `json:"available"`   // movies.available
	Genres      []string `json:"genres"`      // movie_genres.genre_name
}
