package model

import (
	"slices"
	"strings"
	"time"
)

type User struct {
	Username string
	// Password holds the hashed password; the domain never sees plaintext.
	Password string

	reviews       []*Review
	watchedMovies []*Movie
	watchMinutes  int
}

func NewUser(username, password string) *User {
	return &User{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	}
}

func (u *User) String() string { return "<User " + u.Username + ">" }

func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.Username == other.Username
}

func (u *User) Less(other *User) bool { return u.Username < other.Username }

func (u *User) Reviews() []*Review { return slices.Clone(u.reviews) }

func (u *User) AddReview(r *Review) {
	if r != nil {
		u.reviews = append(u.reviews, r)
	}
}

func (u *User) HasReview(r *Review) bool {
	return slices.ContainsFunc(u.reviews, r.Equal)
}

func (u *User) WatchedMovies() []*Movie { return slices.Clone(u.watchedMovies) }

func (u *User) WatchMovie(m *Movie) {
	if m == nil {
		return
	}
	u.watchedMovies = append(u.watchedMovies, m)
	u.watchMinutes += m.RuntimeMinutes
}

func (u *User) TimeSpentWatching() time.Duration {
	return time.Duration(u.watchMinutes) * time.Minute
}

// Review ratings are kept only within [MinRating, MaxRating).
const (
	MinRating = 1
	MaxRating = 10
)

type Review struct {
	Text      string
	Rating    int
	Timestamp time.Time

	movie *Movie
	user  *User
}

// NewReview builds a review without registering it on either side; use
// MakeReview to attach it to both the user and the movie. Timestamps carry
// microsecond precision so they survive a round trip through postgres.
func NewReview(movie *Movie, text string, rating int, user *User) *Review {
	if rating < MinRating || rating >= MaxRating {
		rating = 0
	}
	return &Review{
		Text:      strings.TrimSpace(text),
		Rating:    rating,
		Timestamp: time.Now().Truncate(time.Microsecond),
		movie:     movie,
		user:      user,
	}
}

func (r *Review) String() string {
	title := ""
	if r.movie != nil {
		title = r.movie.Title
	}
	return "<Review " + title + ", " + r.Timestamp.Format(time.RFC3339) + ">"
}

func (r *Review) Movie() *Movie { return r.movie }

func (r *Review) User() *User { return r.user }

func (r *Review) HasRating() bool { return r.Rating != 0 }

func (r *Review) Equal(other *Review) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.movie.Equal(other.movie) &&
		r.Text == other.Text &&
		r.Rating == other.Rating &&
		r.Timestamp.Equal(other.Timestamp)
}
