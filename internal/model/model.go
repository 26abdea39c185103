package model

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvariantViolation   = errors.New("invariant violation")
	ErrDuplicateAssociation = errors.New("association already exists")
	ErrInvalidRuntime       = errors.New("runtime must be a positive number of minutes")
)

// MinYear is the earliest release year a movie can carry; anything older is
// recorded as unknown.
const MinYear = 1900

type MovieKey struct {
	Title string
	Year  int
}

type Movie struct {
	Rank           int
	Title          string
	Year           int
	Description    string
	RuntimeMinutes int

	director *Director
	genres   []*Genre
	actors   []*Actor
	reviews  []*Review
}

func NewMovie(title string, year int, rank int) *Movie {
	if year < MinYear {
		year = 0
	}
	return &Movie{
		Rank:  rank,
		Title: strings.TrimSpace(title),
		Year:  year,
	}
}

func (m *Movie) String() string {
	return fmt.Sprintf("<Movie %s, %d>", m.Title, m.Year)
}

func (m *Movie) Key() MovieKey {
	return MovieKey{Title: m.Title, Year: m.Year}
}

func (m *Movie) Equal(other *Movie) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Title == other.Title && m.Year == other.Year
}

func (m *Movie) Less(other *Movie) bool {
	return CompareMovies(m, other) < 0
}

// CompareMovies orders movies by title, then by year.
func CompareMovies(a, b *Movie) int {
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return cmp.Compare(a.Year, b.Year)
}

func (m *Movie) SetDescription(description string) {
	description = strings.TrimSpace(description)
	if description != "" {
		m.Description = description
	}
}

func (m *Movie) SetRuntimeMinutes(minutes int) error {
	if minutes <= 0 {
		return ErrInvalidRuntime
	}
	m.RuntimeMinutes = minutes
	return nil
}

func (m *Movie) Director() *Director {
	return m.director
}

func (m *Movie) SetDirector(d *Director) {
	if d != nil {
		m.director = d
	}
}

func (m *Movie) Genres() []*Genre {
	return slices.Clone(m.genres)
}

func (m *Movie) NumberOfGenres() int {
	return len(m.genres)
}

func (m *Movie) FirstGenre() *Genre {
	if len(m.genres) == 0 {
		return nil
	}
	return m.genres[0]
}

func (m *Movie) IsGenred() bool {
	return len(m.genres) > 0
}

func (m *Movie) IsGenredBy(g *Genre) bool {
	return slices.ContainsFunc(m.genres, g.Equal)
}

func (m *Movie) AddGenre(g *Genre) {
	if g == nil || m.IsGenredBy(g) {
		return
	}
	m.genres = append(m.genres, g)
}

func (m *Movie) RemoveGenre(g *Genre) {
	if g == nil {
		return
	}
	m.genres = slices.DeleteFunc(m.genres, g.Equal)
}

func (m *Movie) Actors() []*Actor {
	return slices.Clone(m.actors)
}

func (m *Movie) NumberOfActors() int {
	return len(m.actors)
}

func (m *Movie) IsActed() bool {
	return len(m.actors) > 0
}

func (m *Movie) IsActedBy(a *Actor) bool {
	return slices.ContainsFunc(m.actors, a.Equal)
}

func (m *Movie) AddActor(a *Actor) {
	if a == nil || m.IsActedBy(a) {
		return
	}
	m.actors = append(m.actors, a)
}

func (m *Movie) RemoveActor(a *Actor) {
	if a == nil {
		return
	}
	m.actors = slices.DeleteFunc(m.actors, a.Equal)
}

func (m *Movie) Reviews() []*Review {
	return slices.Clone(m.reviews)
}

func (m *Movie) NumberOfReviews() int {
	return len(m.reviews)
}

func (m *Movie) AddReview(r *Review) {
	if r != nil {
		m.reviews = append(m.reviews, r)
	}
}

func (m *Movie) HasReview(r *Review) bool {
	return slices.ContainsFunc(m.reviews, r.Equal)
}
