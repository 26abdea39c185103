package model

import (
	"slices"
	"strings"
)

type Genre struct {
	Name string

	movies []*Movie
}

func NewGenre(name string) *Genre {
	return &Genre{Name: strings.TrimSpace(name)}
}

func (g *Genre) String() string { return "<Genre " + g.Name + ">" }

func (g *Genre) Equal(other *Genre) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.Name == other.Name
}

func (g *Genre) Less(other *Genre) bool { return g.Name < other.Name }

func (g *Genre) Movies() []*Movie { return slices.Clone(g.movies) }

func (g *Genre) NumberOfMovies() int { return len(g.movies) }

func (g *Genre) IsAppliedTo(m *Movie) bool {
	return slices.ContainsFunc(g.movies, m.Equal)
}

func (g *Genre) addMovie(m *Movie) { g.movies = append(g.movies, m) }

type Actor struct {
	FullName string

	movies     []*Movie
	colleagues []*Actor
}

func NewActor(fullName string) *Actor {
	return &Actor{FullName: strings.TrimSpace(fullName)}
}

func (a *Actor) String() string { return "<Actor " + a.FullName + ">" }

func (a *Actor) Equal(other *Actor) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.FullName == other.FullName
}

func (a *Actor) Less(other *Actor) bool { return a.FullName < other.FullName }

func (a *Actor) Movies() []*Movie { return slices.Clone(a.movies) }

func (a *Actor) NumberOfMovies() int { return len(a.movies) }

func (a *Actor) IsAppliedTo(m *Movie) bool {
	return slices.ContainsFunc(a.movies, m.Equal)
}

func (a *Actor) addMovie(m *Movie) { a.movies = append(a.movies, m) }

// AddColleague records that a worked with other. The relation is one-sided.
func (a *Actor) AddColleague(other *Actor) {
	if other != nil {
		a.colleagues = append(a.colleagues, other)
	}
}

func (a *Actor) WorkedWith(other *Actor) bool {
	return slices.ContainsFunc(a.colleagues, other.Equal)
}

type Director struct {
	FullName string

	movies []*Movie
}

func NewDirector(fullName string) *Director {
	return &Director{FullName: strings.TrimSpace(fullName)}
}

func (d *Director) String() string { return "<Director " + d.FullName + ">" }

func (d *Director) Equal(other *Director) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.FullName == other.FullName
}

func (d *Director) Less(other *Director) bool { return d.FullName < other.FullName }

func (d *Director) Movies() []*Movie { return slices.Clone(d.movies) }

func (d *Director) NumberOfMovies() int { return len(d.movies) }

func (d *Director) IsAppliedTo(m *Movie) bool {
	return slices.ContainsFunc(d.movies, m.Equal)
}

func (d *Director) addMovie(m *Movie) { d.movies = append(d.movies, m) }
