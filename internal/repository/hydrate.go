package repository

import "github.com/qs-lzh/movie-catalog/internal/model"

// hydrator turns loaded rows into a domain subgraph. It keeps an identity map
// for the duration of one repository call, so a row reached twice becomes
// one entity.
type hydrator struct {
	movies    map[int]*model.Movie
	users     map[uint]*model.User
	genres    map[uint]*model.Genre
	actors    map[uint]*model.Actor
	directors map[uint]*model.Director
	reviews   map[uint]*model.Review
}

func newHydrator() *hydrator {
	return &hydrator{
		movies:    make(map[int]*model.Movie),
		users:     make(map[uint]*model.User),
		genres:    make(map[uint]*model.Genre),
		actors:    make(map[uint]*model.Actor),
		directors: make(map[uint]*model.Director),
		reviews:   make(map[uint]*model.Review),
	}
}

func (h *hydrator) movie(rec *MovieRecord) *model.Movie {
	if m, ok := h.movies[rec.Rank]; ok {
		return m
	}
	m := model.NewMovie(rec.Title, rec.Year, rec.Rank)
	m.SetDescription(rec.Description)
	if rec.Runtime > 0 {
		_ = m.SetRuntimeMinutes(rec.Runtime)
	}
	h.movies[rec.Rank] = m

	if rec.Director != nil {
		linkDirector(m, h.director(rec.Director))
	}
	for i := range rec.Genres {
		linkGenre(m, h.genre(&rec.Genres[i]))
	}
	for i := range rec.Actors {
		linkActor(m, h.actor(&rec.Actors[i]))
	}
	for i := range rec.Reviews {
		h.review(&rec.Reviews[i], m, nil)
	}
	return m
}

func (h *hydrator) movieList(recs []MovieRecord) []*model.Movie {
	movies := make([]*model.Movie, 0, len(recs))
	for i := range recs {
		movies = append(movies, h.movie(&recs[i]))
	}
	return movies
}

func (h *hydrator) user(rec *UserRecord) *model.User {
	if u, ok := h.users[rec.ID]; ok {
		return u
	}
	u := model.NewUser(rec.Username, rec.Password)
	h.users[rec.ID] = u
	for i := range rec.Reviews {
		h.review(&rec.Reviews[i], nil, u)
	}
	return u
}

func (h *hydrator) genre(rec *GenreRecord) *model.Genre {
	if g, ok := h.genres[rec.ID]; ok {
		return g
	}
	g := model.NewGenre(rec.Name)
	h.genres[rec.ID] = g
	for i := range rec.Movies {
		linkGenre(h.movie(&rec.Movies[i]), g)
	}
	return g
}

func (h *hydrator) actor(rec *ActorRecord) *model.Actor {
	if a, ok := h.actors[rec.ID]; ok {
		return a
	}
	a := model.NewActor(rec.Name)
	h.actors[rec.ID] = a
	for i := range rec.Movies {
		linkActor(h.movie(&rec.Movies[i]), a)
	}
	return a
}

func (h *hydrator) director(rec *DirectorRecord) *model.Director {
	if d, ok := h.directors[rec.ID]; ok {
		return d
	}
	d := model.NewDirector(rec.Name)
	h.directors[rec.ID] = d
	for i := range rec.Movies {
		linkDirector(h.movie(&rec.Movies[i]), d)
	}
	return d
}

func (h *hydrator) review(rec *ReviewRecord, movie *model.Movie, user *model.User) *model.Review {
	if r, ok := h.reviews[rec.ID]; ok {
		return r
	}
	if movie == nil && rec.Movie != nil {
		movie = h.movie(rec.Movie)
	}
	if user == nil && rec.User != nil {
		user = h.user(rec.User)
	}
	// resolving either end may have walked back to this row
	if r, ok := h.reviews[rec.ID]; ok {
		return r
	}
	r := model.NewReview(movie, rec.Review, rec.Rating, user)
	r.Timestamp = rec.Timestamp
	h.reviews[rec.ID] = r
	if movie != nil {
		movie.AddReview(r)
	}
	if user != nil {
		user.AddReview(r)
	}
	return r
}

func linkGenre(m *model.Movie, g *model.Genre) {
	if !g.IsAppliedTo(m) {
		_ = model.MakeGenreAssociation(m, g)
	}
}

func linkActor(m *model.Movie, a *model.Actor) {
	if !a.IsAppliedTo(m) {
		_ = model.MakeActorAssociation(m, a)
	}
}

func linkDirector(m *model.Movie, d *model.Director) {
	if !d.IsAppliedTo(m) {
		_ = model.MakeDirectorAssociation(m, d)
	}
}
