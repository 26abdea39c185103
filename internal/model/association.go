package model

import "fmt"

// MakeReview creates a review and registers it with both the user and the
// movie. Repeated calls create distinct reviews.
func MakeReview(text string, user *User, movie *Movie, rating int) (*Review, error) {
	if user == nil || movie == nil {
		return nil, fmt.Errorf("%w: review needs both a user and a movie", ErrInvariantViolation)
	}
	review := NewReview(movie, text, rating, user)
	user.AddReview(review)
	movie.AddReview(review)
	return review, nil
}

func MakeGenreAssociation(movie *Movie, genre *Genre) error {
	if genre.IsAppliedTo(movie) {
		return duplicate("genre", genre.Name, movie)
	}
	movie.AddGenre(genre)
	genre.addMovie(movie)
	return nil
}

func MakeActorAssociation(movie *Movie, actor *Actor) error {
	if actor.IsAppliedTo(movie) {
		return duplicate("actor", actor.FullName, movie)
	}
	movie.AddActor(actor)
	actor.addMovie(movie)
	return nil
}

func MakeDirectorAssociation(movie *Movie, director *Director) error {
	if director.IsAppliedTo(movie) {
		return duplicate("director", director.FullName, movie)
	}
	movie.SetDirector(director)
	director.addMovie(movie)
	return nil
}

func duplicate(kind, name string, movie *Movie) error {
	return fmt.Errorf("%w: %w: %s %q already applied to movie %q",
		ErrInvariantViolation, ErrDuplicateAssociation, kind, name, movie.Title)
}
