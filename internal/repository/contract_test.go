package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/qs-lzh/movie-catalog/internal/loader"
	"github.com/qs-lzh/movie-catalog/internal/model"
	"github.com/qs-lzh/movie-catalog/internal/repository"
	"github.com/qs-lzh/movie-catalog/internal/util"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

// repoFactory returns a repository populated from the loader testdata.
type repoFactory func(t *testing.T) repository.Repository

func populate(t *testing.T, repo repository.Repository) {
	t.Helper()
	l := loader.New(repo, zaptest.NewLogger(t), loader.WithHashCost(bcrypt.MinCost))
	if err := l.Populate(context.Background(), filepath.Join("..", "loader", "testdata")); err != nil {
		t.Fatalf("Failed to populate repository: %v", err)
	}
}

// runRepositoryContract checks the behaviour every backend must share.
func runRepositoryContract(t *testing.T, newRepo repoFactory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repo repository.Repository)
	}{
		{"CanAddUser", testCanAddUser},
		{"CanRetrieveUser", testCanRetrieveUser},
		{"DoesNotRetrieveMissingUser", testDoesNotRetrieveMissingUser},
		{"CanRetrieveMovieCount", testCanRetrieveMovieCount},
		{"CanAddMovie", testCanAddMovie},
		{"RejectsTakenRank", testRejectsTakenRank},
		{"CanRetrieveMovie", testCanRetrieveMovie},
		{"DoesNotRetrieveMissingMovie", testDoesNotRetrieveMissingMovie},
		{"CanRetrieveMoviesByYear", testCanRetrieveMoviesByYear},
		{"CanRetrieveGenres", testCanRetrieveGenres},
		{"CanRetrieveActorsAndDirectors", testCanRetrieveActorsAndDirectors},
		{"FirstAndLastMovie", testFirstAndLastMovie},
		{"MoviesByRank", testMoviesByRank},
		{"MovieRanks", testMovieRanks},
		{"NeighbourYears", testNeighbourYears},
		{"NeighbourYearsOfNilMovie", testNeighbourYearsOfNilMovie},
		{"CanAddGenre", testCanAddGenre},
		{"CanAddReview", testCanAddReview},
		{"RejectsDetachedReviews", testRejectsDetachedReviews},
		{"CanRetrieveReviews", testCanRetrieveReviews},
		{"MoviesByDirector", testMoviesByDirector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

func mustMovie(t *testing.T, repo repository.Repository, rank int) *model.Movie {
	t.Helper()
	movie, err := repo.GetMovie(context.Background(), rank)
	if err != nil {
		t.Fatalf("GetMovie(%d): %v", rank, err)
	}
	if movie == nil {
		t.Fatalf("GetMovie(%d) returned nil", rank)
	}
	return movie
}

func mustUser(t *testing.T, repo repository.Repository, username string) *model.User {
	t.Helper()
	user, err := repo.GetUser(context.Background(), username)
	if err != nil {
		t.Fatalf("GetUser(%q): %v", username, err)
	}
	if user == nil {
		t.Fatalf("GetUser(%q) returned nil", username)
	}
	return user
}

func titles(movies []*model.Movie) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Title)
	}
	return out
}

func testCanAddUser(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	user := model.NewUser("Dave", "123456789")
	if err := repo.AddUser(ctx, user); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if got := mustUser(t, repo, "Dave"); !got.Equal(user) {
		t.Errorf("GetUser = %v, want %v", got, user)
	}
}

func testCanRetrieveUser(t *testing.T, repo repository.Repository) {
	user := mustUser(t, repo, "fmercury")
	if !user.Equal(model.NewUser("fmercury", "8734gfe2058v")) {
		t.Errorf("unexpected user %v", user)
	}
	if err := util.CheckPassword(user.Password, "mvNNbc1eLA$i"); err != nil {
		t.Errorf("stored password does not match: %v", err)
	}
	reviews := user.Reviews()
	if len(reviews) != 1 || reviews[0].Movie().Title != "Guardians of the Galaxy" {
		t.Errorf("fmercury reviews = %v", reviews)
	}
}

func testDoesNotRetrieveMissingUser(t *testing.T, repo repository.Repository) {
	user, err := repo.GetUser(context.Background(), "prince")
	if err != nil || user != nil {
		t.Errorf("GetUser(prince) = %v, %v; want nil, nil", user, err)
	}
}

func testCanRetrieveMovieCount(t *testing.T, repo repository.Repository) {
	n, err := repo.GetNumberOfMovies(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 11 {
		t.Errorf("number of movies = %d, want 11", n)
	}
}

func testCanAddMovie(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	movie := model.NewMovie("Joker", 2019, 1001)
	if err := repo.AddMovie(ctx, movie); err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if got := mustMovie(t, repo, 1001); !got.Equal(movie) {
		t.Errorf("GetMovie(1001) = %v, want %v", got, movie)
	}
	if n, _ := repo.GetNumberOfMovies(ctx); n != 12 {
		t.Errorf("number of movies = %d, want 12", n)
	}
}

func testRejectsTakenRank(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	aliens := model.NewMovie("Aliens", 1986, 2001)
	if err := repo.AddMovie(ctx, aliens); err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if err := repo.AddMovie(ctx, model.NewMovie("Zodiac", 2007, 2001)); !errors.Is(err, model.ErrInvariantViolation) {
		t.Errorf("AddMovie with a taken rank error = %v, want ErrInvariantViolation", err)
	}
	if err := repo.AddMovie(ctx, nil); !errors.Is(err, model.ErrInvariantViolation) {
		t.Errorf("AddMovie(nil) error = %v, want ErrInvariantViolation", err)
	}

	if n, _ := repo.GetNumberOfMovies(ctx); n != 12 {
		t.Errorf("number of movies = %d, want 12", n)
	}
	if got := mustMovie(t, repo, 2001); !got.Equal(aliens) {
		t.Errorf("GetMovie(2001) = %v, want %v", got, aliens)
	}
	if last, _ := repo.GetLastMovie(ctx); last.Title != "The Lost City of Z" {
		t.Errorf("last movie = %v, the rejected movie leaked in", last)
	}
}

func testCanRetrieveMovie(t *testing.T, repo repository.Repository) {
	movie := mustMovie(t, repo, 1)

	if movie.Title != "Guardians of the Galaxy" || movie.Year != 2014 {
		t.Errorf("unexpected movie %v", movie)
	}
	if movie.RuntimeMinutes != 121 || movie.Description == "" {
		t.Errorf("runtime/description not loaded: %d %q", movie.RuntimeMinutes, movie.Description)
	}

	reviews := movie.Reviews()
	if len(reviews) != 2 {
		t.Fatalf("reviews = %d, want 2", len(reviews))
	}
	if reviews[0].User().Username != "fmercury" || reviews[1].User().Username != "thorke" {
		t.Errorf("review users = %v, %v", reviews[0].User(), reviews[1].User())
	}
	if reviews[0].Movie() != movie {
		t.Errorf("review does not point back at the movie")
	}

	for _, g := range []string{"Action", "Adventure", "Sci-Fi"} {
		if !movie.IsGenredBy(model.NewGenre(g)) {
			t.Errorf("movie is not genred by %s", g)
		}
	}
	for _, a := range []string{"Chris Pratt", "Vin Diesel", "Bradley Cooper", "Zoe Saldana"} {
		if !movie.IsActedBy(model.NewActor(a)) {
			t.Errorf("movie is not acted by %s", a)
		}
	}
	if !movie.Director().Equal(model.NewDirector("James Gunn")) {
		t.Errorf("director = %v", movie.Director())
	}
}

func testDoesNotRetrieveMissingMovie(t *testing.T, repo repository.Repository) {
	movie, err := repo.GetMovie(context.Background(), 5000)
	if err != nil || movie != nil {
		t.Errorf("GetMovie(5000) = %v, %v; want nil, nil", movie, err)
	}
}

func testCanRetrieveMoviesByYear(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	movies, err := repo.GetMoviesByYear(ctx, 2016)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"La La Land", "Mindhorn", "Passengers", "Sing",
		"Split", "Suicide Squad", "The Great Wall", "The Lost City of Z",
	}
	if got := titles(movies); !slices.Equal(got, want) {
		t.Errorf("movies of 2016 = %v, want %v", got, want)
	}

	movies, err = repo.GetMoviesByYear(ctx, 1999)
	if err != nil || len(movies) != 0 {
		t.Errorf("movies of 1999 = %v, %v; want none", movies, err)
	}
}

func testCanRetrieveGenres(t *testing.T, repo repository.Repository) {
	genres, err := repo.GetGenres(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(genres) != 14 {
		t.Fatalf("genres = %d, want 14", len(genres))
	}
	counts := map[string]int{}
	for _, g := range genres {
		counts[g.Name] = g.NumberOfMovies()
	}
	want := map[string]int{"Adventure": 7, "Action": 5, "Comedy": 3, "Horror": 1}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("%s has %d movies, want %d", name, counts[name], n)
		}
	}
}

func testCanRetrieveActorsAndDirectors(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	actors, err := repo.GetActors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(actors) != 43 {
		t.Errorf("actors = %d, want 43", len(actors))
	}
	directors, err := repo.GetDirectors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(directors) != 11 {
		t.Errorf("directors = %d, want 11", len(directors))
	}
}

func testFirstAndLastMovie(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	first, err := repo.GetFirstMovie(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Title != "Bahubali: The Beginning" {
		t.Errorf("first movie = %v", first)
	}
	last, err := repo.GetLastMovie(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.Title != "The Lost City of Z" {
		t.Errorf("last movie = %v", last)
	}
}

func testMoviesByRank(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	cases := []struct {
		ranks []int
		want  []string
	}{
		{[]int{2, 5}, []string{"Prometheus", "Suicide Squad"}},
		{[]int{5, 2}, []string{"Suicide Squad", "Prometheus"}},
		{[]int{0, 2}, []string{"Prometheus"}},
		{[]int{0, 5000}, []string{}},
		{nil, []string{}},
	}
	for _, c := range cases {
		movies, err := repo.GetMoviesByRank(ctx, c.ranks)
		if err != nil {
			t.Fatalf("GetMoviesByRank(%v): %v", c.ranks, err)
		}
		if got := titles(movies); !slices.Equal(got, c.want) {
			t.Errorf("GetMoviesByRank(%v) = %v, want %v", c.ranks, got, c.want)
		}
	}
}

func testMovieRanks(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	cases := []struct {
		name   string
		lookup func(context.Context, string) ([]int, error)
		arg    string
		want   []int
	}{
		{"genre", repo.GetMovieRanksForGenre, "Adventure", []int{1, 2, 5, 6, 9, 10, 27}},
		{"genre", repo.GetMovieRanksForGenre, "Horror", []int{3}},
		{"genre", repo.GetMovieRanksForGenre, "Motoring", []int{}},
		{"actor", repo.GetMovieRanksForActor, "Chris Pratt", []int{1, 10}},
		{"actor", repo.GetMovieRanksForActor, "Nobody", []int{}},
		{"director", repo.GetMovieRanksForDirector, "Ridley Scott", []int{2}},
		{"director", repo.GetMovieRanksForDirector, "Nobody", []int{}},
	}
	for _, c := range cases {
		got, err := c.lookup(ctx, c.arg)
		if err != nil {
			t.Fatalf("%s %q: %v", c.name, c.arg, err)
		}
		if got == nil || !slices.Equal(got, c.want) {
			t.Errorf("%s %q ranks = %v, want %v", c.name, c.arg, got, c.want)
		}
	}
}

func testNeighbourYears(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	greatWall := mustMovie(t, repo, 6)
	prometheus := mustMovie(t, repo, 2)

	if year, ok, err := repo.GetYearOfPreviousMovie(ctx, greatWall); err != nil || !ok || year != 2015 {
		t.Errorf("previous year of %v = %d, %v, %v; want 2015", greatWall, year, ok, err)
	}
	if _, ok, err := repo.GetYearOfPreviousMovie(ctx, prometheus); err != nil || ok {
		t.Errorf("expected no year before %v, err %v", prometheus, err)
	}
	if year, ok, err := repo.GetYearOfNextMovie(ctx, prometheus); err != nil || !ok || year != 2014 {
		t.Errorf("next year of %v = %d, %v, %v; want 2014", prometheus, year, ok, err)
	}
	if _, ok, err := repo.GetYearOfNextMovie(ctx, greatWall); err != nil || ok {
		t.Errorf("expected no year after %v, err %v", greatWall, err)
	}
}

func testNeighbourYearsOfNilMovie(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	if year, ok, err := repo.GetYearOfPreviousMovie(ctx, nil); err != nil || ok || year != 0 {
		t.Errorf("previous year of nil = %d, %v, %v; want 0, false, nil", year, ok, err)
	}
	if year, ok, err := repo.GetYearOfNextMovie(ctx, nil); err != nil || ok || year != 0 {
		t.Errorf("next year of nil = %d, %v, %v; want 0, false, nil", year, ok, err)
	}
}

func testCanAddGenre(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	genre := model.NewGenre("Motoring")
	if err := model.MakeGenreAssociation(mustMovie(t, repo, 3), genre); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddGenre(ctx, genre); err != nil {
		t.Fatalf("AddGenre: %v", err)
	}

	genres, err := repo.GetGenres(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.ContainsFunc(genres, genre.Equal) {
		t.Errorf("added genre is missing from %v", genres)
	}
	if ranks, _ := repo.GetMovieRanksForGenre(ctx, "Motoring"); !slices.Equal(ranks, []int{3}) {
		t.Errorf("Motoring ranks = %v, want [3]", ranks)
	}
}

func testCanAddReview(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	user := mustUser(t, repo, "thorke")
	movie := mustMovie(t, repo, 2)
	review, err := model.MakeReview("Trump's onto it!", user, movie, 5)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.AddReview(ctx, review); err != nil {
		t.Fatalf("AddReview: %v", err)
	}
	reviews, err := repo.GetReviews(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 4 {
		t.Errorf("reviews = %d, want 4", len(reviews))
	}
	if !slices.ContainsFunc(reviews, review.Equal) {
		t.Errorf("added review is missing")
	}
}

func testRejectsDetachedReviews(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	movie := mustMovie(t, repo, 2)
	user := mustUser(t, repo, "thorke")

	cases := map[string]*model.Review{
		"nil":        nil,
		"no user":    model.NewReview(movie, "Trump's onto it!", 5, nil),
		"not linked": model.NewReview(movie, "Trump's onto it!", 5, user),
	}
	for name, review := range cases {
		if err := repo.AddReview(ctx, review); !errors.Is(err, model.ErrInvariantViolation) {
			t.Errorf("%s: AddReview error = %v, want ErrInvariantViolation", name, err)
		}
	}
	if reviews, _ := repo.GetReviews(ctx); len(reviews) != 3 {
		t.Errorf("rejected reviews were stored: %d reviews", len(reviews))
	}
}

func testCanRetrieveReviews(t *testing.T, repo repository.Repository) {
	reviews, err := repo.GetReviews(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 3 {
		t.Fatalf("reviews = %d, want 3", len(reviews))
	}
	if reviews[2].Rating != 8 || reviews[2].User().Username != "mjackson" || reviews[2].Movie().Rank != 3 {
		t.Errorf("unexpected review %v by %v", reviews[2], reviews[2].User())
	}
}

func testMoviesByDirector(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	movies, err := repo.GetMoviesByDirector(ctx, "Yimou Zhang")
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(movies); !slices.Equal(got, []string{"The Great Wall"}) {
		t.Errorf("movies by Yimou Zhang = %v", got)
	}
	movies, err = repo.GetMoviesByDirector(ctx, "Nobody")
	if err != nil || len(movies) != 0 {
		t.Errorf("movies by Nobody = %v, %v; want none", movies, err)
	}
}
