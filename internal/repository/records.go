package repository

import (
	"time"

	"gorm.io/gorm"
)

// Persistence rows. Domain entities never carry gorm tags; the database
// repository converts between the two.

type UserRecord struct {
	ID       uint           `gorm:"primaryKey"`
	Username string         `gorm:"size:255;not null;uniqueIndex"`
	Password string         `gorm:"size:255;not null"`
	Reviews  []ReviewRecord `gorm:"foreignKey:UserID"`
}

func (UserRecord) TableName() string { return "users" }

type MovieRecord struct {
	Rank        int             `gorm:"primaryKey;autoIncrement:false"`
	Title       string          `gorm:"size:255;not null;index"`
	Description string          `gorm:"type:text;not null;default:''"`
	Year        int             `gorm:"not null;index"`
	Runtime     int             `gorm:"not null;default:0"`
	DirectorID  *uint           `gorm:"index"`
	Director    *DirectorRecord `gorm:"foreignKey:DirectorID"`
	Genres      []GenreRecord   `gorm:"many2many:movie_genres;joinForeignKey:MovieRank;joinReferences:GenreID"`
	Actors      []ActorRecord   `gorm:"many2many:movie_actors;joinForeignKey:MovieRank;joinReferences:ActorID"`
	Reviews     []ReviewRecord  `gorm:"foreignKey:MovieRank"`
}

func (MovieRecord) TableName() string { return "movies" }

type GenreRecord struct {
	ID     uint          `gorm:"primaryKey"`
	Name   string        `gorm:"size:64;not null;uniqueIndex"`
	Movies []MovieRecord `gorm:"many2many:movie_genres;joinForeignKey:GenreID;joinReferences:MovieRank"`
}

func (GenreRecord) TableName() string { return "genres" }

type ActorRecord struct {
	ID     uint          `gorm:"primaryKey"`
	Name   string        `gorm:"size:255;not null;uniqueIndex"`
	Movies []MovieRecord `gorm:"many2many:movie_actors;joinForeignKey:ActorID;joinReferences:MovieRank"`
}

func (ActorRecord) TableName() string { return "actors" }

type DirectorRecord struct {
	ID     uint          `gorm:"primaryKey"`
	Name   string        `gorm:"size:255;not null;uniqueIndex"`
	Movies []MovieRecord `gorm:"foreignKey:DirectorID"`
}

func (DirectorRecord) TableName() string { return "directors" }

type ReviewRecord struct {
	ID        uint         `gorm:"primaryKey"`
	UserID    uint         `gorm:"not null;index"`
	MovieRank int          `gorm:"not null;index"`
	Review    string       `gorm:"size:1024;not null"`
	Rating    int          `gorm:"not null;default:0"`
	Timestamp time.Time    `gorm:"not null"`
	User      *UserRecord  `gorm:"foreignKey:UserID"`
	Movie     *MovieRecord `gorm:"foreignKey:MovieRank;references:Rank"`
}

func (ReviewRecord) TableName() string { return "reviews" }

// Migrate creates or updates the catalog schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserRecord{},
		&DirectorRecord{},
		&MovieRecord{},
		&GenreRecord{},
		&ActorRecord{},
		&ReviewRecord{},
	)
}

// DropAll removes every catalog table, join tables first.
func DropAll(db *gorm.DB) error {
	return db.Migrator().DropTable(
		"movie_genres",
		"movie_actors",
		&ReviewRecord{},
		&GenreRecord{},
		&ActorRecord{},
		&MovieRecord{},
		&DirectorRecord{},
		&UserRecord{},
	)
}
