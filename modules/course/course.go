package course

import (
	"encoding/json"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/coursekit/pkg/sanitizer"
	"github.com/dmitrymomot/coursekit/pkg/validator"
)

// Level is the difficulty of a course.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists the accepted values of Level.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

const (
	maxTitleLen    = 100
	maxSubtitleLen = 200
)

// Course is a course document.
type Course struct {
	ID               bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title            string          `bson:"title" json:"title"`
	Subtitle         string          `bson:"subtitle" json:"subtitle"`
	Description      string          `bson:"description" json:"description"`
	Category         string          `bson:"category" json:"category"`
	Level            Level           `bson:"level" json:"level"`
	Price            *float64        `bson:"price" json:"price"`
	Thumbnail        string          `bson:"thumbnail" json:"thumbnail"`
	EnrolledStudents []bson.ObjectID `bson:"enrolledStudents" json:"enrolledStudents"`
	Lectures         []bson.ObjectID `bson:"lectures" json:"lectures"`
	Instructor       bson.ObjectID   `bson:"instructor" json:"instructor"`
	IsPublished      bool            `bson:"isPublished" json:"isPublished"`
	TotalDuration    int             `bson:"totalDuration" json:"totalDuration"`
	TotalLectures    int             `bson:"totalLectures" json:"totalLectures"`
	CreatedAt        time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Params holds the caller-supplied fields of a new course.
type Params struct {
	Title       string
	Subtitle    string
	Description string
	Category    string
	Level       Level
	Price       float64
	Thumbnail   string
	Instructor  bson.ObjectID
}

// New returns an unsaved course with defaults applied.
func New(p Params) *Course {
	price := p.Price
	c := &Course{
		Title:            p.Title,
		Subtitle:         p.Subtitle,
		Description:      p.Description,
		Category:         p.Category,
		Level:            p.Level,
		Price:            &price,
		Thumbnail:        p.Thumbnail,
		Instructor:       p.Instructor,
		EnrolledStudents: []bson.ObjectID{},
		Lectures:         []bson.ObjectID{},
	}
	c.applyDefaults()
	return c
}

// Validate checks the course as it will be stored: string fields are judged
// after trimming and an empty level counts as the default.
func (c *Course) Validate() error {
	title := sanitizer.Trim(c.Title)
	level := c.Level
	if level == "" {
		level = LevelBeginner
	}

	return validator.Apply(
		validator.Required("title", title).WithMessage("Course title is required"),
		validator.MaxLen("title", title, maxTitleLen).
			WithMessage("Course title can not exceed 100 characters"),
		validator.MaxLen("subtitle", sanitizer.Trim(c.Subtitle), maxSubtitleLen).
			WithMessage("Course subtitle can not exceed 200 characters"),
		validator.Required("category", c.Category).WithMessage("Course category is required"),
		validator.OneOf("level", level, Levels).WithMessage("please select a valid course level"),
		priceRule(c.Price),
		validator.Required("thumbnail", c.Thumbnail).WithMessage("Course thumbnail is required"),
		validator.RequiredComparable("instructor", c.Instructor).WithMessage("Course instructor is required"),
	)
}

func priceRule(price *float64) validator.Rule {
	if price == nil {
		return validator.Fail("price", "required", "Course price is required")
	}
	return validator.MinNum("price", *price, 0).WithMessage("Course price can not be less than 0")
}

// BeforeSave normalizes the course for storage: it trims text fields, fills
// defaults, derives TotalLectures and stamps the timestamps.
func (c *Course) BeforeSave(now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)

	c.Title = sanitizer.Trim(c.Title)
	c.Subtitle = sanitizer.Trim(c.Subtitle)
	c.Description = sanitizer.Trim(c.Description)
	c.applyDefaults()
	c.TotalLectures = len(c.Lectures)

	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func (c *Course) applyDefaults() {
	if c.Level == "" {
		c.Level = LevelBeginner
	}
	if c.EnrolledStudents == nil {
		c.EnrolledStudents = []bson.ObjectID{}
	}
	if c.Lectures == nil {
		c.Lectures = []bson.ObjectID{}
	}
}

// AverageRating is a placeholder until ratings are modelled.
func (c *Course) AverageRating() float64 {
	return 0
}

// Enroll adds a student. It reports false if the student is already enrolled.
func (c *Course) Enroll(userID bson.ObjectID) bool {
	if slices.Contains(c.EnrolledStudents, userID) {
		return false
	}
	c.EnrolledStudents = append(c.EnrolledStudents, userID)
	return true
}

// AddLecture appends a lecture and keeps TotalLectures in step.
func (c *Course) AddLecture(lectureID bson.ObjectID) {
	c.Lectures = append(c.Lectures, lectureID)
	c.TotalLectures = len(c.Lectures)
}

// MarshalJSON includes the derived averageRating field.
func (c Course) MarshalJSON() ([]byte, error) {
	type plain Course
	return json.Marshal(struct {
		plain
		AverageRating float64 `json:"averageRating"`
	}{plain(c), c.AverageRating()})
}
