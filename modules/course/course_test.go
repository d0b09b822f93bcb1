package course_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/coursekit/modules/course"
	"github.com/dmitrymomot/coursekit/pkg/validator"
)

func validParams() course.Params {
	return course.Params{
		Title:      "Go in Production",
		Subtitle:   "Services that stay up",
		Category:   "backend",
		Price:      49,
		Thumbnail:  "go.png",
		Instructor: bson.NewObjectID(),
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := course.New(validParams())

	assert.Equal(t, course.LevelBeginner, c.Level)
	assert.False(t, c.IsPublished)
	assert.Equal(t, 0, c.TotalDuration)
	assert.Equal(t, 0, c.TotalLectures)
	assert.NotNil(t, c.EnrolledStudents)
	assert.NotNil(t, c.Lectures)
	require.NotNil(t, c.Price)
	assert.InDelta(t, 49.0, *c.Price, 0)
	assert.True(t, c.ID.IsZero())
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *course.Course)
		field   string
		message string
	}{
		{
			name:    "missing title",
			mutate:  func(c *course.Course) { c.Title = "   " },
			field:   "title",
			message: "Course title is required",
		},
		{
			name:    "title too long",
			mutate:  func(c *course.Course) { c.Title = strings.Repeat("a", 101) },
			field:   "title",
			message: "Course title can not exceed 100 characters",
		},
		{
			name:    "subtitle too long",
			mutate:  func(c *course.Course) { c.Subtitle = strings.Repeat("б", 201) },
			field:   "subtitle",
			message: "Course subtitle can not exceed 200 characters",
		},
		{
			name:    "missing category",
			mutate:  func(c *course.Course) { c.Category = "" },
			field:   "category",
			message: "Course category is required",
		},
		{
			name:    "invalid level",
			mutate:  func(c *course.Course) { c.Level = "expert" },
			field:   "level",
			message: "please select a valid course level",
		},
		{
			name:    "missing price",
			mutate:  func(c *course.Course) { c.Price = nil },
			field:   "price",
			message: "Course price is required",
		},
		{
			name: "negative price",
			mutate: func(c *course.Course) {
				p := -1.0
				c.Price = &p
			},
			field:   "price",
			message: "Course price can not be less than 0",
		},
		{
			name:    "missing thumbnail",
			mutate:  func(c *course.Course) { c.Thumbnail = "" },
			field:   "thumbnail",
			message: "Course thumbnail is required",
		},
		{
			name:    "missing instructor",
			mutate:  func(c *course.Course) { c.Instructor = bson.ObjectID{} },
			field:   "instructor",
			message: "Course instructor is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := course.New(validParams())
			tt.mutate(c)

			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, validator.ErrValidationFailed)

			verrs := validator.ExtractValidationErrors(err)
			require.NotNil(t, verrs)
			assert.Equal(t, []string{tt.field}, verrs.Fields())
			assert.Equal(t, []string{tt.message}, verrs.Get(tt.field))
		})
	}

	t.Run("title at limit after trimming", func(t *testing.T) {
		t.Parallel()

		c := course.New(validParams())
		c.Title = "  " + strings.Repeat("a", 100) + "  "
		assert.NoError(t, c.Validate())
	})

	t.Run("zero price is allowed", func(t *testing.T) {
		t.Parallel()

		p := validParams()
		p.Price = 0
		assert.NoError(t, course.New(p).Validate())
	})

	t.Run("empty level counts as default", func(t *testing.T) {
		t.Parallel()

		c := course.New(validParams())
		c.Level = ""
		assert.NoError(t, c.Validate())
	})

	t.Run("reports every failing field", func(t *testing.T) {
		t.Parallel()

		err := (&course.Course{}).Validate()
		verrs := validator.ExtractValidationErrors(err)
		require.NotNil(t, verrs)
		assert.ElementsMatch(t,
			[]string{"title", "category", "price", "thumbnail", "instructor"},
			verrs.Fields())
	})
}

func TestBeforeSave(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)

	c := &course.Course{
		Title:       "  Go in Production ",
		Subtitle:    " subtitle ",
		Description: "\tdescription\n",
		Lectures:    []bson.ObjectID{bson.NewObjectID(), bson.NewObjectID()},
	}
	c.BeforeSave(created)

	assert.Equal(t, "Go in Production", c.Title)
	assert.Equal(t, "subtitle", c.Subtitle)
	assert.Equal(t, "description", c.Description)
	assert.Equal(t, course.LevelBeginner, c.Level)
	assert.NotNil(t, c.EnrolledStudents)
	assert.Equal(t, 2, c.TotalLectures)
	assert.Equal(t, created.Truncate(time.Millisecond), c.CreatedAt)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	updated := created.Add(time.Hour)
	c.Lectures = c.Lectures[:1]
	c.BeforeSave(updated)

	assert.Equal(t, 1, c.TotalLectures)
	assert.Equal(t, created.Truncate(time.Millisecond), c.CreatedAt)
	assert.Equal(t, updated.Truncate(time.Millisecond), c.UpdatedAt)
}

func TestEnrollAndLectures(t *testing.T) {
	t.Parallel()

	c := course.New(validParams())
	student := bson.NewObjectID()

	assert.True(t, c.Enroll(student))
	assert.False(t, c.Enroll(student))
	assert.Equal(t, []bson.ObjectID{student}, c.EnrolledStudents)

	c.AddLecture(bson.NewObjectID())
	c.AddLecture(bson.NewObjectID())
	assert.Equal(t, 2, c.TotalLectures)
	assert.Len(t, c.Lectures, 2)
}

func TestMarshalJSON(t *testing.T) {
	t.Parallel()

	c := course.New(validParams())
	c.ID = bson.NewObjectID()

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, c.ID.Hex(), got["id"])
	assert.Equal(t, "Go in Production", got["title"])
	assert.Equal(t, "beginner", got["level"])
	assert.InDelta(t, 0.0, got["averageRating"], 0)
	assert.InDelta(t, 49.0, got["price"], 0)
	assert.Equal(t, 0.0, c.AverageRating())
}
