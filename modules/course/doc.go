// Package course defines the Course document, its validation rules and save
// hooks, and a Store that persists courses in MongoDB.
//
// A Course is a passive data contract. Store.Save runs Validate on the
// incoming values and BeforeSave before writing, so callers only deal with
// the returned validator.ValidationErrors:
//
//	c := course.New(course.Params{
//		Title:      "Go in Production",
//		Category:   "backend",
//		Price:      49,
//		Thumbnail:  "go.png",
//		Instructor: instructorID,
//	})
//	if err := store.Save(ctx, c); err != nil {
//		if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//			// report verrs.Get("title") etc.
//		}
//	}
//
// AverageRating is derived and always reports 0 until ratings exist.
package course
