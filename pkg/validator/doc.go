// Package validator provides declarative, field-level validation rules.
//
// Every helper returns a Rule: a Check function paired with the
// ValidationError reported when the check fails. Apply evaluates a list of
// rules and aggregates the failures into ValidationErrors, which implements
// error, so a schema can report every problem with one return value.
//
//	err := validator.Apply(
//		validator.Required("title", c.Title).WithMessage("Course title is required"),
//		validator.MaxLen("title", c.Title, 100),
//		validator.OneOf("level", c.Level, course.Levels),
//		validator.MinNum("price", c.Price, 0),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//		// verrs.Get("title")
//	}
//
// String lengths are counted in runes, not bytes.
//
// Each ValidationError carries a Code naming the rule that failed, so callers
// can map failures to their own messages without parsing Message.
package validator
