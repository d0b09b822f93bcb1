// Package user defines the User document with password hashing and reset
// tokens, and a Store that persists users in MongoDB.
//
// Email addresses must match the accepted pattern as a whole value, after
// trimming and lowercasing. Addresses that only contain a valid address,
// such as "ada@example.com and more", are rejected, so data imported from
// systems that matched loosely may need cleaning before it validates.
//
// Passwords are limited to 40 characters and also to 72 bytes, the most
// bcrypt hashes; multibyte passwords can reach the byte limit first.
package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/coursekit/pkg/sanitizer"
	"github.com/dmitrymomot/coursekit/pkg/token"
	"github.com/dmitrymomot/coursekit/pkg/validator"
)

// Role is a user's role on the platform.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Roles lists the accepted values of Role.
var Roles = []Role{RoleStudent, RoleInstructor, RoleAdmin}

const (
	DefaultAvatar = "default.jpg"

	// BcryptCost is the work factor used for password hashes.
	BcryptCost = 10

	// ResetTokenTTL is how long a password reset token stays valid.
	ResetTokenTTL = 10 * time.Minute

	resetTokenBytes = 20

	maxNameLen     = 40
	minPasswordLen = 8
	maxPasswordLen = 40
	maxBioLen      = 160

	// maxPasswordBytes is the longest input bcrypt accepts.
	maxPasswordBytes = 72
)

// emailPattern is the RFC 5322 subset accepted for addresses, anchored to the
// whole value. Addresses are lowercased before matching.
var emailPattern = regexp.MustCompile("^[a-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$")

// Enrollment records a course the user joined.
type Enrollment struct {
	Course     bson.ObjectID `bson:"course" json:"course"`
	EnrolledAt time.Time     `bson:"enrolledAt" json:"enrolledAt"`
}

// User is a user document. Password holds the plaintext between SetPassword
// and the next save, and the bcrypt hash otherwise. It is empty when the
// document was read without the password.
type User struct {
	ID                  bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name                string          `bson:"name" json:"name"`
	Email               string          `bson:"email" json:"email"`
	Password            string          `bson:"password,omitempty" json:"-"`
	Role                Role            `bson:"role" json:"role"`
	Avatar              string          `bson:"avatar" json:"avatar"`
	Bio                 string          `bson:"bio" json:"bio"`
	EnrolledCourses     []Enrollment    `bson:"enrolledCourses" json:"enrolledCourses"`
	CreatedCourses      []bson.ObjectID `bson:"createdCourses" json:"createdCourses"`
	ResetPasswordToken  string          `bson:"resetPasswordToken" json:"-"`
	ResetPasswordExpiry *time.Time      `bson:"resetPasswordExpiry" json:"-"`
	LastActive          time.Time       `bson:"lastActive" json:"lastActive"`
	CreatedAt           time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time       `bson:"updatedAt" json:"updatedAt"`

	passwordModified bool
}

// New returns an unsaved user with the given plaintext password.
func New(name, email, password string) *User {
	u := &User{Name: name, Email: email}
	u.SetPassword(password)
	return u
}

// SetPassword stores a plaintext password to be hashed on the next save.
func (u *User) SetPassword(plain string) {
	u.Password = plain
	u.passwordModified = true
}

// PasswordModified reports whether the password is plaintext awaiting a hash.
func (u *User) PasswordModified() bool {
	return u.passwordModified || (u.ID.IsZero() && u.Password != "")
}

// Validate checks the user as it will be stored. The password is checked
// only when it is about to be hashed, since stored hashes are not plaintext.
func (u *User) Validate() error {
	name := sanitizer.Trim(u.Name)
	email := sanitizer.NormalizeEmail(u.Email)
	role := u.Role
	if role == "" {
		role = RoleStudent
	}
	checkPassword := u.ID.IsZero() || u.passwordModified

	return validator.Apply(
		validator.Required("name", name).WithMessage("username is required"),
		validator.MaxLen("name", name, maxNameLen).WithMessage("username cannot exceed 40 characters"),
		validator.Required("email", email).WithMessage("email is required"),
		validator.When(email != "",
			validator.Matches("email", email, emailPattern, "email").WithMessage("Please enter a valid email")),
		validator.When(checkPassword,
			validator.Required("password", u.Password).WithMessage("password is required")),
		validator.When(checkPassword && u.Password != "",
			validator.MinLen("password", u.Password, minPasswordLen).WithMessage("password must be at least 8 characters")),
		validator.When(checkPassword,
			validator.MaxLen("password", u.Password, maxPasswordLen).WithMessage("password cannot exceed 40 characters")),
		validator.When(checkPassword && utf8.RuneCountInString(u.Password) <= maxPasswordLen,
			validator.MaxBytes("password", u.Password, maxPasswordBytes).WithMessage("password cannot exceed 72 bytes")),
		validator.OneOf("role", role, Roles).WithMessage("please select a valid role"),
		validator.MaxLen("bio", u.Bio, maxBioLen).WithMessage("bio cannot exceed 160 characters"),
	)
}

// BeforeSave normalizes the user for storage: it trims and lowercases, fills
// defaults, stamps timestamps and hashes a modified password.
func (u *User) BeforeSave(now time.Time) error {
	now = now.UTC().Truncate(time.Millisecond)

	u.Name = sanitizer.Trim(u.Name)
	u.Email = sanitizer.NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleStudent
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar
	}
	if u.EnrolledCourses == nil {
		u.EnrolledCourses = []Enrollment{}
	}
	if u.CreatedCourses == nil {
		u.CreatedCourses = []bson.ObjectID{}
	}
	if u.LastActive.IsZero() {
		u.LastActive = now
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	if !u.PasswordModified() {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.Password = string(hash)
	u.passwordModified = false
	return nil
}

// ComparePassword reports whether plain matches the stored hash. The user
// must have been loaded with its password.
func (u *User) ComparePassword(plain string) (bool, error) {
	if u.Password == "" || u.PasswordModified() {
		return false, ErrPasswordNotLoaded
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
	return true, nil
}

// GenerateResetPasswordToken creates a reset token valid for ResetTokenTTL
// from now. Only its SHA-256 digest is kept on the user; the returned raw
// token is what gets sent to the user.
func (u *User) GenerateResetPasswordToken(now time.Time) (string, error) {
	raw, err := token.Random(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	expiry := now.Add(ResetTokenTTL).UTC().Truncate(time.Millisecond)
	u.ResetPasswordToken = token.Hash(raw)
	u.ResetPasswordExpiry = &expiry
	return raw, nil
}

// VerifyResetPasswordToken reports whether raw matches the stored digest and
// has not expired at now.
func (u *User) VerifyResetPasswordToken(raw string, now time.Time) bool {
	if u.ResetPasswordToken == "" || u.ResetPasswordExpiry == nil || raw == "" {
		return false
	}
	if !now.Before(*u.ResetPasswordExpiry) {
		return false
	}
	return token.Equal(token.Hash(raw), u.ResetPasswordToken)
}

// ClearResetPasswordToken drops the pending reset token.
func (u *User) ClearResetPasswordToken() {
	u.ResetPasswordToken = ""
	u.ResetPasswordExpiry = nil
}

// TotalEnrolledCourses returns the number of courses the user is enrolled in.
func (u *User) TotalEnrolledCourses() int {
	return len(u.EnrolledCourses)
}

// Enroll records an enrollment in courseID. It reports false if the user is
// already enrolled.
func (u *User) Enroll(courseID bson.ObjectID, now time.Time) bool {
	if slices.ContainsFunc(u.EnrolledCourses, func(e Enrollment) bool { return e.Course == courseID }) {
		return false
	}
	u.EnrolledCourses = append(u.EnrolledCourses, Enrollment{
		Course:     courseID,
		EnrolledAt: now.UTC().Truncate(time.Millisecond),
	})
	return true
}

// Touch sets LastActive to now.
func (u *User) Touch(now time.Time) {
	u.LastActive = now.UTC().Truncate(time.Millisecond)
}

// MarshalJSON includes the derived totalEnrolledCourses field.
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		TotalEnrolledCourses int `json:"totalEnrolledCourses"`
	}{plain(u), u.TotalEnrolledCourses()})
}
