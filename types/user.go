package types

// User represents a registered account.
type User struct {
	// ID is the unique identifier assigned by the database.
	ID int64 `json:"id" db:"id"`

	// Username is the unique login name, stored exactly as submitted.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in responses.
	PasswordHash string `json:"-" db:"password_hash"`
}
