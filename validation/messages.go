package validation

// Field names used for field-level error messages.
const (
	FieldEmail           = "email"
	FieldUserName        = "username"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldFullName        = "name"
	FieldMobile          = "mobile"
	FieldAccountType     = "accountType"
	FieldBusinessName    = "businessName"
)

// MessageRequired is shown for any required field left empty.
const MessageRequired = "This field is required."

var messages = map[string]string{
	FieldEmail:           "Please enter a valid email address (.com, .in or .org).",
	FieldUserName:        "Username must be at least 4 characters: lowercase letters, numbers, '.', '_' or '-'.",
	FieldPassword:        "Password must be 8-16 characters with an uppercase letter, a lowercase letter and one of @$!%*?&.",
	FieldConfirmPassword: "Passwords do not match.",
	FieldFullName:        "Please enter your full name.",
	FieldMobile:          "Mobile number must be exactly 10 digits.",
	FieldAccountType:     "Please choose an account type.",
	FieldBusinessName:    "Business name is required.",
}

// Message returns the user-facing message for a field that failed validation.
func Message(field string) string {
	if msg, ok := messages[field]; ok {
		return msg
	}
	return MessageRequired
}
