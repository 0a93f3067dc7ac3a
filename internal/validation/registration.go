package validation

import (
	"encoding/json"
	"strings"
)

// FailureReason is the set of registration categories that failed.
type FailureReason uint8

const (
	ReasonUsername FailureReason = 1 << iota
	ReasonPassword
	ReasonEmail
	ReasonPhoneNumber
)

var reasonNames = []struct {
	r    FailureReason
	name string
}{
	{ReasonUsername, "USERNAME"},
	{ReasonPassword, "PASSWORD"},
	{ReasonEmail, "EMAIL"},
	{ReasonPhoneNumber, "PHONE_NUMBER"},
}

// Has reports whether r includes want.
func (r FailureReason) Has(want FailureReason) bool {
	return r&want == want
}

// Names lists the failed categories in bit order.
func (r FailureReason) Names() []string {
	names := make([]string, 0, len(reasonNames))
	for _, rn := range reasonNames {
		if r.Has(rn.r) {
			names = append(names, rn.name)
		}
	}
	return names
}

func (r FailureReason) String() string {
	if r == 0 {
		return "NONE"
	}
	return strings.Join(r.Names(), "|")
}

// MarshalJSON encodes the set as a list of names, e.g. ["USERNAME"].
func (r FailureReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Names())
}

// Registration is a registration payload that has passed the shape check:
// every field is present and non-empty.
type Registration struct {
	Username    string
	Password    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	RoomNumber  string
}

// requiredRegistrationFields is the order fields are checked and reported in.
var requiredRegistrationFields = []string{
	"username", "password", "email", "firstName", "lastName", "phoneNumber", "roomNumber",
}

// ParseRegistration applies the shape predicate to an untyped JSON object.
// It returns false if any required field is missing, empty, or not a string.
func ParseRegistration(payload map[string]any) (Registration, bool) {
	if payload == nil {
		return Registration{}, false
	}
	values := make(map[string]string, len(requiredRegistrationFields))
	for _, key := range requiredRegistrationFields {
		s, ok := payload[key].(string)
		if !ok || s == "" {
			return Registration{}, false
		}
		values[key] = s
	}
	return Registration{
		Username:    values["username"],
		Password:    values["password"],
		Email:       values["email"],
		FirstName:   values["firstName"],
		LastName:    values["lastName"],
		PhoneNumber: values["phoneNumber"],
		RoomNumber:  values["roomNumber"],
	}, true
}

// Result is the outcome of ValidateRegistration. It is also the JSON body
// returned to the client for both accepted and rejected registrations.
type Result struct {
	Accepted      bool          `json:"result"`
	Reasons       FailureReason `json:"reason"`
	PasswordScore Criteria      `json:"password"`
}

// ValidateRegistration evaluates every category independently and reports
// all of them, so a client can show every problem at once.
func ValidateRegistration(reg Registration) Result {
	score := ScorePassword(reg.Password)

	var reasons FailureReason
	if !ValidUsername(reg.Username) {
		reasons |= ReasonUsername
	}
	if !score.Acceptable() {
		reasons |= ReasonPassword
	}
	if !ValidEmail(reg.Email) {
		reasons |= ReasonEmail
	}
	if !ValidPhoneNumber(reg.PhoneNumber) {
		reasons |= ReasonPhoneNumber
	}

	return Result{
		Accepted:      reasons == 0,
		Reasons:       reasons,
		PasswordScore: score,
	}
}
