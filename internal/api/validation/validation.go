package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	ozzo "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/hugh/go-contacts/internal/database/models"
)

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

var (
	// phoneRegex accepts ten digits with an optional country code,
	// e.g. "+48 1234567890" or "1234567890".
	phoneRegex = regexp.MustCompile(`^(\+\d{1,3}[- ]?)?\d{10}$`)
)

// Reusable rule sets for request payloads.
var (
	Email        = []ozzo.Rule{ozzo.Required, is.Email}
	Password     = []ozzo.Rule{ozzo.Required, maxBytes(MaxPasswordBytes)}
	ContactName  = []ozzo.Rule{ozzo.Length(3, 30)}
	ContactEmail = []ozzo.Rule{is.Email}
	Phone        = []ozzo.Rule{ozzo.Match(phoneRegex).Error("must be a valid phone number")}
	Subscription = []ozzo.Rule{ozzo.Required, ozzo.In(subscriptionValues()...)}
)

func subscriptionValues() []interface{} {
	values := make([]interface{}, len(models.Subscriptions))
	for i, s := range models.Subscriptions {
		values[i] = string(s)
	}
	return values
}

// byteLengthRule limits the UTF-8 length of a string. ozzo.Length counts
// runes, which lets multi-byte input past limits defined in bytes.
type byteLengthRule struct {
	max int
}

func maxBytes(max int) byteLengthRule {
	return byteLengthRule{max: max}
}

func (r byteLengthRule) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok || len(s) <= r.max {
		return nil
	}
	return fmt.Errorf("the length must be no more than %d bytes", r.max)
}

// Required prepends ozzo.Required to a rule set.
func Required(rules []ozzo.Rule) []ozzo.Rule {
	return append([]ozzo.Rule{ozzo.Required}, rules...)
}

// Details flattens field errors into a field -> message map. It returns nil
// for errors that are not tied to a field.
func Details(err error) map[string]string {
	var fieldErrs ozzo.Errors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	details := make(map[string]string, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return details
}

// Message renders err as a single line, listing field errors in field order.
func Message(err error) string {
	details := Details(err)
	if details == nil {
		return err.Error()
	}

	fields := make([]string, 0, len(details))
	for field := range details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+details[field])
	}
	return strings.Join(parts, "; ")
}
