// Package writers holds helpers shared by the sink plugin wrappers.
package writers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode unmarshals a plugin config and validates its struct tags. Unknown
// fields are rejected so a typo in the config file does not go unnoticed.
// An empty config decodes to the zero value before validation.
func Decode(name string, data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("unmarshaling %s config: %w", name, err)
		}
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid %s config: %s", name, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid %s config: %w", name, err)
	}
	return nil
}
