// Package errfmt turns heterogeneous error-like values — strings, native
// errors, backend error objects, or anything else — into a displayable
// primary message plus optional debug detail. The UI layer must never render
// a raw object-to-string coercion; this package is how it avoids that.
package errfmt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Formatted is a display-ready rendering of an error-like value.
type Formatted struct {
	// Message is always safe to show to an end user.
	Message string `json:"message"`
	// Debug carries internal detail. Populated only in development mode;
	// always empty in production builds.
	Debug string `json:"debug,omitempty"`
}

// backendError covers the field names hosted backends put their diagnostics
// under. Decoded weakly so numeric codes and the like still come through.
type backendError struct {
	Message     string `mapstructure:"message"`
	Error       string `mapstructure:"error"`
	Description string `mapstructure:"description"`
	Details     string `mapstructure:"details"`
	Hint        string `mapstructure:"hint"`
	Code        string `mapstructure:"code"`
}

const fallbackMessage = "unknown error"

// debugMax caps the serialized debug payload so a huge backend response
// cannot blow up a log line or a dev overlay.
const debugMax = 2048

// Format extracts the primary message from v. Extraction priority: explicit
// string, native error message, backend message/description field, then
// details/hint/code, then a generic fallback. When dev is false the Debug
// field is always empty.
func Format(v any, dev bool) Formatted {
	f := Formatted{Message: extract(v)}
	if dev {
		f.Debug = debugString(v)
	}
	return f
}

func extract(v any) string {
	switch e := v.(type) {
	case nil:
		return fallbackMessage
	case string:
		if s := strings.TrimSpace(e); s != "" {
			return s
		}
		return fallbackMessage
	case error:
		if s := strings.TrimSpace(e.Error()); s != "" {
			return s
		}
		return fallbackMessage
	}

	var be backendError
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &be,
		WeaklyTypedInput: true,
	})
	if err == nil {
		// decode failures just mean "unrecognized shape"; fall through
		_ = dec.Decode(v)
	}
	for _, s := range []string{be.Message, be.Error, be.Description} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(be.Details); s != "" {
		return s
	}
	if s := strings.TrimSpace(be.Hint); s != "" {
		return s
	}
	if s := strings.TrimSpace(be.Code); s != "" {
		return fmt.Sprintf("error %s", s)
	}
	return fallbackMessage
}

func debugString(v any) string {
	if v == nil {
		return ""
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	s := string(b)
	if len(s) > debugMax {
		s = s[:debugMax]
	}
	return s
}
