package validation

import (
    "fmt"
    "reflect"
    "strconv"
    "strings"
)

// Validator validates structs
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
    return &Validator{}
}

// Validate validates a struct
func (v *Validator) Validate(s interface{}) error {
    val := reflect.ValueOf(s)
    if val.Kind() == reflect.Ptr {
        val = val.Elem()
    }

    if val.Kind() != reflect.Struct {
        return fmt.Errorf("validate expects a struct")
    }

    typ := val.Type()

    for i := 0; i < val.NumField(); i++ {
        field := val.Field(i)
        fieldType := typ.Field(i)
        tag := fieldType.Tag.Get("validate")

        if tag == "" {
            continue
        }

        if err := v.validateField(field, tag); err != nil {
            return fmt.Errorf("%s: %w", fieldType.Name, err)
        }
    }

    return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
    rules := strings.Split(tag, ",")

    for _, rule := range rules {
        parts := strings.SplitN(rule, "=", 2)
        ruleName := parts[0]

        arg := 0
        if len(parts) == 2 {
            n, err := strconv.Atoi(parts[1])
            if err != nil {
                return fmt.Errorf("bad validate tag %q", rule)
            }
            arg = n
        }

        switch ruleName {
        case "required":
            if field.IsZero() {
                return fmt.Errorf("field is required")
            }

        case "email":
            if field.Kind() == reflect.String {
                email := field.String()
                if !strings.Contains(email, "@") {
                    return fmt.Errorf("invalid email format")
                }
            }

        case "min":
            if field.Kind() == reflect.String && len(field.String()) < arg {
                return fmt.Errorf("minimum length is %d", arg)
            }

        case "max":
            if field.Kind() == reflect.String && len(field.String()) > arg {
                return fmt.Errorf("maximum length is %d", arg)
            }

        case "len":
            if field.Kind() == reflect.String && len(field.String()) != arg {
                return fmt.Errorf("length must be %d", arg)
            }
        }
    }

    return nil
}

// ValidateVIN checks a vehicle identification number. Standard VINs are 17
// characters and never contain I, O or Q.
func ValidateVIN(vin string) error {
    if len(vin) != 17 {
        return fmt.Errorf("vin must be 17 characters")
    }

    for _, c := range vin {
        switch {
        case c >= '0' && c <= '9':
        case c >= 'A' && c <= 'Z' && c != 'I' && c != 'O' && c != 'Q':
        default:
            return fmt.Errorf("vin contains invalid character %q", c)
        }
    }

    return nil
}

// ValidateAction checks a remote command action name
func ValidateAction(action string) error {
    if action == "" {
        return fmt.Errorf("action is required")
    }
    if len(action) > 32 {
        return fmt.Errorf("action too long")
    }

    for _, c := range action {
        switch {
        case c >= 'a' && c <= 'z':
        case c >= 'A' && c <= 'Z':
        case c >= '0' && c <= '9':
        case c == '_':
        default:
            return fmt.Errorf("action contains invalid character %q", c)
        }
    }

    return nil
}

// ValidatePIN checks a control password. The vendor app uses 4 to 6 digits.
func ValidatePIN(pin string) error {
    if len(pin) < 4 || len(pin) > 6 {
        return fmt.Errorf("pin must be 4 to 6 digits")
    }

    for _, c := range pin {
        if c < '0' || c > '9' {
            return fmt.Errorf("pin must be digits only")
        }
    }

    return nil
}
