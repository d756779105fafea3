package store

import (
	"fmt"
	"strings"
	"unicode/utf8"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

const (
	MaxIDLength         = 128
	MaxTitleLength      = 200
	MaxFields           = 50
	MaxFieldNameLength  = 100
	MaxFieldValueLength = 10000
	MaxTags             = 10
	MaxTagLength        = 50

	// MaxIDBytes keeps the flat record file name within the 255 byte name
	// limit common to Linux, macOS and Windows filesystems.
	MaxIDBytes = 255 - len(flatPrefix) - len(flatSuffix)
)

// ValidateID rejects ids that cannot name a record file safely.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id is empty", kerrors.ErrInvalidCredential)
	case utf8.RuneCountInString(id) > MaxIDLength:
		return fmt.Errorf("%w: id is longer than %d characters", kerrors.ErrInvalidCredential, MaxIDLength)
	case len(id) > MaxIDBytes:
		return fmt.Errorf("%w: id is longer than %d bytes", kerrors.ErrInvalidCredential, MaxIDBytes)
	case id == "." || id == "..":
		return fmt.Errorf("%w: id %q is reserved", kerrors.ErrInvalidCredential, id)
	case strings.ContainsAny(id, "/\\:\x00"):
		return fmt.Errorf("%w: id %q contains a path separator", kerrors.ErrInvalidCredential, id)
	case !utf8.ValidString(id):
		return fmt.Errorf("%w: id is not valid UTF-8", kerrors.ErrInvalidCredential)
	}
	return nil
}

// Validate checks c against the repository limits.
func (c Credential) Validate() error {
	if err := ValidateID(c.ID); err != nil {
		return err
	}

	title := strings.TrimSpace(c.Title)
	if title == "" {
		return fmt.Errorf("%w: %s: title is empty", kerrors.ErrInvalidCredential, c.ID)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: %s: title is longer than %d characters", kerrors.ErrInvalidCredential, c.ID, MaxTitleLength)
	}

	if len(c.Fields) > MaxFields {
		return fmt.Errorf("%w: %s: %d fields, at most %d allowed", kerrors.ErrInvalidCredential, c.ID, len(c.Fields), MaxFields)
	}
	for name, f := range c.Fields {
		if err := ValidateField(name, f); err != nil {
			return fmt.Errorf("%w: %s: %v", kerrors.ErrInvalidCredential, c.ID, err)
		}
	}

	if len(c.Tags) > MaxTags {
		return fmt.Errorf("%w: %s: %d tags, at most %d allowed", kerrors.ErrInvalidCredential, c.ID, len(c.Tags), MaxTags)
	}
	for _, tag := range c.Tags {
		if strings.TrimSpace(tag) == "" || utf8.RuneCountInString(tag) > MaxTagLength {
			return fmt.Errorf("%w: %s: tag %q must be 1-%d characters", kerrors.ErrInvalidCredential, c.ID, tag, MaxTagLength)
		}
	}
	return nil
}

// ValidateField checks a single field.
func ValidateField(name string, f Field) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("field name is empty")
	}
	if utf8.RuneCountInString(name) > MaxFieldNameLength {
		return fmt.Errorf("field name %q is longer than %d characters", name, MaxFieldNameLength)
	}
	if utf8.RuneCountInString(f.Value) > MaxFieldValueLength {
		return fmt.Errorf("field %q is longer than %d characters", name, MaxFieldValueLength)
	}
	if f.FieldType != "" && !knownFieldTypes[f.FieldType] {
		return fmt.Errorf("field %q has unknown type %q", name, f.FieldType)
	}
	return nil
}
