package store

import (
	"sort"
	"strings"
	"time"
)

// Format and version strings written to metadata.yml.
const (
	FormatVersion    = "1.0"
	FormatTag        = "memory-v1"
	StructureVersion = "1.0"
	Generator        = "lockbox"
)

type FieldType string

const (
	FieldText             FieldType = "text"
	FieldPassword         FieldType = "password"
	FieldEmail            FieldType = "email"
	FieldURL              FieldType = "url"
	FieldUsername         FieldType = "username"
	FieldPhone            FieldType = "phone"
	FieldCreditCardNumber FieldType = "creditcardnumber"
	FieldExpiryDate       FieldType = "expirydate"
	FieldCvv              FieldType = "cvv"
	FieldTotpSecret       FieldType = "totpsecret"
	FieldTextArea         FieldType = "textarea"
	FieldNumber           FieldType = "number"
	FieldDate             FieldType = "date"
	FieldCustom           FieldType = "custom"
)

var knownFieldTypes = map[FieldType]bool{
	FieldText: true, FieldPassword: true, FieldEmail: true, FieldURL: true,
	FieldUsername: true, FieldPhone: true, FieldCreditCardNumber: true,
	FieldExpiryDate: true, FieldCvv: true, FieldTotpSecret: true,
	FieldTextArea: true, FieldNumber: true, FieldDate: true, FieldCustom: true,
}

// DefaultSensitive reports whether values of this type are hidden by default.
func (t FieldType) DefaultSensitive() bool {
	switch t {
	case FieldPassword, FieldCvv, FieldTotpSecret, FieldCreditCardNumber:
		return true
	}
	return false
}

type Field struct {
	Value     string            `yaml:"value"`
	FieldType FieldType         `yaml:"field_type"`
	Sensitive bool              `yaml:"sensitive"`
	Label     string            `yaml:"label,omitempty"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
}

// Credential is one record of the repository.
type Credential struct {
	ID             string           `yaml:"id"`
	Title          string           `yaml:"title"`
	CredentialType string           `yaml:"credential_type"`
	Fields         map[string]Field `yaml:"fields"`
	Tags           []string         `yaml:"tags"`
	Notes          string           `yaml:"notes,omitempty"`
	CreatedAt      time.Time        `yaml:"created_at"`
	UpdatedAt      time.Time        `yaml:"updated_at"`
}

// Clone returns a deep copy.
func (c Credential) Clone() Credential {
	out := c
	out.Tags = append([]string{}, c.Tags...)
	out.Fields = make(map[string]Field, len(c.Fields))
	for name, f := range c.Fields {
		if f.Metadata != nil {
			meta := make(map[string]string, len(f.Metadata))
			for k, v := range f.Metadata {
				meta[k] = v
			}
			f.Metadata = meta
		}
		out.Fields[name] = f
	}
	return out
}

func (c Credential) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Normalize puts c in the shape Load produces: a non-nil field map, tags
// de-duplicated and sorted, empty field metadata dropped and UTC times.
func (c *Credential) Normalize() {
	if c.Fields == nil {
		c.Fields = make(map[string]Field)
	}
	for name, f := range c.Fields {
		if len(f.Metadata) == 0 {
			f.Metadata = nil
		}
		if f.FieldType == "" {
			f.FieldType = FieldText
		}
		c.Fields[name] = f
	}

	seen := make(map[string]bool, len(c.Tags))
	tags := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	sort.Strings(tags)
	c.Tags = tags

	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
}

// Metadata describes the repository as a whole.
type Metadata struct {
	Version          string    `yaml:"version"`
	Format           string    `yaml:"format"`
	StructureVersion string    `yaml:"structure_version"`
	Generator        string    `yaml:"generator"`
	CreatedAt        time.Time `yaml:"created_at"`
	LastModified     time.Time `yaml:"last_modified"`
	CredentialCount  int       `yaml:"credential_count"`
}

// NewMetadata returns metadata for an empty repository created at now.
func NewMetadata(now time.Time) Metadata {
	now = now.UTC()
	return Metadata{
		Version:          FormatVersion,
		Format:           FormatTag,
		StructureVersion: StructureVersion,
		Generator:        Generator,
		CreatedAt:        now,
		LastModified:     now,
	}
}

// SortByID orders credentials by id.
func SortByID(records []Credential) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
