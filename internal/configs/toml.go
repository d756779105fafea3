package configs

import (
	"bytes"

	"github.com/BurntSushi/toml"

	"github.com/PolarWolf314/lockbox/internal/utils"
)

// SaveTOML encodes data as TOML and writes it atomically to filePath.
func SaveTOML(filePath string, data interface{}) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}

	return utils.WriteFileAtomic(filePath, buf.Bytes(), 0600)
}

// LoadTOML loads a TOML file into a struct and returns the keys it did not recognise.
func LoadTOML(filePath string, data interface{}) ([]string, error) {
	meta, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for _, key := range meta.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return unknown, nil
}
