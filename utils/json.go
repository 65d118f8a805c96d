package utils

import (
	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// documents is the codec for everything the service persists or receives.
// Map keys are sorted so stored documents are stable between writes.
var documents = sonic.ConfigStd

func Marshal(v interface{}) ([]byte, error) {
	return documents.Marshal(v)
}

func Unmarshal[T any](data []byte, target *T) error {
	return documents.Unmarshal(data, target)
}

// DecodeOptions copies a free-form `config:` section, as parsed from YAML,
// into target. Fields missing from options keep the values already in target.
func DecodeOptions[T any](options interface{}, target *T) error {
	switch typed := options.(type) {
	case nil:
		return nil
	case *T:
		*target = *typed
		return nil
	case T:
		*target = typed
		return nil
	}

	raw, err := yaml.Marshal(options)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(raw, target)
}
