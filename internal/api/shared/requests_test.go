package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type selfValidating struct {
	Name string `validate:"required"`
}

func (v *selfValidating) Validate() error {
	if v.Name == "invalid" {
		return errors.New("invalid name")
	}
	return nil
}

type tagged struct {
	ConnectionID string `validate:"omitempty,max=8,alphanum"`
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     interface{}
		wantErr bool
	}{
		{"own validator passes", &selfValidating{Name: "ok"}, false},
		{"own validator fails", &selfValidating{Name: "invalid"}, true},
		{"own validator wins over tags", &selfValidating{}, false},
		{"tags pass", &tagged{ConnectionID: "abc123"}, false},
		{"tags pass when empty", &tagged{}, false},
		{"tags fail", &tagged{ConnectionID: "not alphanumeric"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.req)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
