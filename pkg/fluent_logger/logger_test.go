package fluentlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Host: "fluent-bit", Port: 24224, TagPrefix: "listing-service"}
	assert.NoError(t, valid.Validate())

	noHost := valid
	noHost.Host = ""
	assert.Error(t, noHost.Validate())

	badPort := valid
	badPort.Port = 70000
	assert.Error(t, badPort.Validate())

	noTag := valid
	noTag.TagPrefix = ""
	assert.Error(t, noTag.Validate())
}
