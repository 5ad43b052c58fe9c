package configtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListenAddress(t *testing.T) {
	tests := []struct {
		name     string
		listen   string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{name: "port only with colon", listen: ":8080", wantPort: 8080},
		{name: "port only without colon", listen: "8080", wantPort: 8080},
		{name: "localhost with port", listen: "localhost:9090", wantHost: "localhost", wantPort: 9090},
		{name: "all interfaces", listen: "0.0.0.0:10070", wantHost: "0.0.0.0", wantPort: 10070},
		{name: "empty string", listen: "", wantErr: true},
		{name: "garbage", listen: "abc", wantErr: true},
		{name: "non numeric port", listen: "localhost:http", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := ParseListenAddress(tt.listen)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestValidateListenAddress_PortRange(t *testing.T) {
	assert.NoError(t, ValidateListenAddress(":1"))
	assert.NoError(t, ValidateListenAddress(":65535"))
	assert.Error(t, ValidateListenAddress(":0"))
	assert.Error(t, ValidateListenAddress(":65536"))
}

func TestNormalizeListen(t *testing.T) {
	got, err := NormalizeListen("8080")
	require.NoError(t, err)
	assert.Equal(t, ":8080", got)

	got, err = NormalizeListen("127.0.0.1:9000")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", got)
}
