package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameMarshal(t *testing.T) {
	tt := []struct {
		name string
		n    string
		md   map[string]string
		exp  string
	}{
		{name: "no metadata", n: "sensor_temperature", exp: "sensor_temperature"},
		{name: "metadata", n: "sensor_temperature", md: map[string]string{"source": "simulator", "alpha": "0.1"}, exp: "sensor_temperature[alpha=0.1 source=simulator]"},
		{name: "metadata spaces", n: "sensor_temperature", md: map[string]string{"source": "sensor array 1", "alpha": "0.1"}, exp: "sensor_temperature[alpha=0.1 source=\"sensor array 1\"]"},
		{name: "metadata with annotations", n: "sensor_temperature", md: map[string]string{"source": "simulator", "alpha": "0.1", "flagged": ""}, exp: "sensor_temperature[alpha=0.1 source=simulator @flagged]"},
		{name: "annotations only", n: "sensor_temperature", md: map[string]string{"flagged": "", "windowed": ""}, exp: "sensor_temperature[@flagged @windowed]"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			n := NewName(tc.n, tc.md)
			assert.Equal(t, tc.exp, n.String())
		})
	}
}

func TestAddMetadata(t *testing.T) {
	tt := []struct {
		name string
		add  map[string]string
		exp  map[string]string
	}{
		{name: "no replacement", add: map[string]string{"c": "d", "e": "f"}, exp: map[string]string{"a": "b", "c": "d", "e": "f"}},
		{name: "replacement", add: map[string]string{"a": "d", "e": "f"}, exp: map[string]string{"a": "d", "e": "f"}},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			ini := map[string]string{"a": "b"}
			n := NewName("test", ini)
			n.AddMetadata(tc.add)
			assert.Equal(t, metadata(tc.exp), n.md)
		})
	}
}

func TestNameFromDoesNotShareMetadata(t *testing.T) {
	orig := NewName("test", map[string]string{"a": "b"})
	copied := NewNameFrom(orig)
	copied.AddMetadata(map[string]string{"c": "d"})
	assert.Equal(t, "test[a=b]", orig.String())
	assert.Equal(t, "test[a=b c=d]", copied.String())
}
