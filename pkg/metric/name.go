package metric

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logfmt/logfmt"
)

type metadata map[string]string

// Name identifies a stream or detector metric.  Optional metadata distinguishes
// detectors watching the same quantity, such as the stream source or detector
// parameters.  Names marshal to a modified logfmt representation, e.g.
// sensor_temperature[source=simulator alpha=0.1]
type Name struct {
	name string
	md   metadata
}

// NewName returns a new name with the associated metadata
func NewName(name string, md map[string]string) Name {
	return Name{name: name, md: md}
}

// NewNameFrom returns a deep copy of an existing name so metadata can be added
// without mutating the original
func NewNameFrom(n Name) Name {
	copiedMD := make(map[string]string)
	for k, v := range n.md {
		copiedMD[k] = v
	}
	return NewName(n.name, copiedMD)
}

// String marshals the name to a string representation, such as sensor_temperature[source=simulator]
func (n Name) String() string {
	md, err := MarshalText(n.md)
	if err != nil {
		md = []byte{}
	}
	return n.name + string(md)
}

// AddAnnotation adds value-less annotations rendered as @annotation
func (n Name) AddAnnotation(ann ...string) {
	for _, a := range ann {
		n.md[a] = ""
	}
}

// AddMetadata upserts additional metadata into the metadata map
func (n Name) AddMetadata(md map[string]string) {
	for k, v := range md {
		n.md[k] = v
	}
}

// MarshalText will return the metadata encoded as a modified logfmt representation.  Metadata opens
// with a [ then is followed by (key, value) pairs k=v in sorted key order, then by annotations
// starting with @ in sorted order.  Example: [alpha=0.1 source=simulator @flagged]
func MarshalText(m metadata) ([]byte, error) {
	if m == nil {
		return []byte{}, nil
	}
	keys := make([]string, 0, len(m))
	ann := make([]string, 0, len(m))
	for k, v := range m {
		switch v {
		case "":
			ann = append(ann, fmt.Sprintf("@%s", k))
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	sort.Strings(ann)

	var b bytes.Buffer
	b.Write([]byte("["))
	e := logfmt.NewEncoder(&b)
	for _, k := range keys {
		if err := e.EncodeKeyval(k, m[k]); err != nil {
			return nil, fmt.Errorf("failed to encode %s=%s: %v", k, m[k], err)
		}
	}
	if len(keys) > 0 && len(ann) > 0 {
		b.Write([]byte(" "))
	}
	if len(ann) > 0 {
		b.Write([]byte(strings.Join(ann, " ")))
	}
	b.Write([]byte("]"))
	return b.Bytes(), nil
}
