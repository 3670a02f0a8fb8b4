// Package point defines the time-series sample types carried by the buffer.
//
// # Core Types
//
// Point is a single-field sample: metric name, timestamp, one value and a set
// of tags.
//
//	p, err := point.New("cpu.usage", time.Now(), 0.42, map[string]string{"host": "web-1"})
//
// MultiFieldPoint carries several named values for the same metric, time and
// tags:
//
//	mp, err := point.NewMultiFieldBuilder("disk").
//	    Tag("host", "web-1").
//	    Field("read_bytes", 1024).
//	    Field("write_bytes", 2048).
//	    Build()
//
// # Immutability
//
// Both types keep their fields unexported. Constructors and accessors copy
// the tag and field maps so a point can be shared between goroutines
// without synchronization.
//
// # Wire Format
//
// MarshalJSON produces the shape accepted by the remote store's put endpoints,
// with the timestamp in Unix milliseconds:
//
//	{"metric":"cpu.usage","timestamp":1700000000000,"value":0.42,"tags":{"host":"web-1"}}
//	{"metric":"disk","timestamp":1700000000000,"fields":{"read_bytes":1024},"tags":{"host":"web-1"}}
package point
