package encoder

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*AvroEncoder)(nil)

const pointSchema = `{
	"type": "record",
	"name": "Point",
	"namespace": "io.tsdbbuffer",
	"fields": [
		{"name": "metric", "type": "string"},
		{"name": "timestamp", "type": {"type": "long", "logicalType": "timestamp-millis"}},
		{"name": "value", "type": "double"},
		{"name": "tags", "type": {"type": "map", "values": "string"}}
	]
}`

const multiFieldSchema = `{
	"type": "record",
	"name": "MultiFieldPoint",
	"namespace": "io.tsdbbuffer",
	"fields": [
		{"name": "metric", "type": "string"},
		{"name": "timestamp", "type": {"type": "long", "logicalType": "timestamp-millis"}},
		{"name": "fields", "type": {"type": "map", "values": "double"}},
		{"name": "tags", "type": {"type": "map", "values": "string"}}
	]
}`

// AvroEncoder implements encoder.Encoder for Avro Object Container Files.
// Block compression is handled by the OCF writer: null, deflate or snappy.
type AvroEncoder struct {
	pointCodec      *goavro.Codec
	multiFieldCodec *goavro.Codec
	compression     string
}

// NewAvroEncoder creates a new Avro encoder with specified compression.
func NewAvroEncoder(compression string) (*AvroEncoder, error) {
	if _, err := ocfCompression(compression); err != nil {
		return nil, err
	}

	pointCodec, err := goavro.NewCodec(pointSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to create point codec: %w", err)
	}
	multiFieldCodec, err := goavro.NewCodec(multiFieldSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-field codec: %w", err)
	}

	return &AvroEncoder{
		pointCodec:      pointCodec,
		multiFieldCodec: multiFieldCodec,
		compression:     compression,
	}, nil
}

// ocfCompression maps a configured codec name to a goavro compression label.
func ocfCompression(compression string) (string, error) {
	switch strings.ToLower(compression) {
	case "", "none", "null", "uncompressed":
		return goavro.CompressionNullLabel, nil
	case "deflate":
		return goavro.CompressionDeflateLabel, nil
	case "snappy":
		return goavro.CompressionSnappyLabel, nil
	default:
		return "", fmt.Errorf("unsupported avro compression: %s", compression)
	}
}

// Encode writes the batch to an Avro file.
func (e *AvroEncoder) Encode(filePath string, batch encoder.Batch) (*encoder.FileStats, error) {
	if batch.Len() == 0 {
		return nil, fmt.Errorf("no points to encode")
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if err := e.write(file, batch); err != nil {
		file.Close()
		return nil, err
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &encoder.FileStats{
		RecordCount: batch.Len(),
		SizeBytes:   fileInfo.Size(),
	}, nil
}

// EncodeToBytes encodes the batch in memory.
func (e *AvroEncoder) EncodeToBytes(batch encoder.Batch) ([]byte, error) {
	if batch.Len() == 0 {
		return nil, fmt.Errorf("no points to encode")
	}

	var buf bytes.Buffer
	if err := e.write(&buf, batch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *AvroEncoder) write(w io.Writer, batch encoder.Batch) error {
	compression, err := ocfCompression(e.compression)
	if err != nil {
		return err
	}

	codec := e.pointCodec
	if batch.Stream == point.StreamMultiField {
		codec = e.multiFieldCodec
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return fmt.Errorf("failed to create OCF writer: %w", err)
	}

	if err := ocfWriter.Append(toAvroRecords(batch)); err != nil {
		return fmt.Errorf("failed to write points: %w", err)
	}
	return nil
}

func toAvroRecords(batch encoder.Batch) []any {
	if batch.Stream == point.StreamMultiField {
		records := make([]any, len(batch.MultiField))
		for i, p := range batch.MultiField {
			fields := make(map[string]any, p.NumFields())
			for name, v := range p.Fields() {
				fields[name] = v
			}
			records[i] = map[string]any{
				"metric":    p.Metric(),
				"timestamp": p.Timestamp(),
				"fields":    fields,
				"tags":      avroTags(p.Tags()),
			}
		}
		return records
	}

	records := make([]any, len(batch.Points))
	for i, p := range batch.Points {
		records[i] = map[string]any{
			"metric":    p.Metric(),
			"timestamp": p.Timestamp(),
			"value":     p.Value(),
			"tags":      avroTags(p.Tags()),
		}
	}
	return records
}

func avroTags(tags map[string]string) map[string]any {
	out := make(map[string]any, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// Format returns the file format.
func (e *AvroEncoder) Format() encoder.Format {
	return encoder.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	return ".avro"
}
