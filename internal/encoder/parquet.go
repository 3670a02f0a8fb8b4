package encoder

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*ParquetEncoder)(nil)

// PointRow is the Parquet schema for single-field points.
// Tags are stored as a JSON object string so the schema stays fixed.
type PointRow struct {
	Metric    string    `parquet:"metric,dict"`
	Timestamp time.Time `parquet:"timestamp,timestamp(millisecond)"`
	Value     float64   `parquet:"value"`
	Tags      string    `parquet:"tags"`
}

// MultiFieldRow is the Parquet schema for multi-field points.
type MultiFieldRow struct {
	Metric    string    `parquet:"metric,dict"`
	Timestamp time.Time `parquet:"timestamp,timestamp(millisecond)"`
	Fields    string    `parquet:"fields"`
	Tags      string    `parquet:"tags"`
}

// ParquetEncoder implements encoder.Encoder for Apache Parquet columnar format.
// Supports SNAPPY (default), GZIP, LZ4, ZSTD and uncompressed output.
type ParquetEncoder struct {
	compressionName string
}

// NewParquetEncoder creates a new Parquet encoder with specified compression.
func NewParquetEncoder(compression string) *ParquetEncoder {
	return &ParquetEncoder{
		compressionName: compression,
	}
}

// compressionCodec converts string compression name to parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch compression {
	case "snappy", "SNAPPY":
		return parquet.Compression(&parquet.Snappy)
	case "gzip", "GZIP":
		return parquet.Compression(&parquet.Gzip)
	case "lz4", "LZ4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd", "ZSTD":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "UNCOMPRESSED", "none", "NONE":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// Encode writes the batch to a Parquet file.
func (e *ParquetEncoder) Encode(filePath string, batch encoder.Batch) (*encoder.FileStats, error) {
	if batch.Len() == 0 {
		return nil, fmt.Errorf("no points to encode")
	}

	var err error
	if batch.Stream == point.StreamMultiField {
		rows := make([]MultiFieldRow, len(batch.MultiField))
		for i, p := range batch.MultiField {
			if rows[i], err = toMultiFieldRow(p.Metric(), p.Timestamp(), p.Fields(), p.Tags()); err != nil {
				return nil, fmt.Errorf("failed to convert point %d: %w", i, err)
			}
		}
		err = writeParquet(filePath, rows, compressionCodec(e.compressionName))
	} else {
		rows := make([]PointRow, len(batch.Points))
		for i, p := range batch.Points {
			if rows[i], err = toPointRow(p.Metric(), p.Timestamp(), p.Value(), p.Tags()); err != nil {
				return nil, fmt.Errorf("failed to convert point %d: %w", i, err)
			}
		}
		err = writeParquet(filePath, rows, compressionCodec(e.compressionName))
	}
	if err != nil {
		return nil, err
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

func writeParquet[T any](filePath string, rows []T, compression parquet.WriterOption) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writer := parquet.NewGenericWriter[T](
		file,
		parquet.SchemaOf(new(T)),
		compression,
		parquet.CreatedBy("tsdbbuffer", "1.0", "0"),
	)

	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		file.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to close writer: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func toPointRow(metric string, ts time.Time, value float64, tags map[string]string) (PointRow, error) {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return PointRow{}, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return PointRow{
		Metric:    metric,
		Timestamp: ts.UTC(),
		Value:     value,
		Tags:      string(tagsJSON),
	}, nil
}

func toMultiFieldRow(metric string, ts time.Time, fields map[string]float64, tags map[string]string) (MultiFieldRow, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return MultiFieldRow{}, fmt.Errorf("failed to marshal fields: %w", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return MultiFieldRow{}, fmt.Errorf("failed to marshal tags: %w", err)
	}
	return MultiFieldRow{
		Metric:    metric,
		Timestamp: ts.UTC(),
		Fields:    string(fieldsJSON),
		Tags:      string(tagsJSON),
	}, nil
}

// Format returns the file format.
func (e *ParquetEncoder) Format() encoder.Format {
	return encoder.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}
