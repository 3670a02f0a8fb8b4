// Package encoder encodes point batches into files for object storage.
//
// # Supported Formats
//
//   - Parquet: columnar, one file per stream schema (PointRow or MultiFieldRow)
//   - Avro: Object Container File with an embedded schema per stream
//
// # Encoder Factory
//
//	factory := encoder.NewFactory(encoder.FormatParquet, "snappy")
//	enc, err := factory.CreateEncoder()
//
// # Encoding Batches
//
//	stats, err := enc.Encode(filePath, encoder.PointBatch(points))
//	fmt.Printf("Encoded %d points, %d bytes\n", stats.RecordCount, stats.SizeBytes)
//
// # Schemas
//
// Parquet rows store tags (and fields for multi-field points) as JSON object
// strings, keeping one fixed schema for any tag set. Avro records use native
// maps and a timestamp-millis logical type.
//
// # Compression Options
//
//	Parquet: "snappy", "gzip", "lz4", "zstd", "uncompressed"
//	Avro:    "snappy", "deflate", "null"
//
// # Thread Safety
//
// Encoders hold no per-call state and are safe for concurrent use.
package encoder
