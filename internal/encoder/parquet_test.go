package encoder

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/tsdbbuffer/pkg/encoder"
)

func TestParquetEncoder_EncodePoints(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "points.parquet")
	points := testPoints(t, 10)

	stats, err := NewParquetEncoder("snappy").Encode(testFile, encoder.PointBatch(points))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if stats.RecordCount != 10 {
		t.Errorf("RecordCount = %d, want 10", stats.RecordCount)
	}
	if stats.SizeBytes == 0 {
		t.Error("expected non-zero file size")
	}

	rows, err := parquet.ReadFile[PointRow](testFile)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if len(rows) != len(points) {
		t.Fatalf("row count = %d, want %d", len(rows), len(points))
	}

	for i, row := range rows {
		if row.Metric != "sys.cpu.user" {
			t.Errorf("row %d metric = %s", i, row.Metric)
		}
		if row.Value != points[i].Value() {
			t.Errorf("row %d value = %v, want %v", i, row.Value, points[i].Value())
		}
		if row.Timestamp.UnixMilli() != points[i].Timestamp().UnixMilli() {
			t.Errorf("row %d timestamp = %v, want %v", i, row.Timestamp, points[i].Timestamp())
		}
	}

	var tags map[string]string
	if err := json.Unmarshal([]byte(rows[0].Tags), &tags); err != nil {
		t.Fatalf("tags column is not JSON: %v", err)
	}
	if tags["host"] != "web-1" || tags["dc"] != "eu-west" {
		t.Errorf("tags = %v", tags)
	}
}

func TestParquetEncoder_EncodeMultiField(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "multi.parquet")
	points := testMultiFieldPoints(t, 5)

	if _, err := NewParquetEncoder("zstd").Encode(testFile, encoder.MultiFieldBatch(points)); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rows, err := parquet.ReadFile[MultiFieldRow](testFile)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("row count = %d, want 5", len(rows))
	}

	var fields map[string]float64
	if err := json.Unmarshal([]byte(rows[2].Fields), &fields); err != nil {
		t.Fatalf("fields column is not JSON: %v", err)
	}
	if fields["read_bytes"] != 200 || fields["write_bytes"] != 400 {
		t.Errorf("fields = %v", fields)
	}
}

func TestParquetEncoder_Compressions(t *testing.T) {
	for _, codec := range SupportedCompressions(encoder.FormatParquet) {
		t.Run(codec, func(t *testing.T) {
			testFile := filepath.Join(t.TempDir(), "c.parquet")
			if _, err := NewParquetEncoder(codec).Encode(testFile, encoder.PointBatch(testPoints(t, 3))); err != nil {
				t.Errorf("Encode() with %s error = %v", codec, err)
			}
		})
	}
}

func BenchmarkParquetEncoder_Encode(b *testing.B) {
	enc := NewParquetEncoder("snappy")
	batch := encoder.PointBatch(testPoints(b, 100))
	dir := b.TempDir()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Encode(filepath.Join(dir, "bench.parquet"), batch); err != nil {
			b.Fatal(err)
		}
	}
}
