package results

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"gridabm/pkg/core"
)

// Table is a model-level metrics table read back from an Arrow stream.
type Table struct {
	Columns []string
	Rows    []core.ModelRecord
	Meta    map[string]string
}

func metadata(meta map[string]string) *arrow.Metadata {
	keys := slices.Sorted(maps.Keys(meta))
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = meta[k]
	}
	md := arrow.NewMetadata(keys, values)
	return &md
}

// WriteModelArrow writes the model-level records of exp as one Arrow IPC
// stream record batch: an int64 "step" column followed by one float64 column
// per model column. meta is attached as schema metadata.
func WriteModelArrow(w io.Writer, exp core.Export, meta map[string]string) error {
	fields := []arrow.Field{{Name: "step", Type: arrow.PrimitiveTypes.Int64}}
	for _, name := range exp.ModelColumns {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
	}
	schema := arrow.NewSchema(fields, metadata(meta))

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	steps := b.Field(0).(*array.Int64Builder)
	for _, rec := range exp.Model {
		steps.Append(int64(rec.Step))
		for i, v := range rec.Values {
			b.Field(i + 1).(*array.Float64Builder).Append(v)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	return writeRecord(w, schema, rec)
}

// WriteAgentArrow writes the agent-level records of exp: step, agent, species
// and position columns followed by one float64 column per agent attribute.
func WriteAgentArrow(w io.Writer, exp core.Export, meta map[string]string) error {
	fields := []arrow.Field{
		{Name: "step", Type: arrow.PrimitiveTypes.Int64},
		{Name: "agent", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "species", Type: arrow.BinaryTypes.String},
		{Name: "x", Type: arrow.PrimitiveTypes.Int64},
		{Name: "y", Type: arrow.PrimitiveTypes.Int64},
	}
	for _, name := range exp.AgentColumns {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
	}
	schema := arrow.NewSchema(fields, metadata(meta))

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	for _, rec := range exp.Agents {
		b.Field(0).(*array.Int64Builder).Append(int64(rec.Step))
		b.Field(1).(*array.Uint64Builder).Append(rec.Agent)
		b.Field(2).(*array.StringBuilder).Append(string(rec.Species))
		b.Field(3).(*array.Int64Builder).Append(int64(rec.X))
		b.Field(4).(*array.Int64Builder).Append(int64(rec.Y))
		for i, v := range rec.Values {
			b.Field(i + 5).(*array.Float64Builder).Append(v)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	return writeRecord(w, schema, rec)
}

func writeRecord(w io.Writer, schema *arrow.Schema, rec arrow.Record) error {
	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	return iw.Close()
}

// ReadModelArrow reads a stream written by WriteModelArrow.
func ReadModelArrow(r io.Reader) (Table, error) {
	ir, err := ipc.NewReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return Table{}, fmt.Errorf("open arrow stream: %w", err)
	}
	defer ir.Release()

	schema := ir.Schema()
	if schema.NumFields() == 0 || schema.Field(0).Name != "step" {
		return Table{}, fmt.Errorf("arrow stream has no leading step column")
	}
	t := Table{Meta: map[string]string{}}
	md := schema.Metadata()
	for i, k := range md.Keys() {
		t.Meta[k] = md.Values()[i]
	}
	for _, f := range schema.Fields()[1:] {
		t.Columns = append(t.Columns, f.Name)
	}

	for ir.Next() {
		rec := ir.Record()
		steps, ok := rec.Column(0).(*array.Int64)
		if !ok {
			return Table{}, fmt.Errorf("step column has type %s", rec.Column(0).DataType())
		}
		cols := make([]*array.Float64, len(t.Columns))
		for i := range cols {
			if cols[i], ok = rec.Column(i + 1).(*array.Float64); !ok {
				return Table{}, fmt.Errorf("column %s has type %s", t.Columns[i], rec.Column(i+1).DataType())
			}
		}
		for row := range int(rec.NumRows()) {
			values := make([]float64, len(cols))
			for i, c := range cols {
				values[i] = c.Value(row)
			}
			t.Rows = append(t.Rows, core.ModelRecord{Step: int(steps.Value(row)), Values: values})
		}
	}
	if err := ir.Err(); err != nil && err != io.EOF {
		return Table{}, err
	}
	return t, nil
}
