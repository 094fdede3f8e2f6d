package bigquery

import (
	"cloud.google.com/go/bigquery"

	"github.com/kewos554321/blaze4harbor/schema"
)

// ToSchema converts a descriptor to a BigQuery table schema.
func ToSchema(desc *schema.Descriptor) bigquery.Schema {
	return toFieldSchemas(desc.Fields)
}

func toFieldSchemas(fields []schema.Field) bigquery.Schema {
	out := make(bigquery.Schema, 0, len(fields))
	for _, f := range fields {
		fs := &bigquery.FieldSchema{
			Name:        f.Name,
			Type:        fieldType(f.Type),
			Description: f.Description,
			Required:    f.Mode == schema.ModeRequired,
			Repeated:    f.Mode == schema.ModeRepeated,
		}
		if f.Type == schema.TypeRecord {
			fs.Schema = toFieldSchemas(f.Fields)
		}
		out = append(out, fs)
	}
	return out
}

func fieldType(t schema.FieldType) bigquery.FieldType {
	switch t {
	case schema.TypeString:
		return bigquery.StringFieldType
	case schema.TypeInteger:
		return bigquery.IntegerFieldType
	case schema.TypeFloat:
		return bigquery.FloatFieldType
	case schema.TypeBoolean:
		return bigquery.BooleanFieldType
	case schema.TypeTimestamp:
		return bigquery.TimestampFieldType
	case schema.TypeRecord:
		return bigquery.RecordFieldType
	default:
		return bigquery.FieldType(t)
	}
}
