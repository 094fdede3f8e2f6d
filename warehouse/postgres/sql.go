package postgres

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kewos554321/blaze4harbor/schema"
)

// insertIDColumn holds the per-row insert id and is the primary key.
const insertIDColumn = "_insert_id"

func createSchemaSQL(namespace string) string {
	return "CREATE SCHEMA " + pgx.Identifier{namespace}.Sanitize()
}

func createTableSQL(namespace, collection string, desc *schema.Descriptor) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(pgx.Identifier{namespace, collection}.Sanitize())
	b.WriteString(" (\n\t")
	b.WriteString(pgx.Identifier{insertIDColumn}.Sanitize())
	b.WriteString(" text PRIMARY KEY")
	for _, f := range desc.Fields {
		b.WriteString(",\n\t")
		b.WriteString(pgx.Identifier{f.Name}.Sanitize())
		b.WriteByte(' ')
		b.WriteString(columnType(f))
		if f.Mode == schema.ModeRequired {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// columnType maps a top-level field to a column type.
// Records and repeated fields keep their structure as jsonb.
func columnType(f schema.Field) string {
	if f.Repeated() || f.Type == schema.TypeRecord {
		return "jsonb"
	}
	switch f.Type {
	case schema.TypeInteger:
		return "bigint"
	case schema.TypeFloat:
		return "double precision"
	case schema.TypeBoolean:
		return "boolean"
	case schema.TypeTimestamp:
		return "timestamptz"
	default:
		return "text"
	}
}

// insertSQL builds a parameterized insert for the non-null fields of row.
// Columns are ordered by name so the statement text is deterministic.
func insertSQL(namespace, collection string, row schema.Row, insertID string) (string, []any, error) {
	names := make([]string, 0, len(row))
	for name, v := range row {
		if v != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	cols := []string{pgx.Identifier{insertIDColumn}.Sanitize()}
	args := []any{insertID}
	for _, name := range names {
		v, err := columnValue(row[name])
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", name, err)
		}
		cols = append(cols, pgx.Identifier{name}.Sanitize())
		args = append(args, v)
	}

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		pgx.Identifier{namespace, collection}.Sanitize(),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		pgx.Identifier{insertIDColumn}.Sanitize(),
	)
	return query, args, nil
}

// columnValue encodes structured values as JSON text for jsonb columns.
func columnValue(v any) (any, error) {
	switch v.(type) {
	case schema.Row, []any, map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return v, nil
	}
}
