package transform

import (
	"bytes"
	"context"
)

// columnNullerTransformer is a COPY-format-aware transformer: it treats
// the payload as tab-separated fields on newline-separated rows (the
// format pg_dump emits for TABLE DATA, where embedded tabs/newlines are
// backslash-escaped rather than literal) and replaces selected 0-based
// field indices with \N, the COPY NULL marker, leaving row structure
// otherwise intact.
type columnNullerTransformer struct {
	columns map[int]struct{}
}

// ColumnNuller returns a Transformer that replaces the given 0-based
// field indices with the COPY NULL marker on every row.
func ColumnNuller(columns ...int) Transformer {
	set := make(map[int]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return &columnNullerTransformer{columns: set}
}

const copyNullMarker = `\N`

func (t *columnNullerTransformer) Transform(_ context.Context, payload []byte) ([]byte, error) {
	if len(t.columns) == 0 {
		return payload, nil
	}

	lines := bytes.Split(payload, []byte("\n"))
	for i, line := range lines {
		if len(line) == 0 || bytes.Equal(line, []byte(`\.`)) {
			continue
		}
		fields := bytes.Split(line, []byte("\t"))
		for idx := range fields {
			if _, nulled := t.columns[idx]; nulled {
				fields[idx] = []byte(copyNullMarker)
			}
		}
		lines[i] = bytes.Join(fields, []byte("\t"))
	}
	return bytes.Join(lines, []byte("\n")), nil
}
