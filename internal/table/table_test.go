package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	in := "id,price,last_review\n1,100,2019-05-21\n2,,\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "price", "last_review"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "100", tbl.Rows[0]["price"])
	assert.Equal(t, "", tbl.Rows[1]["price"])
	assert.Equal(t, "", tbl.Rows[1]["last_review"])
}

func TestReadCSV_StripsBOM(t *testing.T) {
	in := "\xEF\xBB\xBFprice,latitude\n1,40.7\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn("price"))
}

func TestReadCSV_QuotedCRLFBecomesLF(t *testing.T) {
	in := "id,name\r\n1,\"two\r\nlines\"\r\n2,plain\r\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "two\nlines", tbl.Rows[0]["name"])
	assert.Equal(t, "plain", tbl.Rows[1]["name"])

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, "id,name\n1,\"two\nlines\"\n2,plain\n", buf.String())
}

func TestReadCSV_PadsShortRows(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,b,c\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, Row{"a": "1", "b": "2", "c": ""}, tbl.Rows[0])
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: "", wantErr: "no header"},
		{name: "duplicate header", input: "a,a\n1,2\n", wantErr: "duplicate column"},
		{name: "long row", input: "a,b\n1,2,3\n", wantErr: "has 3 fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireColumns(t *testing.T) {
	tbl := New("price", "latitude")
	assert.NoError(t, tbl.RequireColumns("price"))

	err := tbl.RequireColumns("price", "longitude", "last_review")
	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, []string{"longitude", "last_review"}, mce.Columns)
	assert.Contains(t, err.Error(), "longitude, last_review")
}

func TestFilter_PreservesOrder(t *testing.T) {
	tbl := New("n")
	for _, n := range []string{"1", "2", "3", "4", "5"} {
		tbl.Append(Row{"n": n})
	}
	out, err := tbl.Filter(func(_ int, r Row) (bool, error) {
		return r["n"] != "2" && r["n"] != "4", nil
	})
	require.NoError(t, err)

	var got []string
	for _, r := range out.Rows {
		got = append(got, r["n"].(string))
	}
	assert.Equal(t, []string{"1", "3", "5"}, got)
	assert.Equal(t, 5, tbl.Len(), "receiver is not modified")
}

func TestClone_IsIndependent(t *testing.T) {
	tbl := New("a")
	tbl.Append(Row{"a": "x"})
	c := tbl.Clone()
	c.Rows[0]["a"] = "y"
	assert.Equal(t, "x", tbl.Rows[0]["a"])
}

func TestWriteCSV_Formats(t *testing.T) {
	tbl := New("name", "last_review", "seen_at", "count")
	tbl.Append(Row{
		"name":        "Cozy, bright room",
		"last_review": time.Date(2019, 5, 21, 0, 0, 0, 0, time.UTC),
		"seen_at":     time.Date(2019, 5, 21, 13, 4, 5, 0, time.UTC),
		"count":       3,
	})
	tbl.Append(Row{"name": "Loft", "last_review": nil, "seen_at": nil, "count": "7"})

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	want := "name,last_review,seen_at,count\n" +
		"\"Cozy, bright room\",2019-05-21,2019-05-21 13:04:05,3\n" +
		"Loft,,,7\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFile_RoundTripKeepsRawCells(t *testing.T) {
	in := "id,price,note\n1,0150.00,\"a \"\"quoted\"\" note\"\n2,NA,\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, tbl.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, string(data))

	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows, back.Rows)
}

func TestHead(t *testing.T) {
	tbl := New("a")
	tbl.Append(Row{"a": "1"})
	tbl.Append(Row{"a": "2"})
	assert.Equal(t, 1, tbl.Head(1).Len())
	assert.Equal(t, 2, tbl.Head(10).Len())
	assert.Equal(t, 0, tbl.Head(-1).Len())
}
