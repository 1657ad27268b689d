package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeCell(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"plain", "hello", 0, "hello"},
		{"trims spaces", "  hello  ", 0, "hello"},
		{"equals", "=SUM(A1:A2)", 0, "'=SUM(A1:A2)"},
		{"plus", "+1234", 0, "'+1234"},
		{"minus", "-5", 0, "'-5"},
		{"at", "@cmd", 0, "'@cmd"},
		{"leading tab", "\t=cmd", 0, "'\t=cmd"},
		{"leading newline", "\nfoo", 0, "'\nfoo"},
		{"space before formula", "  =1+1", 0, "'=1+1"},
		{"formula char later", "a=b", 0, "a=b"},
		{"empty", "", 0, ""},
		{"capped", "abcdef", 3, "abc"},
		{"capped in runes", "grüße", 3, "grü"},
		{"cap before prefix", "=abcdef", 3, "'=ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeCell(tt.in, tt.maxLen))
		})
	}
}

func TestParsePreview(t *testing.T) {
	var b strings.Builder
	b.WriteString("title,status\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "Task %d,todo\n", i)
	}

	doc, err := ParsePreview(b.String(), Limits{})
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "status"}, doc.Headers)
	assert.Len(t, doc.Rows, DefaultLimits().PreviewRows)
	assert.Equal(t, 12, doc.TotalRows)
	assert.Equal(t, []string{"Task 1", "todo"}, doc.Rows[0])
}

func TestParseFull_RowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("title\n")
	for i := 1; i <= 1500; i++ {
		fmt.Fprintf(&b, "Task %d\n", i)
	}

	doc, err := ParseFull(b.String(), Limits{})
	require.NoError(t, err)

	assert.Len(t, doc.Rows, 1000)
	assert.Equal(t, 1500, doc.TotalRows)
	assert.True(t, doc.Truncated())
	assert.Equal(t, "Task 1000", doc.Rows[999][0])
}

func TestParseFull_Sanitizes(t *testing.T) {
	doc, err := ParseFull("=cmd,name\n@SUM(1),\"  Ada  \"\n", Limits{})
	require.NoError(t, err)

	assert.Equal(t, []string{"'=cmd", "name"}, doc.Headers)
	assert.Equal(t, []string{"'@SUM(1)", "Ada"}, doc.Rows[0])
}

func TestParseFull_SkipsBlankRows(t *testing.T) {
	doc, err := ParseFull("\n\ntitle\nA\n\n , \nB\n", Limits{})
	require.NoError(t, err)

	assert.Equal(t, []string{"title"}, doc.Headers)
	assert.Equal(t, [][]string{{"A"}, {"B"}}, doc.Rows)
	assert.Equal(t, 2, doc.TotalRows)
	assert.False(t, doc.Truncated())
}

func TestParseFull_QuotedFields(t *testing.T) {
	doc, err := ParseFull("title,description\n\"Fix, then test\",\"Say \"\"hi\"\"\"\n", Limits{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fix, then test", `Say "hi"`}, doc.Rows[0])
}

func TestParseFull_RaggedRows(t *testing.T) {
	doc, err := ParseFull("a,b,c\n1\n1,2,3,4\n", Limits{MaxColumns: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, doc.Rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, doc.Rows[1])
}

func TestParse_Errors(t *testing.T) {
	wide := strings.Repeat("c,", 50) + "c\n1\n"

	tests := []struct {
		name   string
		text   string
		target error
	}{
		{"empty", "", ErrEmptyFile},
		{"whitespace only", "  \n\t\n", ErrEmptyFile},
		{"blank records only", ",,\n , \n", ErrEmptyFile},
		{"too many columns", wide, ErrTooManyColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFull(tt.text, Limits{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestParse_TooManyColumnsMessage(t *testing.T) {
	_, err := ParsePreview(strings.Repeat("c,", 50)+"c\n", Limits{})

	var tooWide *TooManyColumnsError
	require.True(t, errors.As(err, &tooWide))
	assert.Equal(t, 51, tooWide.Count)
	assert.Equal(t, "Too many columns (51). Maximum allowed is 50.", tooWide.Error())
}

func TestParse_EmptyHasHint(t *testing.T) {
	_, err := ParseFull("", Limits{})
	assert.Contains(t, errors.GetAllHints(err), "Upload a CSV file with a header row and at least one data row.")
}
