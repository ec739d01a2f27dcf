package fetcher

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

func TestDecodeReader_EUCKR(t *testing.T) {
	t.Parallel()

	src := "식품명,단백질(g)\n김치,2\n"
	encoded, err := korean.EUCKR.NewEncoder().String(src)
	require.NoError(t, err)

	r, err := DecodeReader(strings.NewReader(encoded), "EUC-KR")
	require.NoError(t, err)

	rows, err := ReadCSV(context.Background(), r, CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "식품명", rows[0][0])
	assert.Equal(t, "김치", rows[1][0])
}

func TestDecodeReader_StripsBOM(t *testing.T) {
	t.Parallel()

	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("food_name,fat\n")...)
	r, err := DecodeReader(bytes.NewReader(in), "")
	require.NoError(t, err)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "food_name,fat\n", string(out))
}

func TestDecodeReader_NoBOM(t *testing.T) {
	t.Parallel()

	r, err := DecodeReader(strings.NewReader("ab"), "utf-8")
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(out))
}

func TestDecodeReader_UnknownCharset(t *testing.T) {
	t.Parallel()

	_, err := DecodeReader(strings.NewReader(""), "klingon-8")
	require.Error(t, err)
}
