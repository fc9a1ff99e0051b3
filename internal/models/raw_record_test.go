package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawRecord_PadsShortRows(t *testing.T) {
	r := NewRawRecord([]string{"取引日", "金額", "摘要"}, []string{"20240601", "¥50,000"})

	assert.Equal(t, []string{"取引日", "金額", "摘要"}, r.Keys())
	v, ok := r.Get("摘要")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestRawRecord_LookupExactBeforeSubstring(t *testing.T) {
	r := NewRawRecord([]string{"取引日付", "取引日"}, []string{"a", "b"})

	v, ok := r.Lookup("取引日")
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestRawRecord_LookupSubstring(t *testing.T) {
	r := NewRawRecord([]string{"お取引日", "お預入金額"}, []string{" 2024/6/1 ", "1,000"})

	v, ok := r.Lookup("Date", "取引日")
	require.True(t, ok)
	assert.Equal(t, "2024/6/1", v)

	_, ok = r.Lookup("残高")
	assert.False(t, ok)
}

func TestRawRecord_JSONKeepsOrder(t *testing.T) {
	r := NewRawRecord([]string{"z", "a", "確認碼"}, []string{"1", "2", "ABC123"})

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2","確認碼":"ABC123"}`, string(b))

	var back RawRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r.Keys(), back.Keys())
	v, _ := back.Get("確認碼")
	assert.Equal(t, "ABC123", v)
}

func TestRawRecord_ScanNonStringValues(t *testing.T) {
	var r RawRecord
	require.NoError(t, r.Scan([]byte(`{"n":5,"s":"x"}`)))

	v, _ := r.Get("n")
	assert.Equal(t, "5", v)
	assert.Equal(t, []string{"n", "s"}, r.Keys())
}

func TestRawRecord_ScanRejectsArray(t *testing.T) {
	var r RawRecord
	assert.Error(t, r.Scan(`[1,2]`))
}
