package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileHeaderRejectsBadMagic(t *testing.T) {
	data := make([]byte, 100)
	copy(data, "not a sqlite file")
	_, err := ParseFileHeader(data)
	assert.Error(t, err)
}

func TestParseFileHeaderDecodesPageSize(t *testing.T) {
	data := make([]byte, 100)
	copy(data, headerMagic)
	data[16] = 0x02
	data[17] = 0x00 // 512
	h, err := ParseFileHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), h.PageSize)
}

func TestParseFileHeaderAccepts256ByteMinimumPageSize(t *testing.T) {
	data := make([]byte, 100)
	copy(data, headerMagic)
	data[16] = 0x01
	data[17] = 0x00 // 256
	h, err := ParseFileHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), h.PageSize)
}

func TestParseFileHeaderRejectsBelowMinimumPageSize(t *testing.T) {
	data := make([]byte, 100)
	copy(data, headerMagic)
	data[16] = 0x00
	data[17] = 0x80 // 128, below the 256 floor
	_, err := ParseFileHeader(data)
	assert.Error(t, err)
}

func TestParseFileHeaderPageSizeOneMeans64K(t *testing.T) {
	data := make([]byte, 100)
	copy(data, headerMagic)
	data[16] = 0x00
	data[17] = 0x01 // on-disk 1
	h, err := ParseFileHeader(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(65536), h.PageSize)
}

func TestParseFileHeaderRejectsTruncated(t *testing.T) {
	_, err := ParseFileHeader(make([]byte, 10))
	assert.Error(t, err)
}
