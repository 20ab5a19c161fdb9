package table

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducesValidTables(t *testing.T) {
	img := Build("SSDT", 2, []byte{0x10, 0x20, 0x30})
	header := (*SDTHeader)(unsafe.Pointer(&img[0]))

	assert.Equal(t, "SSDT", string(header.Signature[:]))
	assert.EqualValues(t, len(img), header.Length)
	assert.EqualValues(t, 2, header.Revision)
	assert.True(t, Valid(header))

	assert.Equal(t, img, Contents(header))
	assert.Equal(t, []byte{0x10, 0x20, 0x30}, Payload(header))
}

func TestFileResolverAdd(t *testing.T) {
	r := new(FileResolver)

	require.Nil(t, r.Add(Build("DSDT", 2, []byte{0xaa})))

	// Truncated image.
	err := r.Add([]byte{0x00, 0x01})
	assert.Equal(t, errTableTooShort, err)

	// Length field disagreeing with the image size.
	img := Build("DSDT", 2, nil)
	assert.Equal(t, errTableLengthMismatch, r.Add(append(img, 0x00)))

	// Corrupted checksum.
	img = Build("DSDT", 2, []byte{0xaa})
	img[len(img)-1] ^= 0xff
	assert.Equal(t, errTableChecksumMismatch, r.Add(img))
}

func TestFileResolverLookupByIndex(t *testing.T) {
	r := new(FileResolver)
	require.Nil(t, r.Add(Build("DSDT", 2, []byte{0x01})))
	require.Nil(t, r.Add(Build("SSDT", 2, []byte{0x02})))
	require.Nil(t, r.Add(Build("SSDT", 2, []byte{0x03})))

	dsdt := r.LookupTable("DSDT", 0)
	require.NotNil(t, dsdt)
	assert.Equal(t, "DSDT", string(dsdt.Signature[:]))

	ssdt0 := r.LookupTable("SSDT", 0)
	ssdt1 := r.LookupTable("SSDT", 1)
	require.NotNil(t, ssdt0)
	require.NotNil(t, ssdt1)
	assert.Equal(t, []byte{0x02}, Payload(ssdt0))
	assert.Equal(t, []byte{0x03}, Payload(ssdt1))

	assert.Nil(t, r.LookupTable("SSDT", 2))
	assert.Nil(t, r.LookupTable("FACP", 0))
}

func TestFileResolverLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssdt.aml")
	require.NoError(t, os.WriteFile(path, Build("SSDT", 2, []byte{0x42}), 0o644))

	r := new(FileResolver)
	require.Nil(t, r.LoadFile(path))
	require.NotNil(t, r.LookupTable("SSDT", 0))

	assert.NotNil(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.aml")))
}
